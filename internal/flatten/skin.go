package flatten

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// maxPartitionBones is the number of bones a partition can address with
// its 16-bit slots.
var maxPartitionBones = gomath.MaxUint16 + 1

// skinResolver turns control point influences into bone slots of one
// partition. The bone list grows as new bone nodes are met.
type skinResolver struct {
	deformer      *fbxscene.SkinDeformer
	nodeIndex     map[int]int32 // bone id to node list position
	maxInfluences int
	log           *zap.Logger

	bones []scene.Bone

	dropped    int // influences beyond maxInfluences
	unresolved int // influences whose cluster names no known node
}

func newSkinResolver(deformer *fbxscene.SkinDeformer, nodeIndex map[int]int32, maxInfluences int, log *zap.Logger) *skinResolver {
	return &skinResolver{
		deformer:      deformer,
		nodeIndex:     nodeIndex,
		maxInfluences: maxInfluences,
		log:           log,
	}
}

// resolve returns the bone slots and normalized weights of a control
// point. Only the first maxInfluences resolvable influences are kept, in
// source order; weights are normalized over the kept ones. A control point
// without influences gets zero weights.
func (r *skinResolver) resolve(controlPoint uint32) ([scene.MaxBoneInfluences]uint16, math.Vec4, error) {
	var slots [scene.MaxBoneInfluences]uint16
	var weights [scene.MaxBoneInfluences]float32

	if int(controlPoint) >= len(r.deformer.Vertices) {
		return slots, math.Vec4{}, nil
	}

	n := 0
	for _, w := range r.deformer.Vertices[controlPoint].Weights {
		if n == r.maxInfluences {
			r.dropped++
			continue
		}
		if w.Cluster < 0 || w.Cluster >= len(r.deformer.Clusters) {
			r.unresolved++
			continue
		}
		cluster := &r.deformer.Clusters[w.Cluster]
		node, ok := r.nodeIndex[cluster.BoneID]
		if !ok || cluster.BoneID == fbxscene.NoIndex {
			r.unresolved++
			continue
		}
		slot, err := r.slot(node, cluster.GeometryToBone)
		if err != nil {
			return slots, math.Vec4{}, err
		}
		slots[n] = slot
		weights[n] = w.Weight
		n++
	}

	var sum float32
	for _, w := range weights[:n] {
		sum += w
	}
	if sum > 0 {
		for i := range weights[:n] {
			weights[i] /= sum
		}
	}
	return slots, math.Vec4FromArray(weights), nil
}

// slot returns the bone slot of a node, appending it with its bind matrix
// on first use.
func (r *skinResolver) slot(node int32, geometryToBone math.Mat4) (uint16, error) {
	for i := range r.bones {
		if r.bones[i].NodeIndex == node {
			return uint16(i), nil
		}
	}
	if len(r.bones) >= maxPartitionBones {
		return 0, ErrTooManyBones
	}
	r.bones = append(r.bones, scene.Bone{NodeIndex: node, OffsetMatrix: geometryToBone})
	return uint16(len(r.bones) - 1), nil
}

// report logs the influences that did not make it into the partition.
func (r *skinResolver) report(partition string) {
	if r.dropped > 0 {
		r.log.Debug("dropped bone influences beyond limit",
			zap.String("partition", partition),
			zap.Int("dropped", r.dropped),
			zap.Int("limit", r.maxInfluences))
	}
	if r.unresolved > 0 {
		r.log.Warn("skipped bone influences with unknown bones",
			zap.String("partition", partition),
			zap.Int("skipped", r.unresolved))
	}
}

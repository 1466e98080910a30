package flatten

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// meshBuilder converts source meshes into per-material partitions.
type meshBuilder struct {
	opts          Options
	log           *zap.Logger
	nodeIndex     map[int]int32
	materialCount int
}

// partitionLayout records which optional channels a partition carries.
type partitionLayout struct {
	tangents   bool
	bitangents bool
	uvSets     int
	colorSets  int
	skinned    bool
}

// build returns one mesh per material slot of the node that owns at least
// one triangle. A partition that fails index generation is logged and
// left out; only fatal errors are returned.
func (b *meshBuilder) build(node *fbxscene.Node, nodeName string, src *fbxscene.Mesh) ([]scene.Mesh, error) {
	materials := node.Materials
	if len(materials) == 0 {
		materials = src.Materials
	}
	if len(materials) == 0 {
		b.log.Debug("mesh has no materials", zap.String("node", nodeName), zap.String("mesh", src.Name))
		return nil, nil
	}

	if stray := straySlots(src, len(materials)); stray > 0 {
		b.log.Warn("skipping faces with unbound material slots",
			zap.String("node", nodeName),
			zap.String("mesh", src.Name),
			zap.Int("faces", stray),
			zap.Int("slots", len(materials)))
	}

	var out []scene.Mesh
	var tris []uint32
	for slot, materialIndex := range materials {
		tris = tris[:0]
		for fi, face := range src.Faces {
			if src.MaterialSlot(fi) == slot {
				tris = face.Triangulate(tris)
			}
		}
		if len(tris) == 0 {
			b.log.Debug("skipping empty partition",
				zap.String("node", nodeName),
				zap.Int("slot", slot))
			continue
		}
		if materialIndex < 0 || materialIndex >= b.materialCount {
			b.log.Warn("skipping partition with unknown material",
				zap.String("node", nodeName),
				zap.Int("slot", slot),
				zap.Int("material", materialIndex))
			continue
		}

		mesh, err := b.buildPartition(src, tris, int32(materialIndex), fmt.Sprintf("%s[%d]", nodeName, slot))
		if err != nil {
			if IsFatal(err) {
				return nil, err
			}
			b.log.Warn("skipping partition",
				zap.String("node", nodeName),
				zap.String("mesh", src.Name),
				zap.Int("slot", slot),
				zap.Error(err))
			continue
		}
		out = append(out, mesh)
	}
	return out, nil
}

// straySlots counts the faces whose material slot is outside [0, slots).
func straySlots(src *fbxscene.Mesh, slots int) int {
	n := 0
	for fi := range src.Faces {
		if slot := src.MaterialSlot(fi); slot < 0 || slot >= slots {
			n++
		}
	}
	return n
}

// buildPartition gathers a corner stream for the given triangles,
// deduplicates it and splits it back into parallel arrays.
func (b *meshBuilder) buildPartition(src *fbxscene.Mesh, tris []uint32, materialIndex int32, name string) (scene.Mesh, error) {
	layout := partitionLayout{
		tangents:   src.Tangents.Exists(),
		bitangents: src.Bitangents.Exists(),
		uvSets:     min(len(src.UVSets), b.opts.MaxUVSets),
		colorSets:  min(len(src.ColorSets), b.opts.MaxColorSets),
		skinned:    len(src.SkinDeformers) > 0,
	}
	if len(src.UVSets) > layout.uvSets || len(src.ColorSets) > layout.colorSets {
		b.log.Debug("truncated attribute sets",
			zap.String("partition", name),
			zap.Int("uv_sets", len(src.UVSets)),
			zap.Int("color_sets", len(src.ColorSets)))
	}

	var skin *skinResolver
	if layout.skinned {
		if len(src.SkinDeformers) > 1 {
			b.log.Debug("using first skin deformer only",
				zap.String("partition", name),
				zap.Int("deformers", len(src.SkinDeformers)))
		}
		skin = newSkinResolver(src.SkinDeformers[0], b.nodeIndex, b.opts.MaxBoneInfluences, b.log)
	}

	if b.opts.FlipWinding {
		for i := 0; i+2 < len(tris); i += 3 {
			tris[i+1], tris[i+2] = tris[i+2], tris[i+1]
		}
	}

	stream := make([]vertex, len(tris))
	for i, corner := range tris {
		if err := b.gather(&stream[i], src, corner, layout, skin); err != nil {
			return scene.Mesh{}, err
		}
	}
	if skin != nil {
		skin.report(name)
	}

	vertices, indices, err := generateIndices(stream)
	if err != nil {
		return scene.Mesh{}, err
	}

	mesh := deinterleave(vertices, layout)
	mesh.Name = src.Name
	mesh.Indices = indices
	mesh.MaterialIndex = materialIndex
	mesh.IsSkinned = layout.skinned
	if skin != nil {
		mesh.Bones = skin.bones
	}
	mesh.Bounds = computeBounds(mesh.Positions)
	return mesh, nil
}

// gather fills the attribute record of one corner.
func (b *meshBuilder) gather(v *vertex, src *fbxscene.Mesh, corner uint32, layout partitionLayout, skin *skinResolver) error {
	v.position = src.Positions.At(corner)
	if src.Normals.Exists() {
		v.normal = src.Normals.At(corner)
	}
	if layout.tangents {
		v.tangent = src.Tangents.At(corner)
	}
	if layout.bitangents {
		v.bitangent = src.Bitangents.At(corner)
	}
	for i := 0; i < layout.uvSets; i++ {
		if !src.UVSets[i].Exists() {
			continue
		}
		uv := src.UVSets[i].At(corner)
		if b.opts.FlipUVs {
			uv.Y = 1 - uv.Y
		}
		v.uv[i] = uv
	}
	for i := 0; i < layout.colorSets; i++ {
		if src.ColorSets[i].Exists() {
			v.color[i] = src.ColorSets[i].At(corner)
		}
	}
	if skin != nil {
		var err error
		v.boneIndex, v.boneWeight, err = skin.resolve(src.VertexIndices[corner])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIndexGeneration, err)
		}
	}
	return nil
}

// deinterleave splits compacted vertices into the mesh's parallel arrays,
// allocating only the channels the layout carries.
func deinterleave(vertices []vertex, layout partitionLayout) scene.Mesh {
	n := len(vertices)
	mesh := scene.Mesh{
		Positions: make([]math.Vec3, n),
		Normals:   make([]math.Vec3, n),
	}
	if layout.tangents {
		mesh.Tangents = make([]math.Vec3, n)
	}
	if layout.bitangents {
		mesh.Bitangents = make([]math.Vec3, n)
	}
	if layout.uvSets > 0 {
		mesh.UVs = make([][]math.Vec2, layout.uvSets)
		for i := range mesh.UVs {
			mesh.UVs[i] = make([]math.Vec2, n)
		}
	}
	if layout.colorSets > 0 {
		mesh.Colors = make([][]math.Vec4, layout.colorSets)
		for i := range mesh.Colors {
			mesh.Colors[i] = make([]math.Vec4, n)
		}
	}
	if layout.skinned {
		mesh.BoneIndices = make([][4]uint16, n)
		mesh.BoneWeights = make([]math.Vec4, n)
	}

	for i := range vertices {
		v := &vertices[i]
		mesh.Positions[i] = v.position
		mesh.Normals[i] = v.normal
		if layout.tangents {
			mesh.Tangents[i] = v.tangent
		}
		if layout.bitangents {
			mesh.Bitangents[i] = v.bitangent
		}
		for s := range mesh.UVs {
			mesh.UVs[s][i] = v.uv[s]
		}
		for s := range mesh.Colors {
			mesh.Colors[s][i] = v.color[s]
		}
		if layout.skinned {
			mesh.BoneIndices[i] = v.boneIndex
			mesh.BoneWeights[i] = v.boneWeight
		}
	}
	return mesh
}

// computeBounds returns the box around the given points.
func computeBounds(points []math.Vec3) scene.Bounds {
	if len(points) == 0 {
		return scene.Bounds{}
	}
	b := scene.Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Package flatten converts a parsed FBX scene graph into a flat scene:
// nodes with resolved parents and transforms, per-material meshes with
// deduplicated vertices, per-mesh bone lists, materials and baked
// animations.
//
// A conversion is one synchronous call. The source scene is only read;
// every intermediate buffer is local to the call.
package flatten

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// Flatten converts src. Partitions that fail index generation are logged
// and omitted; a *FatalError aborts the conversion and no scene is
// returned.
func Flatten(src *fbxscene.Scene, opts Options) (*scene.Scene, error) {
	if src == nil {
		return nil, ErrNilScene
	}
	opts = opts.normalized()
	log := opts.Logger

	index := indexNodes(src.Nodes, log)
	builder := &meshBuilder{
		opts:          opts,
		log:           log,
		nodeIndex:     index,
		materialCount: len(src.Materials),
	}

	out := &scene.Scene{
		Nodes: make([]scene.Node, len(src.Nodes)),
	}

	for i, n := range src.Nodes {
		node := flattenNode(n, parentIndex(n, i, index, log))

		if n.HasMesh() {
			if n.Mesh < 0 || n.Mesh >= len(src.Meshes) {
				log.Warn("node references unknown mesh",
					zap.String("node", node.Name),
					zap.Int("mesh", n.Mesh))
			} else {
				meshes, err := builder.build(n, node.Name, src.Meshes[n.Mesh])
				if err != nil {
					return nil, err
				}
				for _, m := range meshes {
					if len(out.Meshes) >= gomath.MaxInt32 {
						return nil, fatalf("assemble scene", "%w: mesh count", ErrOutOfMemory)
					}
					node.MeshIndices = append(node.MeshIndices, int32(len(out.Meshes)))
					out.Meshes = append(out.Meshes, m)
				}
			}
		}

		out.Nodes[i] = node
	}

	out.Materials = make([]scene.Material, len(src.Materials))
	for i, m := range src.Materials {
		out.Materials[i] = extractMaterial(m)
	}

	for _, stack := range src.AnimStacks {
		out.Animations = append(out.Animations, bakeAnimation(stack, opts.BakeFrameRate, index, log))
	}

	log.Debug("flattened scene",
		zap.Int("nodes", len(out.Nodes)),
		zap.Int("meshes", len(out.Meshes)),
		zap.Int("materials", len(out.Materials)),
		zap.Int("animations", len(out.Animations)))

	return out, nil
}

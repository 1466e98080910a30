package flatten

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/math"
)

// newMesh builds a mesh whose streams are indexed per control point.
func newMesh(positions []math.Vec3, faces ...[]uint32) *fbxscene.Mesh {
	m := &fbxscene.Mesh{Name: "mesh"}
	for _, f := range faces {
		m.Faces = append(m.Faces, fbxscene.Face{
			IndexBegin: uint32(len(m.VertexIndices)),
			NumIndices: uint32(len(f)),
		})
		m.VertexIndices = append(m.VertexIndices, f...)
	}
	m.Positions = fbxscene.VertexVec3{Values: positions, Indices: m.VertexIndices}
	return m
}

func newNode(id, parent int, name string) *fbxscene.Node {
	return &fbxscene.Node{
		ID:             id,
		ParentID:       parent,
		Name:           name,
		LocalTransform: fbxscene.IdentityTransform(),
		Mesh:           fbxscene.NoIndex,
	}
}

// evaluated fills the node matrices of a hand-built scene.
func evaluated(t *testing.T, s *fbxscene.Scene) *fbxscene.Scene {
	t.Helper()
	require.NoError(t, fbxscene.EvaluateTransforms(s, 1))
	return s
}

func quadPositions() []math.Vec3 {
	return []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}}
}

func uvStream(values []math.Vec2, indices []uint32) fbxscene.VertexVec2 {
	return fbxscene.VertexVec2{Values: values, Indices: indices}
}

package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/math"
)

func observed() (Options, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts := DefaultOptions()
	opts.Logger = zap.New(core)
	return opts, logs
}

// twoBoneQuad skins a quad whose first triangle uses bone node 1 only and
// whose second triangle also reaches bone node 2 through control point 3.
func twoBoneQuad() *fbxscene.Mesh {
	mesh := newMesh(quadPositions(), []uint32{0, 1, 2}, []uint32{0, 2, 3})
	mesh.Name = "Body"
	mesh.FaceMaterial = []int32{0, 1}
	mesh.Materials = []int{0, 1}

	d := &fbxscene.SkinDeformer{
		Clusters: []fbxscene.SkinCluster{
			{BoneID: 1, GeometryToBone: math.Identity()},
			{BoneID: 2, GeometryToBone: math.Identity()},
		},
		Vertices: make([]fbxscene.SkinVertex, 4),
	}
	for cp := 0; cp < 3; cp++ {
		d.Vertices[cp].Weights = []fbxscene.SkinWeight{{Cluster: 0, Weight: 1}}
	}
	d.Vertices[3].Weights = []fbxscene.SkinWeight{{Cluster: 0, Weight: 0.5}, {Cluster: 1, Weight: 0.5}}
	mesh.SkinDeformers = []*fbxscene.SkinDeformer{d}
	return mesh
}

func TestMeshBuilder_FailedPartitionSkipped(t *testing.T) {
	old := maxPartitionBones
	maxPartitionBones = 1
	defer func() { maxPartitionBones = old }()

	body := newNode(0, fbxscene.NoIndex, "Body")
	body.Mesh = 0
	prop := newNode(3, fbxscene.NoIndex, "Prop")
	prop.Mesh = 1
	propMesh := newMesh(quadPositions()[:3], []uint32{0, 1, 2})
	propMesh.Name = "Prop"
	propMesh.Materials = []int{0}

	src := evaluated(t, &fbxscene.Scene{
		Nodes: []*fbxscene.Node{
			body,
			newNode(1, 0, "Hip"),
			newNode(2, 1, "Knee"),
			prop,
		},
		Meshes:    []*fbxscene.Mesh{twoBoneQuad(), propMesh},
		Materials: []*fbxscene.Material{{Name: "A"}, {Name: "B"}},
	})

	opts, logs := observed()
	out, err := Flatten(src, opts)
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	// The slot 1 partition needs a second bone and is dropped
	require.Equal(t, 2, out.MeshCount())
	assert.Equal(t, []int32{0}, out.Nodes[0].MeshIndices)
	assert.Equal(t, []int32{1}, out.Nodes[3].MeshIndices)
	assert.Equal(t, int32(0), out.Meshes[0].MaterialIndex)
	assert.Len(t, out.Meshes[0].Bones, 1)
	assert.Equal(t, "Prop", out.Meshes[1].Name)

	skipped := logs.FilterMessage("skipping partition").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, zapcore.WarnLevel, skipped[0].Level)
	assert.Equal(t, int64(1), skipped[0].ContextMap()["slot"])
	assert.Contains(t, skipped[0].ContextMap()["error"], ErrTooManyBones.Error())
}

func TestMeshBuilder_FirstDeformerOnly(t *testing.T) {
	mesh := newMesh(quadPositions()[:3], []uint32{0, 1, 2})
	mesh.Materials = []int{0}
	first := &fbxscene.SkinDeformer{
		Clusters: []fbxscene.SkinCluster{{BoneID: 2, GeometryToBone: math.Identity()}},
		Vertices: make([]fbxscene.SkinVertex, 3),
	}
	second := &fbxscene.SkinDeformer{
		Clusters: []fbxscene.SkinCluster{{BoneID: 1, GeometryToBone: math.Translate(1, 0, 0)}},
		Vertices: make([]fbxscene.SkinVertex, 3),
	}
	for cp := 0; cp < 3; cp++ {
		first.Vertices[cp].Weights = []fbxscene.SkinWeight{{Cluster: 0, Weight: 0.25}}
		second.Vertices[cp].Weights = []fbxscene.SkinWeight{{Cluster: 0, Weight: 1}}
	}
	mesh.SkinDeformers = []*fbxscene.SkinDeformer{first, second}

	node := newNode(0, fbxscene.NoIndex, "Body")
	node.Mesh = 0
	src := evaluated(t, &fbxscene.Scene{
		Nodes:     []*fbxscene.Node{node, newNode(1, 0, "Hip"), newNode(2, 1, "Knee")},
		Meshes:    []*fbxscene.Mesh{mesh},
		Materials: []*fbxscene.Material{{Name: "Skin"}},
	})

	out, err := Flatten(src, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, out.Validate())
	require.Equal(t, 1, out.MeshCount())

	m := &out.Meshes[0]
	require.True(t, m.IsSkinned)
	require.Len(t, m.Bones, 1)
	assert.Equal(t, int32(2), m.Bones[0].NodeIndex)
	assert.Equal(t, math.Identity(), m.Bones[0].OffsetMatrix)
	for v := range m.BoneWeights {
		assert.Equal(t, math.Vec4{X: 1}, m.BoneWeights[v])
		assert.Equal(t, [4]uint16{}, m.BoneIndices[v])
	}
}

func TestMeshBuilder_UnboundFaceSlots(t *testing.T) {
	mesh := newMesh(quadPositions(), []uint32{0, 1, 2}, []uint32{0, 2, 3}, []uint32{1, 2, 3})
	mesh.FaceMaterial = []int32{0, 5, -1}
	mesh.Materials = []int{0}

	node := newNode(0, fbxscene.NoIndex, "Quad")
	node.Mesh = 0
	src := evaluated(t, &fbxscene.Scene{
		Nodes:     []*fbxscene.Node{node},
		Meshes:    []*fbxscene.Mesh{mesh},
		Materials: []*fbxscene.Material{{Name: "Mat"}},
	})

	opts, logs := observed()
	out, err := Flatten(src, opts)
	require.NoError(t, err)
	require.Equal(t, 1, out.MeshCount())
	assert.Equal(t, 3, out.Meshes[0].IndexCount())

	stray := logs.FilterMessage("skipping faces with unbound material slots").All()
	require.Len(t, stray, 1)
	assert.Equal(t, zapcore.WarnLevel, stray[0].Level)
	assert.Equal(t, int64(2), stray[0].ContextMap()["faces"])
}

func TestStraySlots(t *testing.T) {
	mesh := newMesh(quadPositions(), []uint32{0, 1, 2}, []uint32{0, 2, 3})
	assert.Zero(t, straySlots(mesh, 1))
	assert.Equal(t, 2, straySlots(mesh, 0))

	mesh.FaceMaterial = []int32{1, 2}
	assert.Equal(t, 1, straySlots(mesh, 2))
}

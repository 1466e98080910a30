// Package fbxscene defines the in-memory scene graph produced by an FBX
// parser: nodes with evaluated transforms, polygon meshes with indexed
// vertex attribute streams, skin deformers, materials and animation stacks.
//
// The flattening pipeline treats a Scene as read-only input.
package fbxscene

import (
	"fmt"

	"github.com/Faultbox/fbxflatten/pkg/math"
)

// Attribute channel limits of the parser model.
const (
	MaxUVSets    = 8
	MaxColorSets = 4
)

// NoIndex marks an absent index reference (no parent, no mesh).
const NoIndex = -1

// WrapMode is the texture addressing mode of a bound texture.
type WrapMode int32

const (
	WrapRepeat WrapMode = 0
	WrapClamp  WrapMode = 1
	WrapMirror WrapMode = 2
)

// String returns a human-readable wrap mode name.
func (w WrapMode) String() string {
	switch w {
	case WrapRepeat:
		return "Repeat"
	case WrapClamp:
		return "Clamp"
	case WrapMirror:
		return "Mirror"
	default:
		return fmt.Sprintf("Unknown(%d)", w)
	}
}

// Transform is a decomposed local transform.
type Transform struct {
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
}

// IdentityTransform returns a transform with unit scale and no rotation.
func IdentityTransform() Transform {
	return Transform{Rotation: math.QuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
}

// Matrix returns translation * rotation * scale.
func (t Transform) Matrix() math.Mat4 {
	return math.FromTRS(t.Translation, t.Rotation, t.Scale)
}

// Node is a scene graph node.
type Node struct {
	ID       int    // parser-assigned typed id
	ParentID int    // typed id of the parent, NoIndex for none
	IsRoot   bool   // the implicit scene root
	Name     string // may be empty

	LocalTransform Transform

	GeometryToNode  math.Mat4
	NodeToParent    math.Mat4
	NodeToWorld     math.Mat4
	GeometryToWorld math.Mat4

	Mesh      int   // index into Scene.Meshes, NoIndex if none
	Materials []int // per-instance material bindings (Scene.Materials indices)
}

// HasMesh reports whether the node references a mesh.
func (n *Node) HasMesh() bool {
	return n.Mesh != NoIndex
}

// Face is a polygon: a contiguous run of corners in the mesh index streams.
type Face struct {
	IndexBegin uint32
	NumIndices uint32
}

// VertexVec2 is an indexed per-corner attribute stream.
type VertexVec2 struct {
	Values  []math.Vec2
	Indices []uint32 // per corner, into Values
}

// Exists reports whether the stream is defined.
func (v *VertexVec2) Exists() bool {
	return len(v.Values) > 0 && len(v.Indices) > 0
}

// At returns the value for a corner.
func (v *VertexVec2) At(corner uint32) math.Vec2 {
	return v.Values[v.Indices[corner]]
}

// VertexVec3 is an indexed per-corner attribute stream.
type VertexVec3 struct {
	Values  []math.Vec3
	Indices []uint32
}

// Exists reports whether the stream is defined.
func (v *VertexVec3) Exists() bool {
	return len(v.Values) > 0 && len(v.Indices) > 0
}

// At returns the value for a corner.
func (v *VertexVec3) At(corner uint32) math.Vec3 {
	return v.Values[v.Indices[corner]]
}

// VertexVec4 is an indexed per-corner attribute stream.
type VertexVec4 struct {
	Values  []math.Vec4
	Indices []uint32
}

// Exists reports whether the stream is defined.
func (v *VertexVec4) Exists() bool {
	return len(v.Values) > 0 && len(v.Indices) > 0
}

// At returns the value for a corner.
func (v *VertexVec4) At(corner uint32) math.Vec4 {
	return v.Values[v.Indices[corner]]
}

// Mesh is a polygon mesh.
type Mesh struct {
	Name string

	Faces         []Face
	VertexIndices []uint32 // per corner, into the control points (Positions.Values)

	Positions  VertexVec3
	Normals    VertexVec3
	Tangents   VertexVec3
	Bitangents VertexVec3
	UVSets     []VertexVec2
	ColorSets  []VertexVec4

	FaceMaterial []int32 // per face, into Materials; empty means all faces use slot 0
	Materials    []int   // Scene.Materials indices

	SkinDeformers []*SkinDeformer
}

// NumCorners returns the number of polygon corners.
func (m *Mesh) NumCorners() int {
	return len(m.VertexIndices)
}

// MaterialSlot returns the material slot of a face.
func (m *Mesh) MaterialSlot(face int) int {
	if face < len(m.FaceMaterial) {
		return int(m.FaceMaterial[face])
	}
	return 0
}

// SkinWeight is one bone influence on a control point.
type SkinWeight struct {
	Cluster int // index into SkinDeformer.Clusters
	Weight  float32
}

// SkinVertex lists the influences of one control point, in source order.
type SkinVertex struct {
	Weights []SkinWeight
}

// SkinCluster binds one bone node to the mesh.
type SkinCluster struct {
	BoneID         int // typed id of the bone node, NoIndex if unbound
	GeometryToBone math.Mat4
}

// SkinDeformer binds a mesh's control points to bones.
type SkinDeformer struct {
	Clusters []SkinCluster
	Vertices []SkinVertex // per control point
}

// Texture is a file texture bound to a material map.
type Texture struct {
	Filename string
	WrapU    WrapMode
	WrapV    WrapMode
}

// MaterialMap is one semantic material input.
type MaterialMap struct {
	Value    math.Vec4
	HasValue bool
	Texture  *Texture
}

// Material holds the semantic maps of an FBX material.
type Material struct {
	Name string

	Diffuse            MaterialMap
	Specular           MaterialMap
	Reflection         MaterialMap
	Transparency       MaterialMap
	Emission           MaterialMap
	Ambient            MaterialMap
	NormalMap          MaterialMap
	Bump               MaterialMap
	Displacement       MaterialMap
	VectorDisplacement MaterialMap
}

func (m *Material) maps() []*MaterialMap {
	return []*MaterialMap{
		&m.Diffuse, &m.Specular, &m.Reflection, &m.Transparency, &m.Emission,
		&m.Ambient, &m.NormalMap, &m.Bump, &m.Displacement, &m.VectorDisplacement,
	}
}

// Vec3Key is a keyframe of a vector curve. Time is in seconds.
type Vec3Key struct {
	Time  float32
	Value math.Vec3
}

// QuatKey is a keyframe of a rotation curve. Time is in seconds.
type QuatKey struct {
	Time  float32
	Value math.Quat
}

// NodeCurves holds the animated local transform of one node.
type NodeCurves struct {
	NodeID      int
	Translation []Vec3Key
	Rotation    []QuatKey
	Scale       []Vec3Key
}

// AnimStack is a named animation take.
type AnimStack struct {
	Name     string
	Duration float32 // seconds
	Curves   []NodeCurves
}

// Scene is a parsed scene graph.
type Scene struct {
	Nodes      []*Node
	Meshes     []*Mesh
	Materials  []*Material
	AnimStacks []*AnimStack

	UnitMeters float32
}

// Release drops every buffer held by the scene. The scene must not be
// used afterwards.
func (s *Scene) Release() {
	if s == nil {
		return
	}
	s.Nodes = nil
	s.Meshes = nil
	s.Materials = nil
	s.AnimStacks = nil
}

// Package scene defines the flattened, engine-consumable scene: a node list
// with resolved transforms, per-material indexed meshes, per-mesh bone
// lists and a material table.
//
// Entities reference each other by index only: node to parent, node to
// mesh, mesh to material, vertex to bone slot and bone slot to node.
package scene

import (
	"fmt"

	"github.com/Faultbox/fbxflatten/pkg/math"
)

// Limits of the vertex layout.
const (
	MaxUVSets               = 8
	MaxColorSets            = 4
	MaxBoneInfluences       = 4
	NoParent          int32 = -1
)

// WrapMode is a texture addressing mode.
type WrapMode int32

const (
	WrapRepeat WrapMode = iota
	WrapClamp
	WrapMirror
)

// DefaultWrapMode is the wrap mode of channels without a texture.
const DefaultWrapMode = WrapClamp

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
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}

// Node is a flattened scene node.
type Node struct {
	ParentIndex    int32 // NoParent for roots
	Name           string
	LocalTransform Transform

	GeometryToNode  math.Mat4
	NodeToParent    math.Mat4
	NodeToWorld     math.Mat4
	GeometryToWorld math.Mat4
	NormalToWorld   math.Mat4

	MeshIndices []int32 // into Scene.Meshes
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentIndex == NoParent
}

// Bone maps a mesh-local bone slot to a node.
type Bone struct {
	NodeIndex    int32
	OffsetMatrix math.Mat4 // geometry to bone at bind time
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the center of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Mesh is one material partition of a source mesh. All present attribute
// arrays have VertexCount entries; absent ones are nil.
type Mesh struct {
	Name string

	Positions  []math.Vec3
	Normals    []math.Vec3
	Tangents   []math.Vec3
	Bitangents []math.Vec3
	UVs        [][]math.Vec2 // at most MaxUVSets sets
	Colors     [][]math.Vec4 // at most MaxColorSets sets

	BoneIndices [][4]uint16 // bone slots into Bones
	BoneWeights []math.Vec4

	Indices       []uint32
	MaterialIndex int32
	IsSkinned     bool
	Bones         []Bone

	Bounds Bounds
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// IndexCount returns the length of the index buffer.
func (m *Mesh) IndexCount() int {
	return len(m.Indices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// BoneCount returns the number of bone slots.
func (m *Mesh) BoneCount() int {
	return len(m.Bones)
}

// Channel is one semantic material input.
type Channel struct {
	Color       math.Vec4
	TexturePath string
	WrapU       WrapMode
	WrapV       WrapMode
}

// HasTexture reports whether a texture is bound.
func (c *Channel) HasTexture() bool {
	return c.TexturePath != ""
}

// ChannelKind names one of the fixed material channels.
type ChannelKind int

const (
	Diffuse ChannelKind = iota
	Specular
	Reflection
	Transparency
	Emission
	Ambient
	NormalMap
	Bump
	Displacement
	VectorDisplacement

	NumChannels
)

var channelNames = [NumChannels]string{
	"diffuse", "specular", "reflection", "transparency", "emission",
	"ambient", "normalMap", "bump", "displacement", "vectorDisplacement",
}

// String returns the channel name.
func (k ChannelKind) String() string {
	if k < 0 || k >= NumChannels {
		return fmt.Sprintf("ChannelKind(%d)", int(k))
	}
	return channelNames[k]
}

// Material holds the ten semantic channels of a source material.
type Material struct {
	Name string

	Diffuse            Channel
	Specular           Channel
	Reflection         Channel
	Transparency       Channel
	Emission           Channel
	Ambient            Channel
	NormalMap          Channel
	Bump               Channel
	Displacement       Channel
	VectorDisplacement Channel
}

// NewMaterial returns a material with every channel at its defaults.
func NewMaterial(name string) Material {
	m := Material{Name: name}
	for k := ChannelKind(0); k < NumChannels; k++ {
		c := m.Channel(k)
		c.WrapU = DefaultWrapMode
		c.WrapV = DefaultWrapMode
	}
	return m
}

// Channel returns a pointer to the channel of the given kind.
func (m *Material) Channel(k ChannelKind) *Channel {
	switch k {
	case Diffuse:
		return &m.Diffuse
	case Specular:
		return &m.Specular
	case Reflection:
		return &m.Reflection
	case Transparency:
		return &m.Transparency
	case Emission:
		return &m.Emission
	case Ambient:
		return &m.Ambient
	case NormalMap:
		return &m.NormalMap
	case Bump:
		return &m.Bump
	case Displacement:
		return &m.Displacement
	case VectorDisplacement:
		return &m.VectorDisplacement
	default:
		return nil
	}
}

// Vec3Key is a baked vector keyframe. Time is in seconds.
type Vec3Key struct {
	Time  float32
	Value math.Vec3
}

// QuatKey is a baked rotation keyframe. Time is in seconds.
type QuatKey struct {
	Time  float32
	Value math.Quat
}

// AnimationChannel holds the baked local transform keys of one node.
type AnimationChannel struct {
	NodeIndex int32
	Positions []Vec3Key
	Rotations []QuatKey
	Scales    []Vec3Key
}

// Animation is a baked animation take.
type Animation struct {
	Name      string
	Duration  float32 // seconds
	FrameRate float32
	Channels  []AnimationChannel
}

// Scene is the flattened output of a conversion.
type Scene struct {
	Nodes      []Node
	Meshes     []Mesh
	Materials  []Material
	Animations []Animation
}

// NodeCount returns the number of nodes.
func (s *Scene) NodeCount() int { return len(s.Nodes) }

// MeshCount returns the number of meshes.
func (s *Scene) MeshCount() int { return len(s.Meshes) }

// MaterialCount returns the number of materials.
func (s *Scene) MaterialCount() int { return len(s.Materials) }

// Release drops every array owned by the scene. A nil scene is ignored.
func (s *Scene) Release() {
	if s == nil {
		return
	}
	for i := range s.Meshes {
		s.Meshes[i] = Mesh{}
	}
	for i := range s.Nodes {
		s.Nodes[i].MeshIndices = nil
	}
	s.Nodes = nil
	s.Meshes = nil
	s.Materials = nil
	s.Animations = nil
}

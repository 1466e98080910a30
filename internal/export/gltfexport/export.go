// Package gltfexport writes a flattened scene as a glTF 2.0 document.
//
// Nodes keep their hierarchy and node-to-parent matrices. Every scene mesh
// becomes a single-primitive glTF mesh attached to the nodes that reference
// it; skinned meshes get a glTF skin built from their bone list.
package gltfexport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/internal/config"
	"github.com/Faultbox/fbxflatten/internal/logger"
	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// Export errors.
var (
	ErrNilScene      = errors.New("nil scene")
	ErrUnknownFormat = errors.New("unknown export format")
)

const generator = "fbxflatten"

// Build converts the scene into a glTF document held in memory.
func Build(s *scene.Scene) (*gltf.Document, error) {
	if s == nil {
		return nil, ErrNilScene
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	b := &builder{
		doc:       gltf.NewDocument(),
		src:       s,
		log:       logger.Named("gltfexport"),
		meshIndex: make([]int, len(s.Meshes)),
		skinIndex: make([]int, len(s.Meshes)),
	}
	b.doc.Asset.Generator = generator

	b.writeMaterials()
	b.writeMeshes()
	b.writeNodes()
	b.writeAnimations()
	return b.doc, nil
}

// WriteFile builds the scene and saves it to path. format is
// config.FormatGLB or config.FormatGLTF; an empty format is taken from
// the file extension.
func WriteFile(s *scene.Scene, path, format string) error {
	if format == "" {
		format = FormatForPath(path)
	}
	doc, err := Build(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	switch format {
	case config.FormatGLB:
		err = gltf.SaveBinary(doc, path)
	case config.FormatGLTF:
		doc.Buffers[0].EmbeddedResource()
		err = gltf.Save(doc, path)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// FormatForPath returns the export format implied by a file extension,
// defaulting to binary glTF.
func FormatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".gltf") {
		return config.FormatGLTF
	}
	return config.FormatGLB
}

// OutputPath returns the export file for a source file: the source base
// name with the format's extension, inside dir (or next to the source when
// dir is empty).
func OutputPath(source, dir, format string) string {
	base := filepath.Base(source)
	for {
		ext := filepath.Ext(base)
		if ext == "" {
			break
		}
		base = strings.TrimSuffix(base, ext)
	}
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, base+"."+format)
}

type builder struct {
	doc *gltf.Document
	src *scene.Scene
	log *zap.Logger

	meshIndex []int // scene mesh -> glTF mesh
	skinIndex []int // scene mesh -> glTF skin, -1 when unskinned
	samplers  map[[2]scene.WrapMode]int
	images    map[string]int
}

func (b *builder) writeMaterials() {
	for i := range b.src.Materials {
		m := &b.src.Materials[i]
		out := &gltf.Material{
			Name: m.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: colorFactor(m.Diffuse.Color),
				MetallicFactor:  gltf.Float(0),
			},
		}
		if m.Diffuse.HasTexture() {
			out.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: b.texture(&m.Diffuse)}
		}
		e := m.Emission.Color
		out.EmissiveFactor = [3]float64{float64(e.X), float64(e.Y), float64(e.Z)}
		if m.Emission.HasTexture() {
			out.EmissiveTexture = &gltf.TextureInfo{Index: b.texture(&m.Emission)}
		}
		if c := m.Diffuse.Color; c != (math.Vec4{}) && c.W < 1 {
			out.AlphaMode = gltf.AlphaBlend
		}
		b.doc.Materials = append(b.doc.Materials, out)
	}
}

// colorFactor maps an unset (all zero) color to glTF's default white.
func colorFactor(c math.Vec4) *[4]float64 {
	if c == (math.Vec4{}) {
		return &[4]float64{1, 1, 1, 1}
	}
	return &[4]float64{float64(c.X), float64(c.Y), float64(c.Z), float64(c.W)}
}

// texture returns the glTF texture for a channel, sharing images and
// samplers between channels that use the same file or wrap modes.
func (b *builder) texture(ch *scene.Channel) int {
	if b.samplers == nil {
		b.samplers = make(map[[2]scene.WrapMode]int)
		b.images = make(map[string]int)
	}

	wraps := [2]scene.WrapMode{ch.WrapU, ch.WrapV}
	sampler, ok := b.samplers[wraps]
	if !ok {
		sampler = len(b.doc.Samplers)
		b.doc.Samplers = append(b.doc.Samplers, &gltf.Sampler{
			WrapS: wrapping(ch.WrapU),
			WrapT: wrapping(ch.WrapV),
		})
		b.samplers[wraps] = sampler
	}

	uri := filepath.ToSlash(ch.TexturePath)
	image, ok := b.images[uri]
	if !ok {
		image = len(b.doc.Images)
		b.doc.Images = append(b.doc.Images, &gltf.Image{
			Name: filepath.Base(ch.TexturePath),
			URI:  uri,
		})
		b.images[uri] = image
	}

	b.doc.Textures = append(b.doc.Textures, &gltf.Texture{
		Sampler: gltf.Index(sampler),
		Source:  gltf.Index(image),
	})
	return len(b.doc.Textures) - 1
}

func wrapping(w scene.WrapMode) gltf.WrappingMode {
	switch w {
	case scene.WrapRepeat:
		return gltf.WrapRepeat
	case scene.WrapMirror:
		return gltf.WrapMirroredRepeat
	default:
		return gltf.WrapClampToEdge
	}
}

func (b *builder) writeMeshes() {
	for i := range b.src.Meshes {
		m := &b.src.Meshes[i]
		attrs := map[string]int{
			gltf.POSITION: modeler.WritePosition(b.doc, vec3s(m.Positions)),
			gltf.NORMAL:   modeler.WriteNormal(b.doc, normals(m.Normals)),
		}
		if len(m.Tangents) == len(m.Positions) && len(m.Bitangents) == len(m.Positions) {
			attrs[gltf.TANGENT] = modeler.WriteTangent(b.doc, tangents(m))
		}
		for set, uvs := range m.UVs {
			attrs[fmt.Sprintf("TEXCOORD_%d", set)] = modeler.WriteTextureCoord(b.doc, vec2s(uvs))
		}
		for set, colors := range m.Colors {
			attrs[fmt.Sprintf("COLOR_%d", set)] = modeler.WriteColor(b.doc, vec4s(colors))
		}

		b.skinIndex[i] = -1
		// glTF skins need at least one joint.
		if m.IsSkinned && len(m.Bones) > 0 {
			attrs[gltf.JOINTS_0] = modeler.WriteJoints(b.doc, m.BoneIndices)
			attrs[gltf.WEIGHTS_0] = modeler.WriteWeights(b.doc, vec4s(m.BoneWeights))
			b.skinIndex[i] = b.writeSkin(m)
		}

		prim := &gltf.Primitive{
			Attributes: attrs,
			Indices:    gltf.Index(modeler.WriteIndices(b.doc, m.Indices)),
			Material:   gltf.Index(int(m.MaterialIndex)),
		}
		b.meshIndex[i] = len(b.doc.Meshes)
		b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{
			Name:       m.Name,
			Primitives: []*gltf.Primitive{prim},
		})
	}
}

func (b *builder) writeSkin(m *scene.Mesh) int {
	joints := make([]int, len(m.Bones))
	inverseBind := make([][4][4]float32, len(m.Bones))
	for j, bone := range m.Bones {
		joints[j] = int(bone.NodeIndex)
		inverseBind[j] = columns(bone.OffsetMatrix)
	}
	b.doc.Skins = append(b.doc.Skins, &gltf.Skin{
		Name:                m.Name,
		Joints:              joints,
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(b.doc, gltf.TargetNone, inverseBind)),
	})
	return len(b.doc.Skins) - 1
}

// writeNodes mirrors the scene nodes one to one, so bone node indices stay
// valid as joint indices. Meshes hang off the node directly unless the node
// has a geometry offset or several meshes (one per material partition), in
// which case each mesh gets a child node carrying the geometry matrix.
func (b *builder) writeNodes() {
	nodes := b.src.Nodes
	b.doc.Nodes = make([]*gltf.Node, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		b.doc.Nodes[i] = &gltf.Node{
			Name:   n.Name,
			Matrix: n.NodeToParent.Float64(),
		}
	}

	for i := range nodes {
		n := &nodes[i]
		out := b.doc.Nodes[i]
		if n.IsRoot() {
			b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, i)
		} else {
			parent := b.doc.Nodes[n.ParentIndex]
			parent.Children = append(parent.Children, i)
		}

		split := len(n.MeshIndices) > 1 || n.GeometryToNode != math.Identity()
		for k, mi := range n.MeshIndices {
			target := out
			if split {
				target = &gltf.Node{
					Name:   fmt.Sprintf("%s_mesh%d", n.Name, k),
					Matrix: n.GeometryToNode.Float64(),
				}
				b.doc.Nodes = append(b.doc.Nodes, target)
				out.Children = append(out.Children, len(b.doc.Nodes)-1)
			}
			target.Mesh = gltf.Index(b.meshIndex[mi])
			if skin := b.skinIndex[mi]; skin >= 0 {
				target.Skin = gltf.Index(skin)
			}
		}
	}
	b.log.Debug("nodes written",
		zap.Int("scene_nodes", len(nodes)),
		zap.Int("gltf_nodes", len(b.doc.Nodes)))
}

func (b *builder) writeAnimations() {
	for _, a := range b.src.Animations {
		out := &gltf.Animation{Name: a.Name}
		for _, ch := range a.Channels {
			if len(ch.Positions) > 0 {
				times, values := vec3Keys(ch.Positions)
				b.addChannel(out, int(ch.NodeIndex), gltf.TRSTranslation, times, values)
			}
			if len(ch.Rotations) > 0 {
				times := make([]float32, len(ch.Rotations))
				values := make([][4]float32, len(ch.Rotations))
				for k, key := range ch.Rotations {
					times[k] = key.Time
					values[k] = key.Value.Vec4().Array()
				}
				b.addChannel(out, int(ch.NodeIndex), gltf.TRSRotation, times, values)
			}
			if len(ch.Scales) > 0 {
				times, values := vec3Keys(ch.Scales)
				b.addChannel(out, int(ch.NodeIndex), gltf.TRSScale, times, values)
			}
		}
		if len(out.Channels) == 0 {
			b.log.Debug("animation has no channels", zap.String("animation", a.Name))
			continue
		}
		b.doc.Animations = append(b.doc.Animations, out)
	}
}

func (b *builder) addChannel(anim *gltf.Animation, node int, path gltf.TRSProperty, times []float32, values any) {
	sampler := &gltf.AnimationSampler{
		Input:         modeler.WriteAccessor(b.doc, gltf.TargetNone, times),
		Output:        modeler.WriteAccessor(b.doc, gltf.TargetNone, values),
		Interpolation: gltf.InterpolationLinear,
	}
	// glTF requires min/max on sampler inputs.
	in := b.doc.Accessors[sampler.Input]
	in.Min = []float64{float64(times[0])}
	in.Max = []float64{float64(times[len(times)-1])}

	anim.Samplers = append(anim.Samplers, sampler)
	anim.Channels = append(anim.Channels, &gltf.AnimationChannel{
		Sampler: len(anim.Samplers) - 1,
		Target: gltf.AnimationChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

func vec3Keys(keys []scene.Vec3Key) ([]float32, [][3]float32) {
	times := make([]float32, len(keys))
	values := make([][3]float32, len(keys))
	for i, k := range keys {
		times[i] = k.Time
		values[i] = k.Value.Array()
	}
	return times, values
}

// columns converts a column-major matrix to the [column][row] layout the
// accessor writer expects.
func columns(m math.Mat4) [4][4]float32 {
	var out [4][4]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c][r] = m[c*4+r]
		}
	}
	return out
}

func vec2s(in []math.Vec2) [][2]float32 {
	out := make([][2]float32, len(in))
	for i, v := range in {
		out[i] = [2]float32{v.X, v.Y}
	}
	return out
}

func vec3s(in []math.Vec3) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		out[i] = v.Array()
	}
	return out
}

// normals writes unit normals; zero-length ones are replaced by +Z since
// glTF requires NORMAL to be normalized.
func normals(in []math.Vec3) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		if v.Length() == 0 {
			out[i] = [3]float32{0, 0, 1}
			continue
		}
		out[i] = v.Normalize().Array()
	}
	return out
}

func vec4s(in []math.Vec4) [][4]float32 {
	out := make([][4]float32, len(in))
	for i, v := range in {
		out[i] = v.Array()
	}
	return out
}

// tangents packs tangent and bitangent into glTF's xyz + handedness form.
func tangents(m *scene.Mesh) [][4]float32 {
	out := make([][4]float32, len(m.Tangents))
	for i, t := range m.Tangents {
		w := float32(1)
		if m.Normals[i].Cross(t).Dot(m.Bitangents[i]) < 0 {
			w = -1
		}
		if t.Length() > 0 {
			t = t.Normalize()
		} else {
			t = math.Vec3{X: 1}
		}
		out[i] = [4]float32{t.X, t.Y, t.Z, w}
	}
	return out
}

package fbxscene

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/fbxflatten/pkg/encoding"
	"github.com/Faultbox/fbxflatten/pkg/math"
)

// Scene document errors.
var (
	ErrInvalidDocument     = errors.New("invalid scene document")
	ErrUnsupportedVersion  = errors.New("unsupported scene document version")
	ErrIndexOutOfRange     = errors.New("scene document index out of range")
	ErrUnknownWrapMode     = errors.New("unknown texture wrap mode")
	ErrAttributeCountMatch = errors.New("attribute count does not match mesh")
)

// DocumentFormat is the format tag of a scene document.
const DocumentFormat = "fbxscene"

// DocumentVersion is the newest document version understood.
const DocumentVersion = 1

// LoadOptions control how a parser builds the scene.
type LoadOptions struct {
	// GenerateMissingNormals computes smooth normals for meshes without them.
	GenerateMissingNormals bool
	// TargetUnitMeters rescales the scene so one unit is this many meters.
	// Zero keeps the file's units.
	TargetUnitMeters float32
}

// DefaultLoadOptions returns the options used by the importer.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		GenerateMissingNormals: true,
		TargetUnitMeters:       1,
	}
}

// Parser turns an input stream into a scene graph.
type Parser interface {
	Parse(r io.Reader, opts LoadOptions) (*Scene, error)
}

// DocumentParser reads YAML scene documents: a textual dump of a parsed
// FBX scene graph, used for fixtures and for tooling that runs without a
// native FBX reader.
type DocumentParser struct{}

// Parse implements Parser.
func (DocumentParser) Parse(r io.Reader, opts LoadOptions) (*Scene, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return buildScene(&doc, opts)
}

// LoadFile parses a scene document from disk.
func LoadFile(path string, opts LoadOptions) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DocumentParser{}.Parse(f, opts)
}

// ParseWrapMode converts a document wrap mode name. Empty means repeat,
// the FBX default for file textures.
func ParseWrapMode(s string) (WrapMode, error) {
	switch strings.ToLower(s) {
	case "", "repeat":
		return WrapRepeat, nil
	case "clamp":
		return WrapClamp, nil
	case "mirror":
		return WrapMirror, nil
	default:
		return WrapRepeat, fmt.Errorf("%w: %q", ErrUnknownWrapMode, s)
	}
}

func buildScene(doc *document, opts LoadOptions) (*Scene, error) {
	if doc.Format != DocumentFormat {
		return nil, fmt.Errorf("%w: format %q", ErrInvalidDocument, doc.Format)
	}
	if doc.Version < 1 || doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	decode, err := encoding.NewNameDecoder(doc.Charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	scene := &Scene{UnitMeters: doc.UnitMeters}
	if scene.UnitMeters == 0 {
		scene.UnitMeters = 1
	}

	for i := range doc.Materials {
		mat, err := buildMaterial(&doc.Materials[i])
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		scene.Materials = append(scene.Materials, mat)
	}

	for i := range doc.Meshes {
		mesh, err := buildMesh(&doc.Meshes[i], len(scene.Materials))
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		if opts.GenerateMissingNormals && !mesh.Normals.Exists() {
			GenerateNormals(mesh)
		}
		scene.Meshes = append(scene.Meshes, mesh)
	}

	for i := range doc.Nodes {
		node, err := buildNode(&doc.Nodes[i], i, len(scene.Meshes), len(scene.Materials))
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		scene.Nodes = append(scene.Nodes, node)
	}

	for i := range doc.Animations {
		scene.AnimStacks = append(scene.AnimStacks, buildAnimStack(&doc.Animations[i]))
	}

	cleanNames(scene, decode)

	unitScale := float32(1)
	if opts.TargetUnitMeters > 0 {
		unitScale = scene.UnitMeters / opts.TargetUnitMeters
	}
	if err := evaluateTransforms(scene, doc.matrixOverrides(), unitScale); err != nil {
		return nil, err
	}
	if err := resolveSkinBindings(scene, doc); err != nil {
		return nil, err
	}
	if opts.TargetUnitMeters > 0 {
		scene.UnitMeters = opts.TargetUnitMeters
	}

	return scene, nil
}

// cleanNames strips FBX class decorations from object names, repairs
// legacy charsets and normalizes texture path separators.
func cleanNames(scene *Scene, decode encoding.NameDecoder) {
	name := func(s string) string { return decode(encoding.ObjectName(s)) }
	for _, n := range scene.Nodes {
		n.Name = name(n.Name)
	}
	for _, m := range scene.Meshes {
		m.Name = name(m.Name)
	}
	for _, m := range scene.Materials {
		m.Name = name(m.Name)
		for _, mm := range m.maps() {
			if mm.Texture != nil {
				mm.Texture.Filename = decode(encoding.NormalizePath(mm.Texture.Filename))
			}
		}
	}
	for _, a := range scene.AnimStacks {
		a.Name = name(a.Name)
	}
}

func buildNode(dn *docNode, index, meshCount, materialCount int) (*Node, error) {
	node := &Node{
		ID:             index,
		ParentID:       NoIndex,
		IsRoot:         dn.Root,
		Name:           dn.Name,
		LocalTransform: IdentityTransform(),
		Mesh:           NoIndex,
	}
	if dn.ID != nil {
		node.ID = *dn.ID
	}
	if dn.Parent != nil {
		node.ParentID = *dn.Parent
	}
	if dn.Translation != nil {
		node.LocalTransform.Translation = vec3(*dn.Translation)
	}
	if dn.Rotation != nil {
		node.LocalTransform.Rotation = quat(*dn.Rotation)
	}
	if dn.Scale != nil {
		node.LocalTransform.Scale = vec3(*dn.Scale)
	}
	if dn.Mesh != nil {
		if *dn.Mesh < 0 || *dn.Mesh >= meshCount {
			return nil, fmt.Errorf("%w: mesh %d", ErrIndexOutOfRange, *dn.Mesh)
		}
		node.Mesh = *dn.Mesh
	}
	for _, m := range dn.Materials {
		if m < 0 || m >= materialCount {
			return nil, fmt.Errorf("%w: material %d", ErrIndexOutOfRange, m)
		}
	}
	node.Materials = append([]int(nil), dn.Materials...)
	return node, nil
}

func buildMesh(dm *docMesh, materialCount int) (*Mesh, error) {
	mesh := &Mesh{Name: dm.Name}

	positions := make([]math.Vec3, len(dm.Positions))
	for i, p := range dm.Positions {
		positions[i] = vec3(p)
	}

	for fi, face := range dm.Faces {
		mesh.Faces = append(mesh.Faces, Face{
			IndexBegin: uint32(len(mesh.VertexIndices)),
			NumIndices: uint32(len(face)),
		})
		for _, vi := range face {
			if int(vi) >= len(positions) {
				return nil, fmt.Errorf("%w: face %d vertex %d", ErrIndexOutOfRange, fi, vi)
			}
			mesh.VertexIndices = append(mesh.VertexIndices, vi)
		}
	}
	mesh.Positions = VertexVec3{Values: positions, Indices: mesh.VertexIndices}

	var err error
	if mesh.Normals, err = buildVec3Stream(dm.Normals, mesh.VertexIndices, "normals"); err != nil {
		return nil, err
	}
	if mesh.Tangents, err = buildVec3Stream(dm.Tangents, mesh.VertexIndices, "tangents"); err != nil {
		return nil, err
	}
	if mesh.Bitangents, err = buildVec3Stream(dm.Bitangents, mesh.VertexIndices, "bitangents"); err != nil {
		return nil, err
	}
	for i, set := range dm.UVSets {
		values := make([]math.Vec2, len(set.Values))
		for j, v := range set.Values {
			values[j] = math.Vec2{X: v[0], Y: v[1]}
		}
		indices, err := streamIndices(set.Indices, len(values), mesh.VertexIndices)
		if err != nil {
			return nil, fmt.Errorf("uv set %d: %w", i, err)
		}
		mesh.UVSets = append(mesh.UVSets, VertexVec2{Values: values, Indices: indices})
	}
	for i, set := range dm.ColorSets {
		values := make([]math.Vec4, len(set.Values))
		for j, v := range set.Values {
			values[j] = math.Vec4FromArray(v)
		}
		indices, err := streamIndices(set.Indices, len(values), mesh.VertexIndices)
		if err != nil {
			return nil, fmt.Errorf("color set %d: %w", i, err)
		}
		mesh.ColorSets = append(mesh.ColorSets, VertexVec4{Values: values, Indices: indices})
	}

	if len(dm.FaceMaterials) > 0 && len(dm.FaceMaterials) != len(dm.Faces) {
		return nil, fmt.Errorf("%w: %d face materials for %d faces", ErrAttributeCountMatch, len(dm.FaceMaterials), len(dm.Faces))
	}
	mesh.FaceMaterial = append([]int32(nil), dm.FaceMaterials...)
	for _, m := range dm.Materials {
		if m < 0 || m >= materialCount {
			return nil, fmt.Errorf("%w: material %d", ErrIndexOutOfRange, m)
		}
	}
	mesh.Materials = append([]int(nil), dm.Materials...)

	for si, ds := range dm.Skins {
		skin := &SkinDeformer{}
		for _, dc := range ds.Clusters {
			cluster := SkinCluster{BoneID: NoIndex, GeometryToBone: math.Identity()}
			if dc.Bone != nil {
				cluster.BoneID = *dc.Bone
			}
			if dc.GeometryToBone != nil {
				cluster.GeometryToBone = math.Mat4(*dc.GeometryToBone).Affine()
			}
			skin.Clusters = append(skin.Clusters, cluster)
		}
		if len(ds.Vertices) > len(positions) {
			return nil, fmt.Errorf("skin %d: %w: %d skin vertices for %d control points", si, ErrAttributeCountMatch, len(ds.Vertices), len(positions))
		}
		skin.Vertices = make([]SkinVertex, len(positions))
		for vi, weights := range ds.Vertices {
			for _, w := range weights {
				if w.Cluster < 0 || w.Cluster >= len(skin.Clusters) {
					return nil, fmt.Errorf("skin %d vertex %d: %w: cluster %d", si, vi, ErrIndexOutOfRange, w.Cluster)
				}
				skin.Vertices[vi].Weights = append(skin.Vertices[vi].Weights, SkinWeight{Cluster: w.Cluster, Weight: w.Weight})
			}
		}
		mesh.SkinDeformers = append(mesh.SkinDeformers, skin)
	}

	return mesh, nil
}

func buildVec3Stream(ds *docVec3Stream, corners []uint32, what string) (VertexVec3, error) {
	if ds == nil || len(ds.Values) == 0 {
		return VertexVec3{}, nil
	}
	values := make([]math.Vec3, len(ds.Values))
	for i, v := range ds.Values {
		values[i] = vec3(v)
	}
	indices, err := streamIndices(ds.Indices, len(values), corners)
	if err != nil {
		return VertexVec3{}, fmt.Errorf("%s: %w", what, err)
	}
	return VertexVec3{Values: values, Indices: indices}, nil
}

// streamIndices resolves the per-corner indices of an attribute stream.
// Explicit indices win; otherwise the values are taken as per-corner when
// their count matches the corners, or per control point.
func streamIndices(explicit []uint32, valueCount int, corners []uint32) ([]uint32, error) {
	switch {
	case len(explicit) > 0:
		if len(explicit) != len(corners) {
			return nil, fmt.Errorf("%w: %d indices for %d corners", ErrAttributeCountMatch, len(explicit), len(corners))
		}
		for _, ix := range explicit {
			if int(ix) >= valueCount {
				return nil, fmt.Errorf("%w: value %d", ErrIndexOutOfRange, ix)
			}
		}
		return append([]uint32(nil), explicit...), nil
	case valueCount == len(corners):
		indices := make([]uint32, len(corners))
		for i := range indices {
			indices[i] = uint32(i)
		}
		return indices, nil
	default:
		for _, vi := range corners {
			if int(vi) >= valueCount {
				return nil, fmt.Errorf("%w: %d values for %d corners", ErrAttributeCountMatch, valueCount, len(corners))
			}
		}
		return append([]uint32(nil), corners...), nil
	}
}

func buildMaterial(dm *docMaterial) (*Material, error) {
	mat := &Material{Name: dm.Name}
	maps := []struct {
		dst *MaterialMap
		src *docMap
	}{
		{&mat.Diffuse, dm.Diffuse},
		{&mat.Specular, dm.Specular},
		{&mat.Reflection, dm.Reflection},
		{&mat.Transparency, dm.Transparency},
		{&mat.Emission, dm.Emission},
		{&mat.Ambient, dm.Ambient},
		{&mat.NormalMap, dm.NormalMap},
		{&mat.Bump, dm.Bump},
		{&mat.Displacement, dm.Displacement},
		{&mat.VectorDisplacement, dm.VectorDisplacement},
	}
	for _, m := range maps {
		if m.src == nil {
			continue
		}
		if m.src.Value != nil {
			m.dst.Value = math.Vec4FromArray(*m.src.Value)
			m.dst.HasValue = true
		}
		if m.src.Texture != nil {
			wrapU, err := ParseWrapMode(m.src.Texture.WrapU)
			if err != nil {
				return nil, err
			}
			wrapV, err := ParseWrapMode(m.src.Texture.WrapV)
			if err != nil {
				return nil, err
			}
			m.dst.Texture = &Texture{Filename: m.src.Texture.Filename, WrapU: wrapU, WrapV: wrapV}
		}
	}
	return mat, nil
}

func buildAnimStack(da *docAnimation) *AnimStack {
	stack := &AnimStack{Name: da.Name, Duration: da.Duration}
	for _, dc := range da.Curves {
		curves := NodeCurves{NodeID: dc.Node}
		for _, k := range dc.Translation {
			curves.Translation = append(curves.Translation, Vec3Key{Time: k.Time, Value: vec3(k.vec3())})
		}
		for _, k := range dc.Rotation {
			curves.Rotation = append(curves.Rotation, QuatKey{Time: k.Time, Value: quat(k.vec4())})
		}
		for _, k := range dc.Scale {
			curves.Scale = append(curves.Scale, Vec3Key{Time: k.Time, Value: vec3(k.vec3())})
		}
		stack.Curves = append(stack.Curves, curves)
	}
	return stack
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func quat(a [4]float32) math.Quat {
	return math.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

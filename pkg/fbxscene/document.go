package fbxscene

// document is the YAML layout of a scene dump.
type document struct {
	Format     string         `yaml:"format"`
	Version    int            `yaml:"version"`
	Charset    string         `yaml:"charset"`
	UnitMeters float32        `yaml:"unit_meters"`
	Nodes      []docNode      `yaml:"nodes"`
	Meshes     []docMesh      `yaml:"meshes"`
	Materials  []docMaterial  `yaml:"materials"`
	Animations []docAnimation `yaml:"animations"`
}

type docNode struct {
	ID          *int        `yaml:"id"`
	Parent      *int        `yaml:"parent"`
	Root        bool        `yaml:"root"`
	Name        string      `yaml:"name"`
	Translation *[3]float32 `yaml:"translation"`
	Rotation    *[4]float32 `yaml:"rotation"`
	Scale       *[3]float32 `yaml:"scale"`
	Mesh        *int        `yaml:"mesh"`
	Materials   []int       `yaml:"materials"`

	GeometryToNode  *[16]float32 `yaml:"geometry_to_node"`
	NodeToParent    *[16]float32 `yaml:"node_to_parent"`
	NodeToWorld     *[16]float32 `yaml:"node_to_world"`
	GeometryToWorld *[16]float32 `yaml:"geometry_to_world"`
}

type docVec3Stream struct {
	Values  [][3]float32 `yaml:"values"`
	Indices []uint32     `yaml:"indices"`
}

type docVec2Stream struct {
	Values  [][2]float32 `yaml:"values"`
	Indices []uint32     `yaml:"indices"`
}

type docVec4Stream struct {
	Values  [][4]float32 `yaml:"values"`
	Indices []uint32     `yaml:"indices"`
}

type docWeight struct {
	Cluster int     `yaml:"cluster"`
	Weight  float32 `yaml:"weight"`
}

type docCluster struct {
	Bone           *int         `yaml:"bone"`
	GeometryToBone *[16]float32 `yaml:"geometry_to_bone"`
}

type docSkin struct {
	Clusters []docCluster  `yaml:"clusters"`
	Vertices [][]docWeight `yaml:"vertices"`
}

type docMesh struct {
	Name          string          `yaml:"name"`
	Positions     [][3]float32    `yaml:"positions"`
	Faces         [][]uint32      `yaml:"faces"`
	Normals       *docVec3Stream  `yaml:"normals"`
	Tangents      *docVec3Stream  `yaml:"tangents"`
	Bitangents    *docVec3Stream  `yaml:"bitangents"`
	UVSets        []docVec2Stream `yaml:"uv_sets"`
	ColorSets     []docVec4Stream `yaml:"color_sets"`
	FaceMaterials []int32         `yaml:"face_materials"`
	Materials     []int           `yaml:"materials"`
	Skins         []docSkin       `yaml:"skins"`
}

type docTexture struct {
	Filename string `yaml:"filename"`
	WrapU    string `yaml:"wrap_u"`
	WrapV    string `yaml:"wrap_v"`
}

type docMap struct {
	Value   *[4]float32 `yaml:"value"`
	Texture *docTexture `yaml:"texture"`
}

type docMaterial struct {
	Name               string  `yaml:"name"`
	Diffuse            *docMap `yaml:"diffuse"`
	Specular           *docMap `yaml:"specular"`
	Reflection         *docMap `yaml:"reflection"`
	Transparency       *docMap `yaml:"transparency"`
	Emission           *docMap `yaml:"emission"`
	Ambient            *docMap `yaml:"ambient"`
	NormalMap          *docMap `yaml:"normal_map"`
	Bump               *docMap `yaml:"bump"`
	Displacement       *docMap `yaml:"displacement"`
	VectorDisplacement *docMap `yaml:"vector_displacement"`
}

type docKey struct {
	Time  float32   `yaml:"time"`
	Value []float32 `yaml:"value"`
}

func (k docKey) vec3() [3]float32 {
	var v [3]float32
	copy(v[:], k.Value)
	return v
}

func (k docKey) vec4() [4]float32 {
	v := [4]float32{0, 0, 0, 1}
	copy(v[:], k.Value)
	return v
}

type docCurves struct {
	Node        int      `yaml:"node"`
	Translation []docKey `yaml:"translation"`
	Rotation    []docKey `yaml:"rotation"`
	Scale       []docKey `yaml:"scale"`
}

type docAnimation struct {
	Name     string      `yaml:"name"`
	Duration float32     `yaml:"duration"`
	Curves   []docCurves `yaml:"curves"`
}

// matrixOverrides collects the matrices given explicitly per node.
func (d *document) matrixOverrides() []nodeMatrices {
	out := make([]nodeMatrices, len(d.Nodes))
	for i, n := range d.Nodes {
		out[i] = nodeMatrices{
			geometryToNode:  n.GeometryToNode,
			nodeToParent:    n.NodeToParent,
			nodeToWorld:     n.NodeToWorld,
			geometryToWorld: n.GeometryToWorld,
		}
	}
	return out
}

package flatten

import (
	gomath "math"

	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// vertex is the interleaved attribute record of one triangle corner.
// Channels a partition does not use stay zero.
type vertex struct {
	position   math.Vec3
	normal     math.Vec3
	tangent    math.Vec3
	bitangent  math.Vec3
	uv         [scene.MaxUVSets]math.Vec2
	color      [scene.MaxColorSets]math.Vec4
	boneIndex  [scene.MaxBoneInfluences]uint16
	boneWeight math.Vec4
}

// keyWords is the number of 32-bit words in a vertex key.
const keyWords = 4*3 + scene.MaxUVSets*2 + scene.MaxColorSets*4 + scene.MaxBoneInfluences + 4

// vertexKey is the bit pattern of a vertex. Two corners collapse only when
// every channel is bit-identical.
type vertexKey [keyWords]uint32

func (v *vertex) key() vertexKey {
	var k vertexKey
	i := 0
	put := func(f float32) {
		k[i] = gomath.Float32bits(f)
		i++
	}
	for _, p := range [...]math.Vec3{v.position, v.normal, v.tangent, v.bitangent} {
		put(p.X)
		put(p.Y)
		put(p.Z)
	}
	for _, uv := range v.uv {
		put(uv.X)
		put(uv.Y)
	}
	for _, c := range v.color {
		put(c.X)
		put(c.Y)
		put(c.Z)
		put(c.W)
	}
	for _, b := range v.boneIndex {
		k[i] = uint32(b)
		i++
	}
	put(v.boneWeight.X)
	put(v.boneWeight.Y)
	put(v.boneWeight.Z)
	put(v.boneWeight.W)
	return k
}

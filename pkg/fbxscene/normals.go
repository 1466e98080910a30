package fbxscene

import "github.com/Faultbox/fbxflatten/pkg/math"

// GenerateNormals computes smooth per-control-point normals by summing the
// area-weighted normals of every triangle touching a control point.
// Control points on degenerate geometry get the +Y axis.
func GenerateNormals(mesh *Mesh) {
	positions := mesh.Positions.Values
	sums := make([]math.Vec3, len(positions))

	var tris []uint32
	for _, face := range mesh.Faces {
		tris = face.Triangulate(tris[:0])
		for i := 0; i+2 < len(tris); i += 3 {
			a := mesh.VertexIndices[tris[i]]
			b := mesh.VertexIndices[tris[i+1]]
			c := mesh.VertexIndices[tris[i+2]]

			// Unnormalized cross product weights by triangle area
			n := positions[b].Sub(positions[a]).Cross(positions[c].Sub(positions[a]))
			sums[a] = sums[a].Add(n)
			sums[b] = sums[b].Add(n)
			sums[c] = sums[c].Add(n)
		}
	}

	for i, s := range sums {
		if s.Length() < 1e-6 {
			sums[i] = math.Vec3{Y: 1}
			continue
		}
		sums[i] = s.Normalize()
	}

	mesh.Normals = VertexVec3{
		Values:  sums,
		Indices: append([]uint32(nil), mesh.VertexIndices...),
	}
}

package fbxscene

// NumTriangles returns the number of triangles the face decomposes into.
func (f Face) NumTriangles() int {
	if f.NumIndices < 3 {
		return 0
	}
	return int(f.NumIndices) - 2
}

// Triangulate appends the face's triangles to dst as corner indices,
// using a fan around the first corner. Faces with fewer than three
// corners (points, lines) produce nothing.
func (f Face) Triangulate(dst []uint32) []uint32 {
	if f.NumIndices < 3 {
		return dst
	}
	first := f.IndexBegin
	for i := uint32(1); i+1 < f.NumIndices; i++ {
		dst = append(dst, first, first+i, first+i+1)
	}
	return dst
}

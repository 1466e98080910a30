package flatten

import (
	"fmt"
	gomath "math"
)

// generateIndices compacts a triangle-list corner stream into unique
// vertices and an index buffer. Vertices keep the order of their first
// occurrence.
func generateIndices(stream []vertex) ([]vertex, []uint32, error) {
	if len(stream) == 0 {
		return nil, nil, fmt.Errorf("%w: empty corner stream", ErrIndexGeneration)
	}
	if len(stream)%3 != 0 {
		return nil, nil, fmt.Errorf("%w: %d corners is not a whole number of triangles", ErrIndexGeneration, len(stream))
	}
	if uint64(len(stream)) > gomath.MaxUint32 {
		return nil, nil, fatalf("generate indices", "%w: %d corners", ErrOutOfMemory, len(stream))
	}

	seen := make(map[vertexKey]uint32, len(stream))
	vertices := make([]vertex, 0, len(stream))
	indices := make([]uint32, len(stream))

	for i := range stream {
		k := stream[i].key()
		ix, ok := seen[k]
		if !ok {
			ix = uint32(len(vertices))
			seen[k] = ix
			vertices = append(vertices, stream[i])
		}
		indices[i] = ix
	}

	return vertices, indices, nil
}

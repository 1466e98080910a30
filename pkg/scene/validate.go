package scene

import (
	"errors"
	"fmt"
	gomath "math"
)

// Validation errors.
var (
	ErrInvalidParent     = errors.New("invalid parent index")
	ErrInvalidMeshIndex  = errors.New("invalid mesh index")
	ErrIndexOutOfRange   = errors.New("vertex index out of range")
	ErrIndexCount        = errors.New("index count not a multiple of 3")
	ErrAttributeLength   = errors.New("attribute array length mismatch")
	ErrInvalidMaterial   = errors.New("invalid material index")
	ErrBoneSlot          = errors.New("bone slot out of range")
	ErrBoneNode          = errors.New("bone node index out of range")
	ErrWeightSum         = errors.New("bone weights do not sum to 0 or 1")
	ErrTooManyAttributes = errors.New("too many attribute sets")
)

// WeightTolerance is the allowed deviation of a weight sum from 1.
const WeightTolerance = 1e-4

// Validate checks the structural invariants of the scene and returns the
// first violation found.
func (s *Scene) Validate() error {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.ParentIndex != NoParent && (n.ParentIndex < 0 || int(n.ParentIndex) >= len(s.Nodes) || int(n.ParentIndex) == i) {
			return fmt.Errorf("%w: node %d (%s) parent %d", ErrInvalidParent, i, n.Name, n.ParentIndex)
		}
		for _, mi := range n.MeshIndices {
			if mi < 0 || int(mi) >= len(s.Meshes) {
				return fmt.Errorf("%w: node %d (%s) mesh %d", ErrInvalidMeshIndex, i, n.Name, mi)
			}
		}
	}

	for i := range s.Meshes {
		if err := s.validateMesh(&s.Meshes[i]); err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	return nil
}

func (s *Scene) validateMesh(m *Mesh) error {
	if m.MaterialIndex < 0 || int(m.MaterialIndex) >= len(s.Materials) {
		return fmt.Errorf("%w: %d", ErrInvalidMaterial, m.MaterialIndex)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	for slot, b := range m.Bones {
		if b.NodeIndex < 0 || int(b.NodeIndex) >= len(s.Nodes) {
			return fmt.Errorf("%w: slot %d node %d", ErrBoneNode, slot, b.NodeIndex)
		}
	}
	return nil
}

// Validate checks the mesh-local invariants: index bounds, attribute
// array lengths, bone slots and weight sums.
func (m *Mesh) Validate() error {
	n := m.VertexCount()

	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d", ErrIndexCount, len(m.Indices))
	}
	for i, ix := range m.Indices {
		if int(ix) >= n {
			return fmt.Errorf("%w: index %d is %d, vertex count %d", ErrIndexOutOfRange, i, ix, n)
		}
	}

	if len(m.UVs) > MaxUVSets {
		return fmt.Errorf("%w: %d uv sets", ErrTooManyAttributes, len(m.UVs))
	}
	if len(m.Colors) > MaxColorSets {
		return fmt.Errorf("%w: %d color sets", ErrTooManyAttributes, len(m.Colors))
	}

	check := func(name string, length int, optional bool) error {
		if optional && length == 0 {
			return nil
		}
		if length != n {
			return fmt.Errorf("%w: %s has %d entries, vertex count %d", ErrAttributeLength, name, length, n)
		}
		return nil
	}
	if err := check("normals", len(m.Normals), false); err != nil {
		return err
	}
	if err := check("tangents", len(m.Tangents), true); err != nil {
		return err
	}
	if err := check("bitangents", len(m.Bitangents), true); err != nil {
		return err
	}
	for i, uv := range m.UVs {
		if err := check(fmt.Sprintf("uv set %d", i), len(uv), false); err != nil {
			return err
		}
	}
	for i, c := range m.Colors {
		if err := check(fmt.Sprintf("color set %d", i), len(c), false); err != nil {
			return err
		}
	}

	if !m.IsSkinned {
		if len(m.BoneIndices) != 0 || len(m.BoneWeights) != 0 || len(m.Bones) != 0 {
			return fmt.Errorf("%w: skin data on an unskinned mesh", ErrAttributeLength)
		}
		return nil
	}
	if err := check("bone indices", len(m.BoneIndices), false); err != nil {
		return err
	}
	if err := check("bone weights", len(m.BoneWeights), false); err != nil {
		return err
	}

	for v := 0; v < n; v++ {
		w := m.BoneWeights[v]
		sum := w.Sum()
		if sum != 0 && gomath.Abs(float64(sum)-1) > WeightTolerance {
			return fmt.Errorf("%w: vertex %d sums to %g", ErrWeightSum, v, sum)
		}
		weights := w.Array()
		for k, slot := range m.BoneIndices[v] {
			if weights[k] == 0 {
				continue
			}
			if int(slot) >= len(m.Bones) {
				return fmt.Errorf("%w: vertex %d slot %d, bone count %d", ErrBoneSlot, v, slot, len(m.Bones))
			}
		}
	}
	return nil
}

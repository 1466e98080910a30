package scene

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Clone returns a deep copy of the scene. The copy shares no backing
// storage with s.
func (s *Scene) Clone() (*Scene, error) {
	dst := &Scene{}
	if err := copier.CopyWithOption(dst, s, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone scene: %w", err)
	}
	return dst, nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() (*Mesh, error) {
	dst := &Mesh{}
	if err := copier.CopyWithOption(dst, m, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone mesh %q: %w", m.Name, err)
	}
	return dst, nil
}

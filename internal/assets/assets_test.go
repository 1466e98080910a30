package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/fbxflatten/pkg/scene"
)

func countingLoader(calls *int) func(string) (*scene.Scene, error) {
	return func(path string) (*scene.Scene, error) {
		*calls++
		return &scene.Scene{
			Nodes:     []scene.Node{{ParentIndex: scene.NoParent, Name: filepath.Base(path)}},
			Materials: []scene.Material{scene.NewMaterial("Default")},
		}, nil
	}
}

func TestCache_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crate.fbxs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var calls int
	c := NewCache()

	first, hit, err := c.Load(path, countingLoader(&calls))
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.Load(path, countingLoader(&calls))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "crate.fbxs.yaml", second.Nodes[0].Name)

	// Callers own their copies.
	second.Nodes[0].Name = "changed"
	assert.Equal(t, "crate.fbxs.yaml", first.Nodes[0].Name)
	third, _, err := c.Load(path, countingLoader(&calls))
	require.NoError(t, err)
	assert.Equal(t, "crate.fbxs.yaml", third.Nodes[0].Name)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	_, hit, err = c.Load(path, countingLoader(&calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)

	hits, misses := c.Stats()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, misses)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	hits, misses = c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestCache_LoadErrors(t *testing.T) {
	c := NewCache()
	var calls int
	_, _, err := c.Load(filepath.Join(t.TempDir(), "missing.fbxs.yaml"), countingLoader(&calls))
	assert.Error(t, err)
	assert.Zero(t, calls)

	path := filepath.Join(t.TempDir(), "broken.fbxs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	boom := errors.New("boom")
	_, _, err = c.Load(path, func(string) (*scene.Scene, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestCache_TexturePresence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crate.fbxs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	texture := filepath.Join(dir, "crate.png")
	require.NoError(t, os.WriteFile(texture, []byte("png"), 0o644))

	var calls int
	load := func(string) (*scene.Scene, error) {
		calls++
		m := scene.NewMaterial("Crate")
		m.Diffuse.TexturePath = "crate.png"
		return &scene.Scene{Materials: []scene.Material{m}}, nil
	}

	c := NewCache()
	_, _, err := c.Load(path, load)
	require.NoError(t, err)
	_, hit, err := c.Load(path, load)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, os.Remove(texture))
	_, hit, err = c.Load(path, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)

	_, hit, err = c.Load(path, load)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCache_ChangedDuringLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crate.fbxs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var calls int
	load := func(p string) (*scene.Scene, error) {
		calls++
		if calls == 1 {
			require.NoError(t, os.WriteFile(p, []byte("v2"), 0o644))
		}
		return &scene.Scene{}, nil
	}

	c := NewCache()
	s, hit, err := c.Load(path, load)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.False(t, hit)
	assert.Zero(t, c.Len())

	_, hit, err = c.Load(path, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, c.Len())
}

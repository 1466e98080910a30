// Package assets caches flattened scenes by source file content.
package assets

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/internal/logger"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

type entry struct {
	digest   [sha256.Size]byte
	textures map[string]bool // texture path -> present on disk
	scene    *scene.Scene
}

// Cache keeps the last successfully flattened scene of each source file
// together with a digest of the bytes it was built from and the presence
// of the textures it references.
type Cache struct {
	entries map[string]entry
	mu      sync.Mutex
	log     *zap.Logger

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		log:     logger.Named("assets"),
	}
}

// Load returns the scene for path. When the file content and the presence
// of its textures match the cached entry a deep copy of the cached scene
// is returned and load is not called; otherwise load runs and its result
// replaces the entry. A file that changes while load runs is not cached.
// The returned scene is owned by the caller. hit reports a cache hit.
func (c *Cache) Load(path string, load func(string) (*scene.Scene, error)) (s *scene.Scene, hit bool, err error) {
	digest, err := fileDigest(path)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok && e.digest == digest && maps.Equal(e.textures, texturePresence(e.scene, path)) {
		c.hits++
		s, err := e.scene.Clone()
		if err != nil {
			return nil, false, err
		}
		c.log.Debug("cache hit", zap.String("path", path))
		return s, true, nil
	}
	c.misses++

	s, err = load(path)
	if err != nil {
		return nil, false, err
	}

	after, err := fileDigest(path)
	if err != nil || after != digest {
		c.log.Debug("source changed during load, not cached", zap.String("path", path))
		if old, ok := c.entries[path]; ok {
			old.scene.Release()
			delete(c.entries, path)
		}
		return s, false, nil
	}

	cached, err := s.Clone()
	if err != nil {
		return nil, false, err
	}
	if old, ok := c.entries[path]; ok {
		old.scene.Release()
	}
	c.entries[path] = entry{digest: digest, textures: texturePresence(cached, path), scene: cached}
	return s, false, nil
}

func fileDigest(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("read %s: %w", path, err)
	}
	return sha256.Sum256(data), nil
}

// texturePresence reports which texture files of s exist, resolving
// relative paths against the directory of the source file.
func texturePresence(s *scene.Scene, source string) map[string]bool {
	dir := filepath.Dir(source)
	present := make(map[string]bool)
	for i := range s.Materials {
		m := &s.Materials[i]
		for k := scene.ChannelKind(0); k < scene.NumChannels; k++ {
			ch := m.Channel(k)
			if !ch.HasTexture() {
				continue
			}
			file := ch.TexturePath
			if _, seen := present[file]; seen {
				continue
			}
			if !filepath.IsAbs(file) {
				file = filepath.Join(dir, file)
			}
			_, err := os.Stat(file)
			present[ch.TexturePath] = err == nil
		}
	}
	return present
}

// Len returns the number of cached scenes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear releases every cached scene.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.scene.Release()
	}
	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

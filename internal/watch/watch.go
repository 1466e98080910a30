// Package watch re-imports a source file whenever it changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/internal/assets"
	"github.com/Faultbox/fbxflatten/internal/importer"
	"github.com/Faultbox/fbxflatten/internal/logger"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// ErrNoHandler is returned by Run when no handler is given.
var ErrNoHandler = errors.New("watch: nil handler")

// DefaultDebounce is used when the configured delay is not positive.
const DefaultDebounce = 200 * time.Millisecond

// Loader converts a source file into a flattened scene.
type Loader func(path string) (*scene.Scene, error)

// ImportLoader returns a Loader backed by importer.LoadScene.
func ImportLoader(opts importer.Options) Loader {
	return func(path string) (*scene.Scene, error) {
		return importer.LoadScene(path, opts)
	}
}

// Cached wraps load so unchanged file content is served from c instead of
// being imported again. Editors often emit several writes per save.
func Cached(c *assets.Cache, load Loader) Loader {
	return func(path string) (*scene.Scene, error) {
		s, _, err := c.Load(path, load)
		return s, err
	}
}

// Result is the outcome of one import. The handler owns Scene and must
// free it.
type Result struct {
	Path    string
	Scene   *scene.Scene
	Err     error
	Elapsed time.Duration
}

// Handler receives every import result, including the initial one.
type Handler func(Result)

// Watcher watches a single file.
type Watcher struct {
	path     string
	debounce time.Duration
	load     Loader
	log      *zap.Logger
}

// New creates a watcher for path. Changes arriving within debounce of each
// other trigger a single import.
func New(path string, debounce time.Duration, load Loader) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		load:     load,
		log:      logger.Named("watch"),
	}
}

// Run imports the file once, then again after every change, until ctx is
// done. The parent directory is watched rather than the file itself so
// editors that replace the file on save are followed.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	if handle == nil {
		return ErrNoHandler
	}
	path, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	w.log.Info("watching", zap.String("path", path), zap.Duration("debounce", w.debounce))

	handle(w.importOnce(path))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !relevant(event.Op) {
				continue
			}
			w.log.Debug("change", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			handle(w.importOnce(path))

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) importOnce(path string) Result {
	start := time.Now()
	s, err := w.load(path)
	res := Result{Path: path, Scene: s, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		w.log.Warn("import failed", zap.String("path", path), zap.Error(err))
	} else {
		w.log.Debug("imported", zap.String("path", path), zap.Duration("elapsed", res.Elapsed))
	}
	return res
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

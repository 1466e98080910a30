// Package importer is the entry point of a conversion: LoadScene parses a
// source file, flattens it and releases the parsed scene; FreeScene
// disposes of the result.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/internal/config"
	"github.com/Faultbox/fbxflatten/internal/flatten"
	"github.com/Faultbox/fbxflatten/internal/logger"
	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// ErrSceneLoadFailed is returned when the source could not be opened or
// parsed. No scene is returned with it.
var ErrSceneLoadFailed = errors.New("scene load failed")

// LoadError carries the parser diagnostic of a failed load.
type LoadError struct {
	Path       string
	Diagnostic string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrSceneLoadFailed, e.Path, e.Diagnostic)
}

// Unwrap matches both ErrSceneLoadFailed and the underlying cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrSceneLoadFailed, e.Err}
}

// Options control a whole import.
type Options struct {
	Load    fbxscene.LoadOptions
	Flatten flatten.Options

	// IgnoreMissingExternalFiles keeps loading when a texture file the
	// scene references does not exist next to the source.
	IgnoreMissingExternalFiles bool
}

// DefaultOptions returns the parser and flattening defaults.
func DefaultOptions() Options {
	return Options{
		Load:                       fbxscene.DefaultLoadOptions(),
		Flatten:                    flatten.DefaultOptions(),
		IgnoreMissingExternalFiles: true,
	}
}

// OptionsFromConfig builds import options from a loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Load: fbxscene.LoadOptions{
			GenerateMissingNormals: cfg.Import.GenerateMissingNormals,
			TargetUnitMeters:       cfg.Import.TargetUnitMeters,
		},
		Flatten:                    flatten.OptionsFromConfig(cfg.Flatten),
		IgnoreMissingExternalFiles: cfg.Import.IgnoreMissingExternalFiles,
	}
}

// LoadScene converts the file at path into a flattened scene. The parsed
// source scene is released before returning, whether flattening succeeded
// or not. Parser failures are logged and returned as a *LoadError.
func LoadScene(path string, opts Options) (*scene.Scene, error) {
	log := logger.Named("importer")

	src, err := parseFile(path, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			log.Error("failed to load scene",
				zap.String("path", path),
				zap.String("diagnostic", le.Diagnostic))
		}
		return nil, err
	}
	defer src.Release()

	if err := checkExternalFiles(src, path, opts.IgnoreMissingExternalFiles, log); err != nil {
		log.Error("failed to load scene", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	if opts.Flatten.Logger == nil {
		opts.Flatten.Logger = logger.Named("flatten").With(zap.String("source", filepath.Base(path)))
	}
	out, err := flatten.Flatten(src, opts.Flatten)
	if err != nil {
		log.Error("failed to flatten scene", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("flatten %s: %w", path, err)
	}

	log.Info("loaded scene",
		zap.String("path", path),
		zap.Int("nodes", out.NodeCount()),
		zap.Int("meshes", out.MeshCount()),
		zap.Int("materials", out.MaterialCount()))
	return out, nil
}

// FreeScene releases every array owned by s. A nil scene is ignored.
func FreeScene(s *scene.Scene) {
	s.Release()
}

func parseFile(path string, opts Options) (*fbxscene.Scene, error) {
	parser, ok := ParserFor(path)
	if !ok {
		return nil, &LoadError{
			Path:       path,
			Diagnostic: fmt.Sprintf("no parser registered for %q", filepath.Base(path)),
			Err:        ErrNoParser,
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Diagnostic: err.Error(), Err: err}
	}
	defer f.Close()

	src, err := parser.Parse(f, opts.Load)
	if err != nil {
		return nil, &LoadError{Path: path, Diagnostic: err.Error(), Err: err}
	}
	if src == nil {
		return nil, &LoadError{Path: path, Diagnostic: "parser returned no scene", Err: ErrNoScene}
	}
	return src, nil
}

// checkExternalFiles looks for the texture files a scene references,
// relative to the source file.
func checkExternalFiles(src *fbxscene.Scene, path string, ignoreMissing bool, log *zap.Logger) error {
	dir := filepath.Dir(path)
	seen := make(map[string]bool)

	for _, m := range src.Materials {
		for _, tex := range textures(m) {
			if tex.Filename == "" || seen[tex.Filename] {
				continue
			}
			seen[tex.Filename] = true

			file := tex.Filename
			if !filepath.IsAbs(file) {
				file = filepath.Join(dir, file)
			}
			if _, err := os.Stat(file); err == nil {
				continue
			}
			if ignoreMissing {
				log.Warn("missing external file", zap.String("material", m.Name), zap.String("file", tex.Filename))
				continue
			}
			return &LoadError{
				Path:       path,
				Diagnostic: fmt.Sprintf("missing external file %q", tex.Filename),
				Err:        ErrMissingExternalFile,
			}
		}
	}
	return nil
}

func textures(m *fbxscene.Material) []*fbxscene.Texture {
	var out []*fbxscene.Texture
	for _, mm := range []*fbxscene.MaterialMap{
		&m.Diffuse, &m.Specular, &m.Reflection, &m.Transparency, &m.Emission,
		&m.Ambient, &m.NormalMap, &m.Bump, &m.Displacement, &m.VectorDisplacement,
	} {
		if mm.Texture != nil {
			out = append(out, mm.Texture)
		}
	}
	return out
}

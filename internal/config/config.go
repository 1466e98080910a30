// Package config handles converter configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/fbxflatten/internal/logger"
)

// Export formats.
const (
	FormatGLB  = "glb"
	FormatGLTF = "gltf"
)

// Hard limits of the flattened vertex layout.
const (
	maxUVSets         = 8
	maxColorSets      = 4
	maxBoneInfluences = 4
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all converter settings.
type Config struct {
	Import  ImportConfig  `yaml:"import" toml:"import"`
	Flatten FlattenConfig `yaml:"flatten" toml:"flatten"`
	Export  ExportConfig  `yaml:"export" toml:"export"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ImportConfig holds options passed to the scene parser.
type ImportConfig struct {
	GenerateMissingNormals     bool    `yaml:"generate_missing_normals" toml:"generate_missing_normals"`
	TargetUnitMeters           float32 `yaml:"target_unit_meters" toml:"target_unit_meters"`
	IgnoreMissingExternalFiles bool    `yaml:"ignore_missing_external_files" toml:"ignore_missing_external_files"`
}

// FlattenConfig holds mesh building and baking settings.
type FlattenConfig struct {
	MaxUVSets         int     `yaml:"max_uv_sets" toml:"max_uv_sets"`
	MaxColorSets      int     `yaml:"max_color_sets" toml:"max_color_sets"`
	MaxBoneInfluences int     `yaml:"max_bone_influences" toml:"max_bone_influences"`
	FlipWinding       bool    `yaml:"flip_winding" toml:"flip_winding"`
	FlipUVs           bool    `yaml:"flip_uvs" toml:"flip_uvs"`
	BakeFrameRate     float32 `yaml:"bake_frame_rate" toml:"bake_frame_rate"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Format    string `yaml:"format" toml:"format"` // glb or gltf
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" toml:"debounce_ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			GenerateMissingNormals:     true,
			TargetUnitMeters:           1.0,
			IgnoreMissingExternalFiles: true,
		},
		Flatten: FlattenConfig{
			MaxUVSets:         maxUVSets,
			MaxColorSets:      maxColorSets,
			MaxBoneInfluences: maxBoneInfluences,
			BakeFrameRate:     30,
		},
		Export: ExportConfig{
			Format:    FormatGLB,
			OutputDir: "",
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate clamps the attribute limits to what the vertex layout can hold
// and rejects settings no conversion can run with.
func (c *Config) Validate() error {
	c.Flatten.MaxUVSets = clamp(c.Flatten.MaxUVSets, 0, maxUVSets)
	c.Flatten.MaxColorSets = clamp(c.Flatten.MaxColorSets, 0, maxColorSets)
	c.Flatten.MaxBoneInfluences = clamp(c.Flatten.MaxBoneInfluences, 0, maxBoneInfluences)

	if c.Flatten.BakeFrameRate <= 0 {
		return fmt.Errorf("%w: bake_frame_rate must be positive, got %g", ErrInvalidConfig, c.Flatten.BakeFrameRate)
	}
	if c.Import.TargetUnitMeters < 0 {
		return fmt.Errorf("%w: target_unit_meters must not be negative, got %g", ErrInvalidConfig, c.Import.TargetUnitMeters)
	}
	switch c.Export.Format {
	case FormatGLB, FormatGLTF:
	default:
		return fmt.Errorf("%w: export format %q", ErrInvalidConfig, c.Export.Format)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("%w: debounce_ms must not be negative", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

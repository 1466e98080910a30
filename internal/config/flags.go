package config

import "flag"

// Flags are the command-line overrides of a config file.
type Flags struct {
	config      *string
	debug       *bool
	logFile     *string
	format      *string
	outputDir   *string
	flipWinding *bool
	flipUVs     *bool
	frameRate   *float64
	noNormals   *bool
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:      fs.String("config", "", "Path to config file (.yaml or .toml)"),
		debug:       fs.Bool("debug", false, "Enable debug logging"),
		logFile:     fs.String("log-file", "", "Also write logs to this file"),
		format:      fs.String("format", "", "Export format: glb or gltf"),
		outputDir:   fs.String("out", "", "Output directory for exported files"),
		flipWinding: fs.Bool("flip-winding", false, "Reverse triangle winding order"),
		flipUVs:     fs.Bool("flip-uvs", false, "Flip texture V coordinates"),
		frameRate:   fs.Float64("fps", 0, "Animation bake frame rate"),
		noNormals:   fs.Bool("no-generate-normals", false, "Do not generate missing normals"),
	}
}

// configPath returns the explicit config path if provided via -config.
func (f *Flags) configPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	if *f.format != "" {
		cfg.Export.Format = *f.format
	}
	if *f.outputDir != "" {
		cfg.Export.OutputDir = *f.outputDir
	}
	if *f.flipWinding {
		cfg.Flatten.FlipWinding = true
	}
	if *f.flipUVs {
		cfg.Flatten.FlipUVs = true
	}
	if *f.frameRate > 0 {
		cfg.Flatten.BakeFrameRate = float32(*f.frameRate)
	}
	if *f.noNormals {
		cfg.Import.GenerateMissingNormals = false
	}
}

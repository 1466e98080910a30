package flatten

import (
	"go.uber.org/zap"

	"github.com/Faultbox/fbxflatten/internal/config"
	"github.com/Faultbox/fbxflatten/internal/logger"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// Options control a conversion.
type Options struct {
	MaxUVSets         int
	MaxColorSets      int
	MaxBoneInfluences int

	// FlipWinding reverses the corner order of every triangle.
	FlipWinding bool
	// FlipUVs maps every texture coordinate v to 1-v.
	FlipUVs bool

	// BakeFrameRate is the sampling rate of baked animations, in frames
	// per second.
	BakeFrameRate float32

	// Logger receives conversion diagnostics. Nil uses the global
	// logger named "flatten".
	Logger *zap.Logger
}

// DefaultOptions returns the full vertex layout and a 30 fps bake rate.
func DefaultOptions() Options {
	return Options{
		MaxUVSets:         scene.MaxUVSets,
		MaxColorSets:      scene.MaxColorSets,
		MaxBoneInfluences: scene.MaxBoneInfluences,
		BakeFrameRate:     30,
	}
}

// OptionsFromConfig builds options from the flatten config section.
func OptionsFromConfig(cfg config.FlattenConfig) Options {
	return Options{
		MaxUVSets:         cfg.MaxUVSets,
		MaxColorSets:      cfg.MaxColorSets,
		MaxBoneInfluences: cfg.MaxBoneInfluences,
		FlipWinding:       cfg.FlipWinding,
		FlipUVs:           cfg.FlipUVs,
		BakeFrameRate:     cfg.BakeFrameRate,
	}
}

// normalized clamps the limits to the vertex layout.
func (o Options) normalized() Options {
	o.MaxUVSets = clampInt(o.MaxUVSets, 0, scene.MaxUVSets)
	o.MaxColorSets = clampInt(o.MaxColorSets, 0, scene.MaxColorSets)
	o.MaxBoneInfluences = clampInt(o.MaxBoneInfluences, 0, scene.MaxBoneInfluences)
	if o.BakeFrameRate <= 0 {
		o.BakeFrameRate = 30
	}
	if o.Logger == nil {
		o.Logger = logger.Named("flatten")
	}
	return o
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

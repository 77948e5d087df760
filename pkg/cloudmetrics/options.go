package cloudmetrics

import (
	"context"
	"log/slog"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/pipeline/drawer"
	"github.com/askiada/go-cloudmetrics/pkg/pipeline/measure"
	"github.com/askiada/go-cloudmetrics/pkg/pipeline/model"
	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

// Cache keeps the output of mask stages between executions. Entries are scoped
// by source, as returned by scene.Scene.Source, so that two files sharing a
// scene id never share results.
type Cache interface {
	Get(ctx context.Context, source, sceneID, stageKey string) (*field.Field, bool, error)
	Put(ctx context.Context, source, sceneID, stageKey string, f *field.Field) error
	Clean(ctx context.Context) error
}

type executeConfig struct {
	workers   int
	cache     Cache
	clean     bool
	logger    *slog.Logger
	graphFile string
	measure   measure.Measure
	scenes    scene.Options
}

// ExecuteOption configures Execute.
type ExecuteOption func(cfg *executeConfig)

// WithWorkers sets how many scenes every stage processes at once. Values lower
// than 1 mean 1.
func WithWorkers(n int) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.workers = n
	}
}

// WithCache reuses the mask results stored in c and stores the new ones.
func WithCache(c Cache) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.cache = c
	}
}

// WithClean empties the cache before executing.
func WithClean() ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.clean = true
	}
}

func WithLogger(logger *slog.Logger) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.logger = logger
	}
}

// WithGraphFile draws the executed task graph to path in DOT format.
func WithGraphFile(path string) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.graphFile = path
	}
}

// WithMeasure records the timings of every step in msr.
func WithMeasure(msr measure.Measure) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.measure = msr
	}
}

// WithSceneOptions sets how source files are opened, for example the netCDF opener.
func WithSceneOptions(opts scene.Options) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.scenes = opts
	}
}

func newExecuteConfig(opts ...ExecuteOption) *executeConfig {
	cfg := &executeConfig{workers: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return cfg
}

func (cfg *executeConfig) pipelineOptions() []model.PipelineOption {
	opts := []model.PipelineOption{}
	msr := cfg.measure
	if msr == nil && cfg.graphFile != "" {
		msr = measure.NewDefaultMeasure()
	}
	if msr != nil {
		opts = append(opts, measure.PipelineMeasure(msr))
	}
	if cfg.graphFile != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.graphFile), msr))
	}

	return opts
}

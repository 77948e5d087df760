package cloudmetrics

import (
	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/masks"
	"github.com/askiada/go-cloudmetrics/pkg/metrics"
)

var (
	ErrNoSources         = errors.New("no source files given")
	ErrNilMask           = errors.New("mask function must be set")
	ErrNoMetrics         = errors.New("at least one metric must be given")
	ErrStageAfterMetrics = errors.New("no stage can follow compute metrics")
	ErrAlreadyTiled      = errors.New("pipeline is already tiled")
)

// Pipeline is an immutable, ordered list of stages applied to the scenes found
// in a set of source files. The zero value has no sources and fails to execute.
//
// A builder error is sticky: it is carried by every pipeline derived from the
// faulty one and returned by Err and Execute.
type Pipeline struct {
	sources  []string
	stages   []Stage
	registry *metrics.Registry
	err      error
}

// FindScenes starts a pipeline from source files. A source is a file path or a
// glob pattern such as "data/rico_*.nc".
func FindScenes(sources ...string) Pipeline {
	p := Pipeline{
		sources:  append([]string(nil), sources...),
		registry: metrics.Default(),
	}
	if len(sources) == 0 {
		p.err = ErrNoSources
	}

	return p
}

// WithRegistry returns a pipeline resolving metric names in reg. A nil registry
// means the default one.
func (p Pipeline) WithRegistry(reg *metrics.Registry) Pipeline {
	if reg == nil {
		reg = metrics.Default()
	}
	p.registry = reg
	if p.err == nil {
		for _, s := range p.stages {
			if s.kind == KindMetrics {
				p.err = reg.Check(s.metrics...)
			}
		}
	}

	return p
}

// with returns a copy of p with stage appended. The stage slice is always
// reallocated so that pipelines derived from the same base never share it.
func (p Pipeline) with(stage Stage, err error) Pipeline {
	if p.err != nil {
		return p
	}
	if err != nil {
		p.err = err

		return p
	}
	if n := len(p.stages); n > 0 && p.stages[n-1].kind == KindMetrics {
		p.err = errors.Wrap(ErrStageAfterMetrics, stage.Identifier())

		return p
	}

	stages := make([]Stage, len(p.stages), len(p.stages)+1)
	copy(stages, p.stages)
	p.stages = append(stages, stage)

	return p
}

// Mask adds a stage computing a cloud mask with fn. name identifies fn in stage
// identifiers and params are passed to every call.
func (p Pipeline) Mask(name string, fn masks.Func, params masks.Params) Pipeline {
	if fn == nil {
		return p.with(Stage{}, errors.Wrap(ErrNilMask, name))
	}

	return p.with(Stage{
		kind:   KindMask,
		fnName: name,
		params: copyParams(params),
		mask:   fn,
	}, nil)
}

// Tile adds a stage cutting every scene into square windows. The following
// stages run on every window separately.
func (p Pipeline) Tile(opts field.TileOptions) Pipeline {
	for _, s := range p.stages {
		if s.kind == KindTile {
			return p.with(Stage{}, ErrAlreadyTiled)
		}
	}
	opts, err := opts.Normalize()
	if err != nil {
		return p.with(Stage{}, errors.Wrap(err, "invalid tile stage"))
	}

	return p.with(Stage{
		kind:   KindTile,
		params: opts.Params(),
		tile:   opts,
	}, nil)
}

// ComputeMetrics adds the final stage, computing every metric in names on the
// mask produced by the previous stages.
func (p Pipeline) ComputeMetrics(names ...string) Pipeline {
	if len(names) == 0 {
		return p.with(Stage{}, ErrNoMetrics)
	}
	if p.err == nil {
		if err := p.metricRegistry().Check(names...); err != nil {
			return p.with(Stage{}, err)
		}
	}

	return p.with(Stage{
		kind:    KindMetrics,
		metrics: append([]string(nil), names...),
	}, nil)
}

func (p Pipeline) metricRegistry() *metrics.Registry {
	if p.registry == nil {
		return metrics.Default()
	}

	return p.registry
}

// Err returns the first error met while building the pipeline.
func (p Pipeline) Err() error {
	return p.err
}

// Sources returns the source files or patterns of the pipeline.
func (p Pipeline) Sources() []string {
	return append([]string(nil), p.sources...)
}

// Stages returns the stages of the pipeline in order.
func (p Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Identifiers returns the identifier of every stage in order.
func (p Pipeline) Identifiers() []string {
	res := make([]string, len(p.stages))
	for i, s := range p.stages {
		res[i] = s.Identifier()
	}

	return res
}

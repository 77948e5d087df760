package cloudmetrics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/field"
	"github.com/askiada/go-cloudmetrics/pkg/masks"
	"github.com/askiada/go-cloudmetrics/pkg/metrics"
	"github.com/askiada/go-cloudmetrics/pkg/pipeline"
	"github.com/askiada/go-cloudmetrics/pkg/pipeline/model"
	"github.com/askiada/go-cloudmetrics/pkg/scene"
)

var ErrNilField = errors.New("mask function returned no field")

const (
	stepFindScenes   = "find scenes"
	stepLoadScenes   = "load scenes"
	stepSplitMetrics = "split metrics"
	stepMergeMetrics = "merge metrics"
	stepCollect      = "collect"
)

// task is a scene, or one window of a scene, travelling through the stages.
type task struct {
	scene scene.Scene
	// source is set when a cache is configured.
	source string
	// key chains the identifiers of the stages applied so far.
	key   string
	tiled bool
	x, y  int
	field *field.Field
}

func (t task) name() string {
	if !t.tiled {
		return t.scene.ID
	}

	return fmt.Sprintf("%s[%d,%d]", t.scene.ID, t.x, t.y)
}

func (t task) next(stageKey string) string {
	if t.key == "" {
		return stageKey
	}

	return t.key + "/" + stageKey
}

type executor struct {
	cfg      *executeConfig
	logger   *slog.Logger
	registry *metrics.Registry
	catalog  *scene.Catalog
	result   *Result
}

// Execute runs the pipeline on every scene found in its sources. The first
// error cancels the remaining work and is returned.
func (p Pipeline) Execute(ctx context.Context, opts ...ExecuteOption) (*Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.sources) == 0 {
		return nil, ErrNoSources
	}
	cfg := newExecuteConfig(opts...)

	cat, err := scene.Find(ctx, cfg.scenes, p.sources...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to find scenes")
	}

	if cfg.clean && cfg.cache != nil {
		err = cfg.cache.Clean(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "unable to clean cache")
		}
		cfg.logger.Info("cache cleaned")
	}

	exec := &executor{
		cfg:      cfg,
		logger:   cfg.logger,
		registry: p.metricRegistry(),
		catalog:  cat,
		result:   newResult(p.pipelineID(cat), cat),
	}

	start := time.Now()
	exec.logger.Info("executing pipeline",
		slog.String("pipeline_id", exec.result.ID),
		slog.Int("scenes", cat.Len()),
		slog.Int("stages", len(p.stages)),
		slog.Int("workers", cfg.workers),
	)

	err = exec.run(ctx, p.stages)
	if err != nil {
		exec.logger.Error("pipeline failed", slog.String("pipeline_id", exec.result.ID), slog.Any("error", err))

		return nil, err
	}
	exec.result.sort()

	exec.logger.Info("pipeline finished",
		slog.String("pipeline_id", exec.result.ID),
		slog.Int("records", len(exec.result.Records)),
		slog.Int("fields", len(exec.result.Fields)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return exec.result, nil
}

func (e *executor) run(ctx context.Context, stages []Stage) error {
	pipe, err := pipeline.New(ctx, e.cfg.pipelineOptions()...)
	if err != nil {
		return errors.Wrap(err, "unable to create pipeline")
	}

	current, err := e.addSources(pipe)
	if err != nil {
		return err
	}

	for i, st := range stages {
		name := fmt.Sprintf("%d %s", i+1, st.Identifier())
		switch st.kind {
		case KindMask:
			current, err = pipeline.AddStepOneToOne(pipe, name, current, e.mask(st), e.concurrency())
		case KindTile:
			current, err = pipeline.AddStepOneToMany(pipe, name, current, e.tile(st), e.concurrency())
		case KindMetrics:
			err = e.addMetrics(pipe, current, st)
			if err != nil {
				return err
			}

			return e.wait(pipe)
		}
		if err != nil {
			return errors.Wrapf(err, "unable to add stage %s", name)
		}
	}

	err = pipeline.AddSink(pipe, stepCollect, current, func(_ context.Context, t task) error {
		e.result.Fields[t.name()] = t.field

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to add sink")
	}

	return e.wait(pipe)
}

func (e *executor) wait(pipe *pipeline.Pipeline) error {
	err := pipe.Run()
	if err != nil {
		return errors.Wrap(err, "pipeline execution failed")
	}

	return nil
}

func (e *executor) concurrency() pipeline.StepOption[task] {
	return pipeline.StepConcurrency[task](e.cfg.workers)
}

func (e *executor) addSources(pipe *pipeline.Pipeline) (*model.Step[task], error) {
	scenes := e.catalog.Scenes()
	root, err := pipeline.AddRootStep(pipe, stepFindScenes, func(ctx context.Context, out chan<- task) error {
		for _, s := range scenes {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- task{scene: s}:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add root step")
	}

	loaded, err := pipeline.AddStepOneToOne(pipe, stepLoadScenes, root, func(ctx context.Context, t task) (task, error) {
		e.logger.Debug("loading scene", slog.String("scene_id", t.scene.ID), slog.String("path", t.scene.Path))
		f, err := e.catalog.Load(ctx, t.scene)
		if err != nil {
			return t, err
		}
		t.field = f
		if e.cfg.cache != nil {
			t.source, err = t.scene.Source()
			if err != nil {
				return t, err
			}
		}

		return t, nil
	}, e.concurrency())
	if err != nil {
		return nil, errors.Wrap(err, "unable to add load step")
	}

	return loaded, nil
}

func (e *executor) mask(st Stage) func(context.Context, task) (task, error) {
	stageKey := st.Identifier()

	return func(ctx context.Context, t task) (task, error) {
		key := t.next(stageKey)
		if e.cfg.cache != nil {
			f, ok, err := e.cfg.cache.Get(ctx, t.source, t.scene.ID, key)
			if err != nil {
				return t, errors.Wrapf(err, "unable to read cache for %s", t.name())
			}
			if ok {
				e.logger.Debug("cache hit", slog.String("scene_id", t.scene.ID), slog.String("stage", key))
				t.key, t.field = key, f

				return t, nil
			}
		}

		f, err := st.mask(ctx, t.field, masks.Params(copyParams(st.params)))
		if err != nil {
			return t, errors.Wrapf(err, "unable to apply %s to %s", st.fnName, t.name())
		}
		if f == nil {
			return t, errors.Wrapf(ErrNilField, "%s on %s", st.fnName, t.name())
		}
		if f.Attrs == nil {
			f.Attrs = make(map[string]string)
		}
		for k, v := range st.params {
			f.Attrs[k] = v
		}
		f.Attrs[field.AttrMaskFn] = st.fnName
		f.Attrs[field.AttrSceneID] = t.scene.ID

		if e.cfg.cache != nil {
			err = e.cfg.cache.Put(ctx, t.source, t.scene.ID, key, f)
			if err != nil {
				return t, errors.Wrapf(err, "unable to cache %s", t.name())
			}
		}
		t.key, t.field = key, f

		return t, nil
	}
}

func (e *executor) tile(st Stage) func(context.Context, task) ([]task, error) {
	stageKey := st.Identifier()

	return func(_ context.Context, t task) ([]task, error) {
		windows, err := field.Tile(t.field, st.tile)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to tile %s", t.name())
		}

		res := make([]task, len(windows))
		for i, w := range windows {
			res[i] = task{
				scene:  t.scene,
				source: t.source,
				key:    fmt.Sprintf("%s[%d,%d]", t.next(stageKey), w.X, w.Y),
				tiled:  true,
				x:      w.X,
				y:      w.Y,
				field:  w.Field,
			}
		}
		e.logger.Debug("scene tiled", slog.String("scene_id", t.scene.ID), slog.Int("windows", len(res)))

		return res, nil
	}
}

func (e *executor) addMetrics(pipe *pipeline.Pipeline, input *model.Step[task], st Stage) error {
	splitter, err := pipeline.AddSplitter(pipe, stepSplitMetrics, input, len(st.metrics), pipeline.SplitterBufferSize[task](e.cfg.workers))
	if err != nil {
		return errors.Wrap(err, "unable to add metrics splitter")
	}

	branches := make([]*model.Step[Record], 0, len(st.metrics))
	for _, name := range st.metrics {
		branch, ok := splitter.Get()
		if !ok {
			return errors.Errorf("no splitter branch left for %s", name)
		}
		out, err := pipeline.AddStepOneToOne(pipe, metricIdentifier(name), branch, e.metric(name),
			pipeline.StepConcurrency[Record](e.cfg.workers))
		if err != nil {
			return errors.Wrapf(err, "unable to add metric %s", name)
		}
		branches = append(branches, out)
	}

	merged, err := pipeline.AddMerger(pipe, stepMergeMetrics, branches...)
	if err != nil {
		return errors.Wrap(err, "unable to add metrics merger")
	}

	err = pipeline.AddSink(pipe, stepCollect, merged, func(_ context.Context, rec Record) error {
		e.result.Records = append(e.result.Records, rec)

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to add sink")
	}

	return nil
}

func (e *executor) metric(name string) func(context.Context, task) (Record, error) {
	return func(_ context.Context, t task) (Record, error) {
		v, err := e.registry.Compute(name, t.field)
		if err != nil {
			return Record{}, errors.Wrapf(err, "scene %s", t.name())
		}

		return Record{
			SceneID: t.scene.ID,
			Tiled:   t.tiled,
			TileX:   t.x,
			TileY:   t.y,
			Metric:  name,
			Value:   v,
		}, nil
	}
}

// pipelineID identifies the work the pipeline does on cat.
func (p Pipeline) pipelineID(cat *scene.Catalog) string {
	chain := strings.Join(p.Identifiers(), "/")
	metricNames := []string{}
	for _, st := range p.stages {
		if st.kind == KindMetrics {
			metricNames = st.metrics
		}
	}

	tasks := []string{}
	for _, s := range cat.Scenes() {
		base := s.ID + "/" + chain
		if len(metricNames) == 0 {
			tasks = append(tasks, base)

			continue
		}
		for _, name := range metricNames {
			tasks = append(tasks, base+"/"+metricIdentifier(name))
		}
	}

	return taskHash(tasks)
}

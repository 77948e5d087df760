package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time

	mu   sync.Mutex
	goFn []func(ctx context.Context)
	ran  bool
}

// New creates a new pipeline. Steps added to it only start when Run is called and
// stop as soon as ctx is cancelled.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	pipe := &Pipeline{
		ctx:       ctx,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

func (p *Pipeline) addGoFn(fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goFn = append(p.goFn, fn)
}

// waitForPipeline waits for results from all error channels. The first error
// cancels the run; the remaining channels are drained so every step goroutine
// has returned when waitForPipeline does.
func waitForPipeline(cancel context.CancelFunc, errs ...*errorChan) error {
	var first error
	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}

	return first
}

// Run starts the pipeline and waits for it to finish.
func (p *Pipeline) Run() error {
	p.mu.Lock()
	if p.ran {
		p.mu.Unlock()

		return ErrAlreadyRun
	}
	p.ran = true
	fns := p.goFn
	p.mu.Unlock()

	dCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	for _, fn := range fns {
		go fn(dCtx)
	}

	err := waitForPipeline(cancel, p.errcList.all()...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

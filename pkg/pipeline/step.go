package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-cloudmetrics/pkg/pipeline/model"
)

// outputHook is called after every entry pushed by a step.
type outputHook func(iterationDuration, computationDuration time.Duration) error

func sequentialOneToMany[I any, O any](ctx context.Context, goIdx int, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), hook outputHook) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			outs, err := oneToManyFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)
			for _, out := range outs {
				// check the context again so that running go routines stop feeding the
				// next step once the pipeline is cancelled
				select {
				case <-ctx.Done():
					return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
				case output.Output <- out:
				}
			}
			if hook != nil {
				err = hook(time.Since(start)-endFn, endFn)
				if err != nil {
					return errors.Wrapf(err, "go routine %d", goIdx)
				}
			}
		}
	}
}

func concurrentOneToMany[I any, O any](ctx context.Context, concurrent int, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), hook outputHook) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrent)
	// every consumer stops as soon as one of them fails
	for goIdx := range concurrent {
		errGrp.Go(func() error {
			return sequentialOneToMany(dCtx, goIdx, input, output, oneToManyFn, hook)
		})
	}

	return errGrp.Wait()
}

func runOneToMany[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), hook outputHook) error {
	concurrent := 1
	if output.Details != nil && output.Details.Concurrent > 1 {
		concurrent = output.Details.Concurrent
	}
	if concurrent == 1 {
		return sequentialOneToMany(ctx, 0, input, output, oneToManyFn, hook)
	}

	return concurrentOneToMany(ctx, concurrent, input, output, oneToManyFn, hook)
}

func runOneToOne[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error), hook outputHook) error {
	return runOneToMany(ctx, input, output, func(ctx context.Context, in I) ([]O, error) {
		out, err := oneToOneFn(ctx, in)
		if err != nil {
			return nil, err
		}

		return []O{out}, nil
	}, hook)
}

func prepareStep[I, O any](pipe *Pipeline, name string, input *model.Step[I], opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.NormalStepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range opts {
		opt(step)
	}
	if step.Details.Concurrent < 1 {
		step.Details.Concurrent = 1
	}
	step.Output = make(chan O, step.Details.BufferSize)

	parent := stepInfo(input)
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(parent, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare step function")
		}
	}

	return step, nil
}

func (p *Pipeline) stepHook(parent, step *model.StepInfo) outputHook {
	if len(p.opts) == 0 {
		return nil
	}

	return func(iterationDuration, computationDuration time.Duration) error {
		for _, opt := range p.opts {
			err := opt.OnStepOutput(parent, step, iterationDuration, computationDuration)
			if err != nil {
				return errors.Wrap(err, "unable to run step output function")
			}
		}

		return nil
	}
}

func addStep[I any, O any](pipe *Pipeline, input *model.Step[I], step *model.Step[O], stepToStepFn func(ctx context.Context, in *model.Step[I], out *model.Step[O], hook outputHook) error) {
	errC := make(chan error, 1)
	hook := pipe.stepHook(stepInfo(input), step.Details)

	pipe.addGoFn(func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()
		err := stepToStepFn(ctx, input, step, hook)
		if err != nil {
			errC <- err
		}
	})
	pipe.errcList.add(newErrorChan(step.Details.Name, errC))
}

// AddStepOneToOne adds a step that turns every input entry into exactly one output entry.
func AddStepOneToOne[I any, O any](pipe *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}
	addStep(pipe, input, step, func(ctx context.Context, in *model.Step[I], out *model.Step[O], hook outputHook) error {
		return runOneToOne(ctx, in, out, oneToOneFn, hook)
	})

	return step, nil
}

// AddStepOneToMany adds a step that turns every input entry into zero or more output entries.
func AddStepOneToMany[I any, O any](pipe *Pipeline, name string, input *model.Step[I], oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}
	addStep(pipe, input, step, func(ctx context.Context, in *model.Step[I], out *model.Step[O], hook outputHook) error {
		return runOneToMany(ctx, in, out, oneToManyFn, hook)
	})

	return step, nil
}

// stepInfo returns the details of a step, falling back to an anonymous
// descriptor for steps built by hand around an existing channel.
func stepInfo[O any](step *model.Step[O]) *model.StepInfo {
	if step.Details == nil {
		return &model.StepInfo{Type: model.RootStepType, Name: model.StartStep.Details.Name}
	}

	return step.Details
}

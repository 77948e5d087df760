package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-cloudmetrics/pkg/pipeline/model"
)

func prepareRootStep[O any](pipe *Pipeline, step *model.Step[O], opts ...StepOption[O]) error {
	for _, opt := range opts {
		opt(step)
	}
	for _, opt := range pipe.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare step function")
		}
	}

	return nil
}

// AddRootStep adds a step that feeds the pipeline. stepFn must stop sending once
// ctx is done; the output is closed when it returns.
func AddRootStep[O any](pipe *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
	}
	err := prepareRootStep(pipe, step, opts...)
	if err != nil {
		return nil, err
	}
	step.Output = make(chan O, step.Details.BufferSize)

	errC := make(chan error, 1)
	pipe.addGoFn(func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()
		err := stepFn(ctx, step.Output)
		if err != nil {
			errC <- err
		}
	})
	pipe.errcList.add(newErrorChan(name, errC))

	return step, nil
}

package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-sweep/pkg/pipeline/model"
)

// outputHook is called after a value has been pushed to the output of a step.
type outputHook func(iterationDuration, computationDuration time.Duration) error

func noopHook(time.Duration, time.Duration) error { return nil }

func stepHook(pipe *Pipeline, parent, step *model.StepInfo) outputHook {
	if len(pipe.opts) == 0 {
		return noopHook
	}

	return func(iterationDuration, computationDuration time.Duration) error {
		for _, opt := range pipe.opts {
			err := opt.OnStepOutput(parent, step, iterationDuration, computationDuration)
			if err != nil {
				return errors.Wrap(err, "unable to run on step output function")
			}
		}

		return nil
	}
}

func push[O any](ctx context.Context, output chan<- O, out O) error {
	// we check the context again to make sure all go routines currently running
	// stop to add new elements to the pipeline
	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- out:
		return nil
	}
}

func sequentialOneToManyFn[I, O any](ctx context.Context, goIdx int, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), onOutput outputHook) error {
	for {
		startIter := time.Now()
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
				err = push(ctx, output.Output, out)
				if err != nil {
					return errors.Wrapf(err, "go routine %d", goIdx)
				}
			}

			err = onOutput(time.Since(startIter)-endFn, endFn)
			if err != nil {
				return err
			}
		}
	}
}

func concurrentOneToManyFn[I, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), onOutput outputHook) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// starts many consumers concurrently
	// each consumer stops as soon as an error happens
	for goIdx := range output.Details.Concurrent {
		errGrp.Go(func() error {
			return sequentialOneToManyFn(dCtx, goIdx, input, output, oneToManyFn, onOutput)
		})
	}

	return errGrp.Wait()
}

func runOneToMany[I, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToManyFn func(context.Context, I) ([]O, error), onOutput outputHook) error {
	if output.Details.Concurrent < 1 {
		output.Details.Concurrent = 1
	}

	if output.Details.Concurrent == 1 {
		return sequentialOneToManyFn(ctx, 0, input, output, oneToManyFn, onOutput)
	}

	return concurrentOneToManyFn(ctx, input, output, oneToManyFn, onOutput)
}

func runOneToOne[I, O any](ctx context.Context, input *model.Step[I], output *model.Step[O], oneToOneFn func(context.Context, I) (O, error), onOutput outputHook) error {
	return runOneToMany(ctx, input, output, func(ctx context.Context, in I) ([]O, error) {
		out, err := oneToOneFn(ctx, in)
		if err != nil {
			return nil, err
		}

		return []O{out}, nil
	}, onOutput)
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
		Output: make(chan O),
	}
	for _, opt := range opts {
		opt(step)
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(input.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	return step, nil
}

func addStep[I, O any](pipe *Pipeline, input *model.Step[I], step *model.Step[O], stepToStepFn func(ctx context.Context, onOutput outputHook) error) {
	errC := make(chan error, 1)
	decoratedError := newErrorChan(step.Details.Name, errC)
	onOutput := stepHook(pipe, input.Details, step.Details)

	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := stepToStepFn(ctx, onOutput)
		if err != nil {
			errC <- err
		}
	})
	pipe.errcList.add(decoratedError)
}

// AddStepOneToOne adds a step producing exactly one output per input.
func AddStepOneToOne[I, O any](pipe *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}

	addStep(pipe, input, step, func(ctx context.Context, onOutput outputHook) error {
		return runOneToOne(ctx, input, step, oneToOneFn, onOutput)
	})

	return step, nil
}

// AddStepOneToMany adds a step producing any number of outputs per input.
// Outputs of one input are pushed in slice order.
func AddStepOneToMany[I, O any](pipe *Pipeline, name string, input *model.Step[I], oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption[O]) (*model.Step[O], error) {
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}

	addStep(pipe, input, step, func(ctx context.Context, onOutput outputHook) error {
		return runOneToMany(ctx, input, step, oneToManyFn, onOutput)
	})

	return step, nil
}

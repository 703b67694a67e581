package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-sweep/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context //nolint:containedctx // steps are started by Run.
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
}

// New creates a new pipeline. ctx bounds every step started by Run.
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

// waitForPipeline waits for results from all error channels.
// It cancels the pipeline on the first error and keeps draining until every step has returned.
func waitForPipeline(cancel context.CancelFunc, errs ...*errorChan) error {
	var first error

	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil && first == nil {
			first = err

			cancel()
		}
	}

	return first
}

// Run starts the pipeline and waits for it to finish.
func (p *Pipeline) Run() error {
	dCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	for _, fn := range p.goFn {
		go fn(dCtx)
	}

	// Wait for all steps to finish.
	err := waitForPipeline(cancel, p.errcList.list...)
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

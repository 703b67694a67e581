package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-sweep/pkg/pipeline/model"
)

// Splitter broadcasts every element of its input to Total branches.
type Splitter[I any] struct {
	mu            sync.Mutex
	currIdx       int
	mainStep      *model.Step[I]
	splittedSteps []*model.Step[I]
	bufferSize    int
	Total         int
}

// Get returns the next unclaimed branch. It returns false once all branches are claimed.
func (s *Splitter[I]) Get() (*model.Step[I], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currIdx >= len(s.splittedSteps) {
		return nil, false
	}

	step := s.splittedSteps[s.currIdx]
	s.currIdx++

	return step, true
}

func prepareSplitter[I any](pipe *Pipeline, input *model.Step[I], splitter *Splitter[I]) error {
	for _, opt := range pipe.opts {
		err := opt.PrepareSplitter(input.Details, splitter.mainStep.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run before splitter function")
		}
	}

	return nil
}

func forwardBranch[I any](ctx context.Context, buf <-chan I, branch *model.Step[I]) {
	defer close(branch.Output)

	for {
		select {
		case <-ctx.Done():
			return
		case elem, ok := <-buf:
			if !ok {
				return
			}

			select {
			case <-ctx.Done():
				return
			case branch.Output <- elem:
			}
		}
	}
}

func runSplitter[I any](ctx context.Context, pipe *Pipeline, input *model.Step[I], splitter *Splitter[I], buffers []chan I) error {
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			for _, buf := range buffers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case buf <- entry:
				}
			}

			endFn := time.Since(startFn)
			endIter := time.Since(startIter) - endFn

			for _, opt := range pipe.opts {
				err := opt.OnSplitterOutput(input.Details, splitter.mainStep.Details, endIter, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on splitter output function")
				}
			}
		}
	}
}

// AddSplitter adds a splitter with total branches. Each branch must be claimed with Get and consumed,
// otherwise the splitter blocks once the branch buffer is full.
func AddSplitter[I any](pipe *Pipeline, name string, input *model.Step[I], total int, opts ...SplitterOption[I]) (*Splitter[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if total <= 0 {
		return nil, ErrSplitterTotal
	}

	splitter := &Splitter[I]{
		Total: total,
		mainStep: &model.Step[I]{
			Details: &model.StepInfo{
				Type:       model.SplitterStepType,
				Name:       name,
				Concurrent: 1,
			},
		},
	}
	for _, opt := range opts {
		opt(splitter)
	}

	if splitter.bufferSize == 0 {
		splitter.bufferSize = 1
	}

	splitter.mainStep.Details.BufferSize = splitter.bufferSize

	err := prepareSplitter(pipe, input, splitter)
	if err != nil {
		return nil, err
	}

	buffers := make([]chan I, total)
	splitter.splittedSteps = make([]*model.Step[I], total)

	for i := range total {
		buffers[i] = make(chan I, splitter.bufferSize)
		splitter.splittedSteps[i] = &model.Step[I]{
			Details: splitter.mainStep.Details,
			Output:  make(chan I),
		}
	}

	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)

	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		wgrp := &sync.WaitGroup{}
		wgrp.Add(total)

		for i, buf := range buffers {
			go func() {
				defer wgrp.Done()
				forwardBranch(ctx, buf, splitter.splittedSteps[i])
			}()
		}

		err := runSplitter(ctx, pipe, input, splitter, buffers)

		for _, buf := range buffers {
			close(buf)
		}

		wgrp.Wait()

		if err != nil {
			errC <- err
		}

		close(errC)
	})
	pipe.errcList.add(decoratedError)

	return splitter, nil
}

package pipeline

import "github.com/askiada/go-sweep/pkg/pipeline/model"

// StepOption configures a step when it is added.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many goroutines consume the step input.
// Anything below 2 keeps the step sequential.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// SplitterOption configures a splitter when it is added.
type SplitterOption[I any] func(s *Splitter[I])

// SplitterBufferSize sets the per-branch buffer of a splitter.
func SplitterBufferSize[I any](bufferSize int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = bufferSize
	}
}

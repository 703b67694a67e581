package pipeline_test

import (
	"context"
)

func rangeRoot(total int) func(ctx context.Context, rootChan chan<- int) error {
	return func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	}
}

// collectSink appends every input to got. got must only be read once Run returned.
func collectSink[I any](got *[]I) func(ctx context.Context, in I) error {
	return func(_ context.Context, in I) error {
		*got = append(*got, in)

		return nil
	}
}

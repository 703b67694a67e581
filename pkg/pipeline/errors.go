package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("p must be set")
	ErrInputMustBeSet    = errors.New("input must be set")
	ErrSplitterTotal     = errors.New("total must be greater than 0")
)

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.list = append(ec.list, errChan)
}

type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors fans the error channels of every step into one, each error prefixed with the step name.
// The returned channel is closed once every step channel is closed, so it must be read until then.
func mergeErrors(cs ...*errorChan) <-chan error {
	out := make(chan error)
	wg := &sync.WaitGroup{}

	for _, ec := range cs {
		if ec.c == nil {
			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			for err := range ec.c {
				out <- errors.Wrap(err, ec.name)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

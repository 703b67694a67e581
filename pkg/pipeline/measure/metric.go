package measure

import (
	"sync"
	"time"
)

// TransportInfo is the time spent waiting on one input channel.
type TransportInfo struct {
	Elapsed time.Duration
	Total   int64
}

// DefaultMetric is the Metric used by DefaultMeasure.
type DefaultMetric struct {
	mu          sync.Mutex
	transports  map[string]*TransportInfo
	endDuration time.Duration
	stepElapsed time.Duration
	total       int64
	concurrent  int
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.stepElapsed += elapsed
}

func (mt *DefaultMetric) Count() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.endDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.endDuration
}

func (mt *DefaultMetric) AddTransportDuration(inputStepName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	info, ok := mt.transports[inputStepName]
	if !ok {
		info = &TransportInfo{}
		mt.transports[inputStepName] = info
	}

	info.Elapsed += elapsed
	info.Total++
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.total == 0 {
		return 0
	}

	return Round(mt.stepElapsed / time.Duration(mt.total))
}

// AVGTransportDuration returns the average wait per input channel, divided by the step concurrency.
// The stored totals are left untouched.
func (mt *DefaultMetric) AVGTransportDuration() map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[string]*TransportInfo, len(mt.transports))

	for name, info := range mt.transports {
		avg := &TransportInfo{Total: info.Total}
		if info.Total > 0 {
			avg.Elapsed = Round(info.Elapsed / time.Duration(info.Total) / time.Duration(mt.concurrent))
		}

		res[name] = avg
	}

	return res
}

var _ Metric = (*DefaultMetric)(nil)

// Round trims d to a precision that reads well next to its magnitude.
func Round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		return d.Round(time.Minute)
	case d > time.Minute:
		return d.Round(time.Second)
	case d > time.Second:
		return d.Round(time.Millisecond)
	case d > time.Millisecond:
		return d.Round(time.Microsecond)
	default:
		return d
	}
}

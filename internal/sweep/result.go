package sweep

import (
	"time"
)

// Result is the outcome of one job.
type Result struct {
	Started    time.Time
	Err        error
	Invocation Invocation
	Job        Job
	Duration   time.Duration
	ExitCode   int
	// Skipped is set for jobs not started because an earlier job failed in fail fast mode.
	Skipped bool
}

// Failed reports whether the job ran and did not exit cleanly.
func (r Result) Failed() bool {
	return !r.Skipped && (r.Err != nil || r.ExitCode != 0)
}

// Status is a one word outcome: ok, failed or skipped.
func (r Result) Status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Failed():
		return "failed"
	default:
		return "ok"
	}
}

// Summary aggregates the results of a sweep in job order.
type Summary struct {
	Results   []Result
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

func (s *Summary) add(res Result) {
	s.Results = append(s.Results, res)
	s.Total++

	switch {
	case res.Skipped:
		s.Skipped++
	case res.Failed():
		s.Failed++
	default:
		s.Succeeded++
	}
}

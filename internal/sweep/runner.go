package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/askiada/go-sweep/pkg/pipeline"
	"github.com/askiada/go-sweep/pkg/pipeline/model"
)

var (
	ErrExecutorRequired = errors.New("executor must be set")
	ErrJobFailed        = errors.New("job failed")
)

// Runner runs a sweep.
type Runner struct {
	cfg      Config
	env      []string
	executor Executor
	logger   *slog.Logger
	clock    clockwork.Clock
	stdout   io.Writer
	opts     []model.PipelineOption
	results  io.Writer
}

// Option configures a Runner.
type Option func(r *Runner)

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithClock sets the clock timing the jobs.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithStdout sets where status lines are printed, os.Stdout by default.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithPipelineOptions adds options to the pipeline driving the sweep.
func WithPipelineOptions(opts ...model.PipelineOption) Option {
	return func(r *Runner) {
		r.opts = append(r.opts, opts...)
	}
}

// WithResults writes one CSV record per job to w.
func WithResults(w io.Writer) Option {
	return func(r *Runner) {
		r.results = w
	}
}

// New validates cfg and creates a Runner.
func New(cfg Config, executor Executor, opts ...Option) (*Runner, error) {
	if executor == nil {
		return nil, ErrExecutorRequired
	}

	err := cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	env, err := cfg.environ()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		env:      env,
		executor: executor,
		logger:   slog.New(slog.DiscardHandler),
		clock:    clockwork.NewRealClock(),
		stdout:   os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func (r *Runner) invocation(job Job) Invocation {
	inv := r.cfg.Command(job)
	inv.Env = r.env

	return inv
}

// Plan returns the invocations Run performs, in order.
func (r *Runner) Plan() []Invocation {
	jobs := Expand(r.cfg.Models, r.cfg.Files)

	invs := make([]Invocation, len(jobs))
	for i, job := range jobs {
		invs[i] = r.invocation(job)
	}

	return invs
}

// run holds the state of a single Run. It is only touched by the run step, which is sequential.
type run struct {
	*Runner
	failed bool
}

func (r *run) execute(ctx context.Context, job Job) (Result, error) {
	res := Result{
		Job:        job,
		Invocation: r.invocation(job),
	}
	logger := r.logger.With(slog.Int("job", job.Index), slog.String("model", job.Model), slog.String("file", job.InputFile))

	if r.cfg.FailFast && r.failed {
		res.Skipped = true

		logger.Warn("sweep: job skipped after a failure")

		return res, nil
	}

	_, err := fmt.Fprintf(r.stdout, "Running with model: %s and file: %s\n", job.Model, job.InputFile)
	if err != nil {
		return res, errors.Wrap(err, "unable to print status")
	}

	logger.Debug("sweep: job started", slog.String("command", res.Invocation.String()))

	res.Started = r.clock.Now()
	res.ExitCode, res.Err = r.executor.Execute(ctx, res.Invocation)
	res.Duration = r.clock.Since(res.Started)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Wrapf(ctxErr, "job %d interrupted", job.Index)
	}

	logger = logger.With(slog.Int("exit_code", res.ExitCode), slog.Duration("duration", res.Duration))

	switch {
	case res.Err != nil:
		r.failed = true

		logger.Error("sweep: job could not run", slog.String("error", res.Err.Error()))
	case res.ExitCode != 0:
		r.failed = true

		logger.Warn("sweep: job failed")
	default:
		logger.Info("sweep: job finished")
	}

	return res, nil
}

// Run executes every job in order and returns their results. A failed job does not stop the sweep: its
// result is recorded and the next job starts. The error is non-nil when the sweep itself could not
// complete, or when FailFast is set and a job failed.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	state := &run{Runner: r}

	pipe, err := pipeline.New(ctx, r.opts...)
	if err != nil {
		return summary, errors.Wrap(err, "unable to create pipeline")
	}

	models, err := pipeline.AddRootStep(pipe, "models", func(ctx context.Context, rootChan chan<- string) error {
		for _, m := range r.cfg.Models {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- m:
			}
		}

		return nil
	})
	if err != nil {
		return summary, errors.Wrap(err, "unable to add models step")
	}

	next := 0

	jobs, err := pipeline.AddStepOneToMany(pipe, "jobs", models, func(_ context.Context, m string) ([]Job, error) {
		jobs := jobsFor(next, m, r.cfg.Files)
		next += len(jobs)

		return jobs, nil
	})
	if err != nil {
		return summary, errors.Wrap(err, "unable to add jobs step")
	}

	// A single consumer: the next job only starts once the current one has exited.
	results, err := pipeline.AddStepOneToOne(pipe, "run", jobs, state.execute, pipeline.StepConcurrency[Result](1))
	if err != nil {
		return summary, errors.Wrap(err, "unable to add run step")
	}

	err = r.addSinks(pipe, results, summary)
	if err != nil {
		return summary, err
	}

	err = pipe.Run()
	if err != nil {
		return summary, errors.Wrap(err, "sweep interrupted")
	}

	r.logger.Info("sweep: done",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped))

	if r.cfg.FailFast && summary.Failed > 0 {
		return summary, errors.Wrapf(ErrJobFailed, "%d of %d jobs failed", summary.Failed, summary.Total)
	}

	return summary, nil
}

func (r *Runner) addSinks(pipe *pipeline.Pipeline, results *model.Step[Result], summary *Summary) error {
	total := 1
	if r.results != nil {
		total++
	}

	splitter, err := pipeline.AddSplitter(pipe, "results", results, total)
	if err != nil {
		return errors.Wrap(err, "unable to add results splitter")
	}

	branch, _ := splitter.Get()

	err = pipeline.AddSink(pipe, "summary", branch, func(_ context.Context, res Result) error {
		summary.add(res)

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to add summary sink")
	}

	if r.results == nil {
		return nil
	}

	rec, err := newRecorder(r.results)
	if err != nil {
		return err
	}

	branch, _ = splitter.Get()

	err = pipeline.AddSink(pipe, "record", branch, func(_ context.Context, res Result) error {
		return rec.write(res)
	})
	if err != nil {
		return errors.Wrap(err, "unable to add record sink")
	}

	return nil
}

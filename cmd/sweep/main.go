package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/askiada/go-sweep/internal/sweep"
	"github.com/askiada/go-sweep/pkg/pipeline/drawer"
	"github.com/askiada/go-sweep/pkg/pipeline/measure"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	configFile     string
	models         []string
	files          []string
	interpreter    string
	script         string
	workDir        string
	envFile        string
	outputDir      string
	skipGeneration bool
	keepLogs       bool
	extraArgs      []string
	failFast       bool
	killGrace      time.Duration

	summary     bool
	resultsFile string
	graphFile   string
	verbose     bool
}

func (o *options) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.configFile, "config", "", "YAML file describing the sweep")
	fs.StringArrayVar(&o.models, "model", nil, "model to run, repeatable (default "+fmt.Sprint(sweep.DefaultModels)+")")
	fs.StringArrayVar(&o.files, "file", nil, "input file to run, repeatable (default "+fmt.Sprint(sweep.DefaultFiles)+")")
	fs.StringVar(&o.interpreter, "python", sweep.DefaultInterpreter, "interpreter running the script, empty to execute the script directly")
	fs.StringVar(&o.script, "script", sweep.DefaultScript, "program run for every job")
	fs.StringVar(&o.workDir, "workdir", "", "working directory of the jobs")
	fs.StringVar(&o.envFile, "env-file", "", "dotenv file added to the environment of the jobs")
	fs.StringVar(&o.outputDir, "output-dir", "", "forwarded to the script as --output-dir")
	fs.BoolVar(&o.skipGeneration, "skip-generation", false, "forwarded to the script as --skip-generation")
	fs.BoolVar(&o.keepLogs, "keep-logs", false, "forwarded to the script as --keep-logs")
	fs.StringArrayVar(&o.extraArgs, "arg", nil, "extra argument appended to every job, repeatable")
	fs.BoolVar(&o.failFast, "fail-fast", false, "skip the remaining jobs after a failure and exit 1")
	fs.DurationVar(&o.killGrace, "kill-grace", sweep.DefaultKillGrace, "time an interrupted job gets to exit before it is killed, 0 kills right away")
	fs.BoolVar(&o.summary, "summary", false, "print a summary table after the sweep")
	fs.StringVar(&o.resultsFile, "results-file", "", "write one CSV record per job to this file")
	fs.StringVar(&o.graphFile, "graph", "", "write the step graph with timings as a DOT file")
	fs.BoolVar(&o.verbose, "verbose", false, "verbose mode - show debug logs")
}

// config layers the flags explicitly set over the config file, itself over the defaults.
func (o *options) config(fs *flag.FlagSet) (sweep.Config, error) {
	cfg := sweep.DefaultConfig()

	if o.configFile != "" {
		var err error

		cfg, err = sweep.LoadConfig(o.configFile)
		if err != nil {
			return cfg, err
		}
	}

	overrides := map[string]func(){
		"model":           func() { cfg.Models = o.models },
		"file":            func() { cfg.Files = o.files },
		"python":          func() { cfg.Interpreter = o.interpreter },
		"script":          func() { cfg.Script = o.script },
		"workdir":         func() { cfg.WorkDir = o.workDir },
		"env-file":        func() { cfg.EnvFile = o.envFile },
		"output-dir":      func() { cfg.OutputDir = o.outputDir },
		"skip-generation": func() { cfg.SkipGeneration = o.skipGeneration },
		"keep-logs":       func() { cfg.KeepLogs = o.keepLogs },
		"arg":             func() { cfg.ExtraArgs = o.extraArgs },
		"fail-fast":       func() { cfg.FailFast = o.failFast },
		"kill-grace":      func() { cfg.KillGrace = o.killGrace },
	}
	fs.Visit(func(f *flag.Flag) {
		if override, ok := overrides[f.Name]; ok {
			override()
		}
	})

	err := cfg.Validate()
	if err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run pipeline.py for every model and input file",
		Long: `sweep runs pipeline.py once per (model, input file) pair, all files of a model
before the next model. Jobs run one at a time and a failed job does not stop
the sweep.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bindFlags(rootCmd.PersistentFlags())

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every job (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), cmd.Flags(), opts, stdout)
		},
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the command of every job without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return planSweep(cmd.Flags(), opts, stdout)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "sweep %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}

	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = runCmd.RunE
	rootCmd.AddCommand(runCmd, planCmd, versionCmd)

	return rootCmd
}

func planSweep(fs *flag.FlagSet, opts *options, stdout io.Writer) error {
	cfg, err := opts.config(fs)
	if err != nil {
		return err
	}

	runner, err := sweep.New(cfg, sweep.NewExecExecutor(cfg.KillGrace))
	if err != nil {
		return err
	}

	for _, inv := range runner.Plan() {
		_, err := fmt.Fprintln(stdout, inv.String())
		if err != nil {
			return errors.Wrap(err, "unable to print plan")
		}
	}

	return nil
}

func runSweep(ctx context.Context, fs *flag.FlagSet, opts *options, stdout io.Writer) error {
	log := newLogger(opts.verbose)

	cfg, err := opts.config(fs)
	if err != nil {
		return err
	}

	runnerOpts := []sweep.Option{sweep.WithLogger(log), sweep.WithStdout(stdout)}

	if opts.graphFile != "" {
		msr := measure.NewDefaultMeasure()
		runnerOpts = append(runnerOpts, sweep.WithPipelineOptions(
			measure.PipelineMeasure(msr),
			drawer.PipelineDrawer(drawer.NewDOTDrawer(opts.graphFile), msr),
		))
	}

	if opts.resultsFile != "" {
		file, err := os.Create(opts.resultsFile)
		if err != nil {
			return errors.Wrap(err, "unable to create results file")
		}
		defer file.Close()

		runnerOpts = append(runnerOpts, sweep.WithResults(file))
	}

	runner, err := sweep.New(cfg, sweep.NewExecExecutor(cfg.KillGrace), runnerOpts...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Debug("sweep: starting",
		slog.Int("models", len(cfg.Models)),
		slog.Int("files", len(cfg.Files)),
		slog.String("script", cfg.Script))

	summary, err := runner.Run(ctx)

	if opts.summary {
		sweep.WriteSummary(stdout, summary)
	}

	return err
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
			}

			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}

			return a
		},
	}))
}

func main() {
	err := newRootCmd(os.Stdout).ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

package sweep

import (
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInterpreter = "python"
	DefaultScript      = "pipeline.py"
	DefaultKillGrace   = 10 * time.Second
)

var (
	ErrScriptRequired = errors.New("script must be set")
	ErrKillGrace      = errors.New("kill grace must not be negative")
)

// DefaultModels and DefaultFiles are used when no list is configured.
var (
	DefaultModels = []string{"qwen-qwq-32b"}
	DefaultFiles  = []string{"reordered_factor_3_complexity4.csv"}
)

// Config describes a sweep.
type Config struct {
	Models []string `yaml:"models"`
	Files  []string `yaml:"files"`

	// Interpreter runs Script. Script is executed directly when Interpreter is empty.
	Interpreter string `yaml:"interpreter"`
	Script      string `yaml:"script"`
	WorkDir     string `yaml:"workdir"`
	// EnvFile is a dotenv file added to the inherited environment of every job.
	EnvFile string `yaml:"env_file"`

	// Flags forwarded to the script when set.
	OutputDir      string   `yaml:"output_dir"`
	SkipGeneration bool     `yaml:"skip_generation"`
	KeepLogs       bool     `yaml:"keep_logs"`
	ExtraArgs      []string `yaml:"extra_args"`

	FailFast bool `yaml:"fail_fast"`
	// KillGrace is how long an interrupted job may take to exit before it is killed. Zero kills right away.
	KillGrace time.Duration `yaml:"kill_grace"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Models:      append([]string(nil), DefaultModels...),
		Files:       append([]string(nil), DefaultFiles...),
		Interpreter: DefaultInterpreter,
		Script:      DefaultScript,
		KillGrace:   DefaultKillGrace,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys missing from the file keep their default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	content, err := os.ReadFile(path) //nolint:gosec // path comes from the operator.
	if err != nil {
		return cfg, errors.Wrapf(err, "unable to read config %s", path)
	}

	err = yaml.Unmarshal(content, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "unable to parse config %s", path)
	}

	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Script == "" {
		return ErrScriptRequired
	}

	if c.KillGrace < 0 {
		return ErrKillGrace
	}

	return nil
}

// Command returns the invocation of job. The model is passed as a single --model=<model> token and the
// file as the two tokens --input-file <file>, both unaltered.
func (c *Config) Command(job Job) Invocation {
	name := c.Script
	args := make([]string, 0, 8+len(c.ExtraArgs))

	if c.Interpreter != "" {
		name = c.Interpreter
		args = append(args, c.Script)
	}

	args = append(args, "--model="+job.Model, "--input-file", job.InputFile)

	if c.OutputDir != "" {
		args = append(args, "--output-dir", c.OutputDir)
	}

	if c.SkipGeneration {
		args = append(args, "--skip-generation")
	}

	if c.KeepLogs {
		args = append(args, "--keep-logs")
	}

	args = append(args, c.ExtraArgs...)

	return Invocation{
		Name: name,
		Args: args,
		Dir:  c.WorkDir,
	}
}

// environ returns the environment of the jobs. nil means the runner environment is inherited as is.
func (c *Config) environ() ([]string, error) {
	if c.EnvFile == "" {
		return nil, nil
	}

	vars, err := godotenv.Read(c.EnvFile)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read env file %s", c.EnvFile)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	// exec keeps the last value of a duplicated key, so the file wins over the inherited environment.
	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}

	return env, nil
}

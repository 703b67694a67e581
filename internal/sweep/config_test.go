package sweep_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-sweep/internal/sweep"
)

func TestCommand(t *testing.T) {
	t.Parallel()

	job := sweep.Job{Model: "qwen-qwq-32b", InputFile: "reordered_factor_3_complexity4.csv"}

	tcs := map[string]struct {
		edit         func(cfg *sweep.Config)
		job          sweep.Job
		expectedName string
		expectedArgs []string
	}{
		"default": {
			edit:         func(*sweep.Config) {},
			job:          job,
			expectedName: "python",
			expectedArgs: []string{"pipeline.py", "--model=qwen-qwq-32b", "--input-file", "reordered_factor_3_complexity4.csv"},
		},
		"script run directly": {
			edit: func(cfg *sweep.Config) {
				cfg.Interpreter = ""
				cfg.Script = "./pipeline.py"
			},
			job:          job,
			expectedName: "./pipeline.py",
			expectedArgs: []string{"--model=qwen-qwq-32b", "--input-file", "reordered_factor_3_complexity4.csv"},
		},
		"values not altered": {
			edit:         func(*sweep.Config) {},
			job:          sweep.Job{Model: "org/model name", InputFile: "data dir/my file.csv"},
			expectedName: "python",
			expectedArgs: []string{"pipeline.py", "--model=org/model name", "--input-file", "data dir/my file.csv"},
		},
		"forwarded flags": {
			edit: func(cfg *sweep.Config) {
				cfg.Interpreter = "python3"
				cfg.OutputDir = "out"
				cfg.SkipGeneration = true
				cfg.KeepLogs = true
				cfg.ExtraArgs = []string{"--seed", "42"}
			},
			job:          job,
			expectedName: "python3",
			expectedArgs: []string{
				"pipeline.py", "--model=qwen-qwq-32b", "--input-file", "reordered_factor_3_complexity4.csv",
				"--output-dir", "out", "--skip-generation", "--keep-logs", "--seed", "42",
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := sweep.DefaultConfig()
			tc.edit(&cfg)

			inv := cfg.Command(tc.job)
			assert.Equal(t, tc.expectedName, inv.Name)
			assert.Equal(t, tc.expectedArgs, inv.Args)
			assert.Nil(t, inv.Env)
		})
	}
}

func TestInvocationString(t *testing.T) {
	t.Parallel()

	inv := sweep.Invocation{Name: "python", Args: []string{"pipeline.py", "--model=a b", "--input-file", "it's.csv"}}
	assert.Equal(t, `python pipeline.py '--model=a b' --input-file it\'s.csv`, inv.String())
}

func TestDefaultConfigIsACopy(t *testing.T) {
	t.Parallel()

	cfg := sweep.DefaultConfig()
	cfg.Models[0] = "changed"

	assert.Equal(t, []string{"qwen-qwq-32b"}, sweep.DefaultModels)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		edit          func(cfg *sweep.Config)
		expectedErr   error
		expectedGrace time.Duration
	}{
		"default": {
			edit:          func(*sweep.Config) {},
			expectedGrace: sweep.DefaultKillGrace,
		},
		"zero grace kills right away": {
			edit:          func(cfg *sweep.Config) { cfg.KillGrace = 0 },
			expectedGrace: 0,
		},
		"custom grace": {
			edit:          func(cfg *sweep.Config) { cfg.KillGrace = time.Second },
			expectedGrace: time.Second,
		},
		"negative grace": {
			edit:        func(cfg *sweep.Config) { cfg.KillGrace = -time.Second },
			expectedErr: sweep.ErrKillGrace,
		},
		"no script": {
			edit:        func(cfg *sweep.Config) { cfg.Script = "" },
			expectedErr: sweep.ErrScriptRequired,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := sweep.DefaultConfig()
			tc.edit(&cfg)

			err := cfg.Validate()
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedGrace, cfg.KillGrace)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sweep.yaml")
	content := `
models: [m1, m2]
files:
  - a.csv
interpreter: python3
output_dir: out
keep_logs: true
extra_args: ["--seed", "1"]
fail_fast: true
kill_grace: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := sweep.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2"}, cfg.Models)
	assert.Equal(t, []string{"a.csv"}, cfg.Files)
	assert.Equal(t, "python3", cfg.Interpreter)
	assert.Equal(t, sweep.DefaultScript, cfg.Script)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.True(t, cfg.KeepLogs)
	assert.False(t, cfg.SkipGeneration)
	assert.Equal(t, []string{"--seed", "1"}, cfg.ExtraArgs)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, 30*time.Second, cfg.KillGrace)
}

func TestLoadConfigZeroGrace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	unset := filepath.Join(dir, "unset.yaml")
	require.NoError(t, os.WriteFile(unset, []byte("models: [m1]\n"), 0o600))

	cfg, err := sweep.LoadConfig(unset)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sweep.DefaultKillGrace, cfg.KillGrace)

	zero := filepath.Join(dir, "zero.yaml")
	require.NoError(t, os.WriteFile(zero, []byte("kill_grace: 0s\n"), 0o600))

	cfg, err = sweep.LoadConfig(zero)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.KillGrace)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := sweep.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: {"), 0o600))

	_, err = sweep.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse config")
}

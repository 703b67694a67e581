package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-sweep/internal/sweep"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(t.Context())

	return stdout.String(), err
}

func TestPlan(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args     []string
		expected string
	}{
		"default": {
			args:     []string{"plan"},
			expected: "python pipeline.py --model=qwen-qwq-32b --input-file reordered_factor_3_complexity4.csv\n",
		},
		"repeated flags": {
			args: []string{"plan", "--model", "m1", "--model", "m2", "--file", "a.csv"},
			expected: "python pipeline.py --model=m1 --input-file a.csv\n" +
				"python pipeline.py --model=m2 --input-file a.csv\n",
		},
		"forwarded flags": {
			args:     []string{"--python=python3", "plan", "--skip-generation", "--output-dir", "out", "--arg=--seed=1"},
			expected: "python3 pipeline.py --model=qwen-qwq-32b --input-file reordered_factor_3_complexity4.csv --output-dir out --skip-generation --seed=1\n",
		},
		"values kept whole": {
			args: []string{"plan", "--model", "org/m,v2", "--file", "data,v2.csv", "--file", `my "q".csv`},
			expected: "python pipeline.py --model=org/m,v2 --input-file data,v2.csv\n" +
				`python pipeline.py --model=org/m,v2 --input-file 'my "q".csv'` + "\n",
		},
		"script run directly": {
			args:     []string{"plan", "--python=", "--script", "./pipeline.py", "--file", "x.csv"},
			expected: "./pipeline.py --model=qwen-qwq-32b --input-file x.csv\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestPlanConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [m1, m2]\nfiles: [a.csv, b.csv]\nkeep_logs: true\n"), 0o600))

	out, err := execute(t, "plan", "--config", path, "--file", "z.csv")
	require.NoError(t, err)
	assert.Equal(t, "python pipeline.py --model=m1 --input-file z.csv --keep-logs\n"+
		"python pipeline.py --model=m2 --input-file z.csv --keep-logs\n", out)

	// an explicit flag wins over the file, even when set to its zero value.
	out, err = execute(t, "plan", "--config", path, "--keep-logs=false", "--model", "m3")
	require.NoError(t, err)
	assert.Equal(t, "python pipeline.py --model=m3 --input-file a.csv\n"+
		"python pipeline.py --model=m3 --input-file b.csv\n", out)
}

func TestConfigKillGrace(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args     []string
		expected time.Duration
	}{
		"default": {expected: sweep.DefaultKillGrace},
		"zero":    {args: []string{"--kill-grace", "0s"}, expected: 0},
		"custom":  {args: []string{"--kill-grace=3s"}, expected: 3 * time.Second},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := &options{}
			fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
			opts.bindFlags(fs)
			require.NoError(t, fs.Parse(tc.args))

			cfg, err := opts.config(fs)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cfg.KillGrace)
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "plan", "--script", "")
	require.ErrorIs(t, err, sweep.ErrScriptRequired)

	_, err = execute(t, "plan", "--kill-grace", "-1s")
	require.ErrorIs(t, err, sweep.ErrKillGrace)

	_, err = execute(t, "plan", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "plan", "extra")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sweep dev (commit: none, built: unknown)\n", out)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	path := filepath.Join(t.TempDir(), "pipeline.sh")
	require.NoError(t, os.WriteFile(path, []byte(body+"\n"), 0o600))

	return path
}

func TestRun(t *testing.T) {
	t.Parallel()

	script := writeScript(t, `[ "$1" = "--model=m2" ] && exit 4; exit 0`)
	dir := t.TempDir()
	results := filepath.Join(dir, "results.csv")
	graph := filepath.Join(dir, "graph.dot")

	out, err := execute(t, "--python", "sh", "--script", script,
		"--model", "m1", "--model", "m2", "--file", "a.csv",
		"--summary", "--results-file", results, "--graph", graph)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "Running with model: m1 and file: a.csv", lines[0])
	assert.Equal(t, "Running with model: m2 and file: a.csv", lines[1])
	assert.Contains(t, out, "failed")

	content, err := os.ReadFile(results)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(content), "\n"))

	content, err = os.ReadFile(graph)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"run" -> "results"`)
}

func TestRunFailFast(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "exit 1")

	out, err := execute(t, "run", "--python", "sh", "--script", script, "--file", "a.csv", "--file", "b.csv", "--fail-fast")
	require.ErrorIs(t, err, sweep.ErrJobFailed)
	assert.Equal(t, "Running with model: qwen-qwq-32b and file: a.csv\n", out)
}

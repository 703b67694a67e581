package sweep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnviron(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	env, err := cfg.environ()
	require.NoError(t, err)
	assert.Nil(t, env)

	cfg.EnvFile = filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(cfg.EnvFile, []byte("SWEEP_B=2\n# comment\nSWEEP_A=\"one\"\n"), 0o600))

	env, err = cfg.environ()
	require.NoError(t, err)
	require.Len(t, env, len(os.Environ())+2)
	assert.Equal(t, []string{"SWEEP_A=one", "SWEEP_B=2"}, env[len(env)-2:])

	cfg.EnvFile = filepath.Join(t.TempDir(), "missing.env")

	_, err = cfg.environ()
	require.Error(t, err)
}

package pid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/nvidiamon/internal/errors"
)

func TestWriteRemoveCycle(t *testing.T) {
	require.NoError(t, Write())

	// The file now names this live process, so a second instance is
	// refused.
	err := Write()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	require.NoError(t, Remove())
	require.NoError(t, Write())
	require.NoError(t, Remove())
}

func TestWriteReclaimsStalePidFile(t *testing.T) {
	path := filepath.Join(os.TempDir(), pidFile)
	// A pid above the kernel's pid_max can never be running.
	require.NoError(t, os.WriteFile(path, []byte("999999999"), 0o600))
	defer os.Remove(path)

	require.NoError(t, Write())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "999999999", string(data))

	require.NoError(t, Remove())
}

func TestRemoveWithoutFileIsNoop(t *testing.T) {
	require.NoError(t, Remove())
	require.NoError(t, Remove())
}

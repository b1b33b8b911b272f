package lock

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", ".triage.lock")

	l, err := Acquire(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	again, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireHeld(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on flock semantics")
	}
	path := filepath.Join(t.TempDir(), ".triage.lock")

	l, err := Acquire(path)
	require.NoError(t, err)
	defer l.Release()

	// flock locks belong to the open file description, so a second open in
	// the same process still conflicts
	_, err = Acquire(path)
	require.ErrorIs(t, err, ErrLocked)
}

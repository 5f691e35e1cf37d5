package filepos

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_RoundTripsThroughFlushAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")

	s, err := Open(path, nil)
	require.NoError(t, err)
	s.Update("/var/log/app.log", "app.log", 42, 1024)
	require.NoError(t, s.Flush())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	c, ok := reopened.Get("/var/log/app.log")
	require.True(t, ok)
	require.Equal(t, int64(1024), c.Offset)
	require.Equal(t, "app.log", c.Tag)
}

func TestStore_OpenWithNoCheckpointFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)
	_, ok := s.Get("/var/log/app.log")
	require.False(t, ok)
}

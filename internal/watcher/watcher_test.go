package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "patch.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	cfg := DefaultConfig(path)
	cfg.Debounce = 50 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Stop() })

	changes, err := w.Start()
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte(`{"edgeType":"step"}`), 0o600))
	}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signalled")
	}

	select {
	case <-changes:
		t.Fatal("burst signalled twice")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "patch.json")

	cfg := DefaultConfig(path)
	cfg.Debounce = 20 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Stop() })

	changes, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))

	select {
	case <-changes:
		t.Fatal("unrelated file signalled")
	case <-time.After(200 * time.Millisecond):
	}

	assert.Equal(t, filepath.Clean(path), w.path)
}

func TestStartOnMissingDirectory(t *testing.T) {
	t.Parallel()

	w, err := New(DefaultConfig(filepath.Join(t.TempDir(), "gone", "patch.json")))
	require.NoError(t, err)

	_, err = w.Start()
	require.Error(t, err)
	require.NoError(t, w.Stop())
}

package tapconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tap.toml")
	require.NoError(t, os.WriteFile(path, []byte("tap_enabled = true\n"), 0o644))

	reloaded := make(chan File, 4)
	w, err := NewWatcher(path, func(f File) { reloaded <- f }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("tap_enabled = false\n"), 0o644))

	select {
	case f := <-reloaded:
		require.NotNil(t, f.TapEnabled)
		assert.False(t, *f.TapEnabled)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tap.toml")
	require.NoError(t, os.WriteFile(path, []byte("tap_enabled = true\n"), 0o644))

	reloaded := make(chan File, 4)
	w, err := NewWatcher(path, func(f File) { reloaded <- f }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("watcher reloaded on an unrelated file change")
	case <-time.After(300 * time.Millisecond):
	}
}

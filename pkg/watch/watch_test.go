package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- File(ctx, path, Options{Debounce: 50 * time.Millisecond}, func() {
			calls.Add(1)
			changed <- struct{}{}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{'{', '}', byte('0' + i)}, 0o644))
	}
	// A sibling file never triggers a report.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestFileMissingDirectory(t *testing.T) {
	err := File(context.Background(), filepath.Join(t.TempDir(), "no", "such.json"), Options{}, func() {})
	require.Error(t, err)
}

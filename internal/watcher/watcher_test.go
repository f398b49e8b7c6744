package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changes struct {
	mu    sync.Mutex
	paths []string
}

func (c *changes) record(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *changes) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "oui.csv")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("v1"), 0o644))

	var got changes
	w := New([]string{watched}, got.record).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Watch(ctx) }()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte("v2"), 0o644))
	}

	assert.Eventually(t, func() bool { return len(got.list()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	// Rapid writes debounce into one call
	assert.Equal(t, []string{watched}, got.list())

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestWatcher_Replaced(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "mam.csv")
	require.NoError(t, os.WriteFile(watched, []byte("v1"), 0o644))

	var got changes
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = New([]string{watched}, got.record).WithDebounce(10 * time.Millisecond).Watch(ctx)
	}()
	time.Sleep(100 * time.Millisecond)

	tmp := filepath.Join(dir, ".mam.csv.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o644))
	require.NoError(t, os.Rename(tmp, watched))

	assert.Eventually(t, func() bool { return len(got.list()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchMultiple_NoFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone", "oui.csv")
	err := WatchMultiple(context.Background(), []string{missing}, func(string) {})
	assert.Error(t, err)
}

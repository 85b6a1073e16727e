package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "watcher closed early")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatcherInitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	writeFile(t, existing, "e")
	writeFile(t, filepath.Join(root, "skip.txt"), "s")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, existing, receive(t, events))

	created := filepath.Join(root, "new.pdf")
	require.NoError(t, os.WriteFile(created, []byte("n"), 0o644))
	assert.Equal(t, created, receive(t, events))

	cancel()
	for range events {
	}
}

func TestWatcherDebounceCoalesces(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, Debounce: 100 * time.Millisecond}, nil)
	require.NoError(t, err)

	path := filepath.Join(root, "burst.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("chunk")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	assert.Equal(t, path, receive(t, events))
	select {
	case p := <-events:
		t.Fatalf("unexpected second event for %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}

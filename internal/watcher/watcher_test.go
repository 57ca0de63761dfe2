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
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestAddPathValidation(t *testing.T) {
	w, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	dir := t.TempDir()
	require.NoError(t, w.AddPath(dir))

	file := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a"), 0o644))
	assert.Error(t, w.AddPath(file))
	assert.Error(t, w.AddPath(filepath.Join(dir, "missing")))
	assert.Error(t, w.AddPath(""))
}

func TestAddRecursiveSkipsHidden(t *testing.T) {
	w, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "speakers", "keynote"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, w.AddRecursive(root))

	watched := w.watcher.WatchList()
	assert.Contains(t, watched, filepath.Join(root, "speakers", "keynote"))
	assert.NotContains(t, watched, filepath.Join(root, ".git"))
}

func TestFilters(t *testing.T) {
	cases := map[string]bool{
		"templates/speaker.yaml": true,
		"templates/speaker.YML":  true,
		"templates/podcast.json": true,
		"templates/notes.txt":    false,
		"templates/README":       false,
	}
	for path, want := range cases {
		assert.Equal(t, want, TemplateFilter(path), path)
	}

	assert.True(t, NoHiddenFilter("templates/speaker.yaml"))
	assert.False(t, NoHiddenFilter("templates/.speaker.yaml.swp"))
	assert.False(t, NoHiddenFilter("templates/speaker.yaml~"))
	assert.False(t, NoHiddenFilter("templates/#speaker.yaml#"))
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "b.yaml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.yaml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.yaml"})

	select {
	case batch := <-d.output:
		require.Len(t, batch, 2)
		assert.Equal(t, "a.yaml", batch[0].Path)
		assert.Equal(t, "b.yaml", batch[1].Path)
		assert.Equal(t, EventTypeModified, batch[1].Type, "last event per path wins")
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
	assert.Empty(t, d.pending)
}

func flushed(d *Debouncer) func() bool {
	return func() bool {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		return len(d.pending) == 0
	}
}

func TestDebouncerWaitsForRoom(t *testing.T) {
	d := newDebouncer(5 * time.Millisecond)
	defer d.stop()
	for range cap(d.output) {
		d.output <- nil
	}

	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.yaml"})
	require.Eventually(t, flushed(d), time.Second, time.Millisecond)
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.yaml"})

	for range cap(d.output) {
		<-d.output
	}
	var paths []string
	for len(paths) < 2 {
		select {
		case batch := <-d.output:
			for _, e := range batch {
				paths = append(paths, e.Path)
			}
		case <-time.After(time.Second):
			t.Fatalf("batches lost, got %v", paths)
		}
	}
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, paths)
}

func TestDebouncerStopReleasesBlockedFlush(t *testing.T) {
	d := newDebouncer(time.Millisecond)
	for range cap(d.output) {
		d.output <- nil
	}
	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "a.yaml"})
	require.Eventually(t, flushed(d), time.Second, time.Millisecond)

	d.stop()
	d.stop()
	assert.Len(t, d.output, cap(d.output))
}

func TestRunDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	w.AddFilter(TemplateFilter)
	w.AddFilter(NoHiddenFilter)
	require.NoError(t, w.AddPath(dir))

	var mu sync.Mutex
	var seen []string
	got := make(chan struct{}, 1)
	w.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		mu.Lock()
		for _, e := range events {
			seen = append(seen, filepath.Base(e.Path))
		}
		mu.Unlock()
		select {
		case got <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speaker.yaml"), []byte("name: speaker"), 0o644))

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, "speaker.yaml")
	assert.NotContains(t, seen, "notes.txt")
}

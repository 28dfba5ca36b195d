package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/passcan/passcan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestWatcher(t *testing.T, dir string, clock *fakeClock) *Watcher {
	t.Helper()
	opts := Options{SkipDir: func(name string) bool { return name == "node_modules" }}
	if clock != nil {
		opts.Now = clock.now
	}
	w, err := New(dir, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func next(t *testing.T, w *Watcher) types.ChangeEvent {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
	}
	return types.ChangeEvent{}
}

func TestHandle_MapsOps(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := newTestWatcher(t, dir, clock)
	ctx := context.Background()
	p := filepath.Join(dir, "a.txt")

	w.handle(ctx, fsnotify.Event{Name: p, Op: fsnotify.Write})
	assert.Equal(t, types.Modified, next(t, w).Kind)

	w.handle(ctx, fsnotify.Event{Name: p, Op: fsnotify.Remove})
	assert.Equal(t, types.Deleted, next(t, w).Kind)

	w.handle(ctx, fsnotify.Event{Name: p, Op: fsnotify.Create})
	ev := next(t, w)
	assert.Equal(t, types.Created, ev.Kind)
	assert.Equal(t, clock.t, ev.Timestamp)

	w.handle(ctx, fsnotify.Event{Name: p, Op: fsnotify.Chmod})
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHandle_RenamePairing(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := newTestWatcher(t, dir, clock)
	ctx := context.Background()

	w.handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "old"), Op: fsnotify.Rename})
	assert.Equal(t, types.RenamedFrom, next(t, w).Kind)
	clock.t = clock.t.Add(50 * time.Millisecond)
	w.handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "new"), Op: fsnotify.Create})
	assert.Equal(t, types.RenamedTo, next(t, w).Kind)

	// Pairing is consumed; a later create is a plain create.
	w.handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "other"), Op: fsnotify.Create})
	assert.Equal(t, types.Created, next(t, w).Kind)

	w.handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "old2"), Op: fsnotify.Rename})
	next(t, w)
	clock.t = clock.t.Add(RenamePairing + time.Millisecond)
	w.handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "late"), Op: fsnotify.Create})
	assert.Equal(t, types.Created, next(t, w).Kind)
}

func TestHandle_NewDirectoryReportsContents(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir, nil)
	sub := filepath.Join(dir, "sub", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "k.env"), []byte("x"), 0o644))

	w.handle(context.Background(), fsnotify.Event{Name: filepath.Join(dir, "sub"), Op: fsnotify.Create})
	ev := next(t, w)
	assert.Equal(t, filepath.Join(sub, "k.env"), ev.Path)
	assert.Equal(t, types.Created, ev.Kind)
	assert.Contains(t, w.fs.WatchList(), sub)

	skipped := filepath.Join(dir, "node_modules")
	require.NoError(t, os.MkdirAll(skipped, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skipped, "x.js"), []byte("x"), 0o644))
	w.handle(context.Background(), fsnotify.Event{Name: skipped, Op: fsnotify.Create})
	assert.NotContains(t, w.fs.WatchList(), skipped)
}

func TestRun_DeliversFileChanges(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))
	ev := next(t, w)
	assert.Equal(t, p, ev.Path)
	assert.Contains(t, []types.ChangeKind{types.Created, types.Modified}, ev.Kind)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	for range w.Events() {
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	var we *types.WatchError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "init", we.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err = New(f, Options{})
	require.ErrorAs(t, err, &we)
}

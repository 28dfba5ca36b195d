package rescan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/passcan/passcan/internal/engine"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/rules"
	"github.com/passcan/passcan/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "AKIA1234567890ABCDEF\n"

type harness struct {
	dir    string
	rep    *report.Report
	events chan types.ChangeEvent
	errs   chan error
	deltas chan report.Delta
	sched  *Scheduler
	done   chan error
	cancel context.CancelFunc
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	return newLoggedHarness(t, files, nil)
}

func newLoggedHarness(t *testing.T, files map[string]string, log logrus.FieldLogger) *harness {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	rs, err := rules.Load()
	require.NoError(t, err)
	req, err := engine.NewScanRequest(dir, nil, nil, 0, true)
	require.NoError(t, err)
	coord, err := engine.NewCoordinator(rs, req)
	require.NoError(t, err)
	rep, err := coord.RunFull(context.Background())
	require.NoError(t, err)

	h := &harness{
		dir:    dir,
		rep:    rep,
		events: make(chan types.ChangeEvent, 16),
		errs:   make(chan error, 1),
		deltas: make(chan report.Delta, 16),
		done:   make(chan error, 1),
	}
	h.sched, err = New(Config{
		Events:   h.events,
		Errors:   h.errs,
		Debounce: 20 * time.Millisecond,
		Scanner:  coord,
		Report:   rep,
		OnDelta:  func(d report.Delta) { h.deltas <- d },
		Logger:   log,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.sched.Run(ctx) }()
	t.Cleanup(cancel)
	return h
}

func (h *harness) path(name string) string { return filepath.Join(h.dir, name) }

func (h *harness) send(name string, kind types.ChangeKind) {
	h.events <- types.ChangeEvent{Path: h.path(name), Kind: kind, Timestamp: time.Now()}
}

func (h *harness) nextDelta(t *testing.T) report.Delta {
	t.Helper()
	select {
	case d := <-h.deltas:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("no flush")
	}
	return report.Delta{}
}

func TestScheduler_ModifyThenDeleteCollapses(t *testing.T) {
	h := newHarness(t, map[string]string{"a.txt": secret})
	require.Len(t, h.rep.Findings(h.path("a.txt")), 1)

	h.send("a.txt", types.Modified)
	require.NoError(t, os.Remove(h.path("a.txt")))
	h.send("a.txt", types.Deleted)

	d := h.nextDelta(t)
	assert.Equal(t, []string{h.path("a.txt")}, d.Paths)
	assert.Len(t, d.Removed, 1)
	assert.Empty(t, d.Added)
	assert.Empty(t, h.rep.Findings(h.path("a.txt")))
	for _, f := range h.rep.Snapshot().Findings {
		assert.NotEqual(t, "a.txt", f.Path)
	}
}

func TestScheduler_FlushSummaryLoggedAtInfo(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := newLoggedHarness(t, map[string]string{"a.txt": secret}, log)
	h.send("a.txt", types.Modified)
	h.nextDelta(t)

	var summary *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "flushed changes" {
			summary = e
		}
	}
	require.NotNil(t, summary, "no flush summary logged")
	assert.Equal(t, logrus.InfoLevel, summary.Level)
	assert.Equal(t, 1, summary.Data["paths"])
}

func TestScheduler_Rename(t *testing.T) {
	h := newHarness(t, map[string]string{"a.txt": secret})
	require.NoError(t, os.Rename(h.path("a.txt"), h.path("b.txt")))
	h.send("a.txt", types.RenamedFrom)
	h.send("b.txt", types.RenamedTo)

	d := h.nextDelta(t)
	assert.Equal(t, []string{h.path("a.txt"), h.path("b.txt")}, d.Paths)
	assert.Empty(t, h.rep.Findings(h.path("a.txt")))
	got := h.rep.Findings(h.path("b.txt"))
	require.Len(t, got, 1)
	assert.Equal(t, "b.txt", got[0].Path)
}

func TestScheduler_CreateAndModify(t *testing.T) {
	h := newHarness(t, map[string]string{"clean.txt": "nothing\n"})

	require.NoError(t, os.WriteFile(h.path("new.env"), []byte(secret), 0o644))
	h.send("new.env", types.Created)
	d := h.nextDelta(t)
	require.Len(t, d.Added, 1)
	assert.Equal(t, "aws_access_key", d.Added[0].RuleID)

	require.NoError(t, os.WriteFile(h.path("new.env"), []byte("AWS=unset\n"), 0o644))
	h.send("new.env", types.Modified)
	d = h.nextDelta(t)
	assert.Len(t, d.Removed, 1)
	assert.Empty(t, h.rep.Findings(h.path("new.env")))
	assert.Equal(t, int64(2), h.sched.Flushes())
}

func TestScheduler_WatchErrorEndsRun(t *testing.T) {
	h := newHarness(t, map[string]string{"a.txt": secret})
	h.errs <- errors.New("inotify overflow")
	select {
	case err := <-h.done:
		var we *types.WatchError
		require.ErrorAs(t, err, &we)
		assert.Contains(t, err.Error(), "inotify overflow")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	// The report survives.
	assert.Len(t, h.rep.Findings(h.path("a.txt")), 1)
}

func TestScheduler_CancelAndClose(t *testing.T) {
	h := newHarness(t, nil)
	h.cancel()
	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	h = newHarness(t, map[string]string{"a.txt": secret})
	require.NoError(t, os.Remove(h.path("a.txt")))
	h.send("a.txt", types.Deleted)
	close(h.events)
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Empty(t, h.rep.Findings(h.path("a.txt")))
	assert.Equal(t, Idle, h.sched.State())
}

// blockingScanner holds the first RunSingle until release is closed.
type blockingScanner struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingScanner) RunSingle(context.Context, string) engine.Outcome {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return engine.Outcome{}
}

func TestScheduler_EventsDuringFlushOpenNewWindow(t *testing.T) {
	events := make(chan types.ChangeEvent, 4)
	deltas := make(chan report.Delta, 4)
	bs := &blockingScanner{entered: make(chan struct{}), release: make(chan struct{})}
	s, err := New(Config{
		Events:   events,
		Debounce: 10 * time.Millisecond,
		Scanner:  bs,
		Report:   report.New("/repo"),
		OnDelta:  func(d report.Delta) { deltas <- d },
	})
	require.NoError(t, err)
	assert.Equal(t, Idle, s.State())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	events <- types.ChangeEvent{Path: "/repo/a", Kind: types.Modified}
	<-bs.entered
	assert.Equal(t, Flushing, s.State())
	events <- types.ChangeEvent{Path: "/repo/b", Kind: types.Created}
	close(bs.release)

	first := <-deltas
	assert.Equal(t, []string{"/repo/a"}, first.Paths)
	select {
	case second := <-deltas:
		assert.Equal(t, []string{"/repo/b"}, second.Paths)
	case <-time.After(5 * time.Second):
		t.Fatal("event during flush was lost")
	}
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, 5*time.Millisecond)
}

func TestNew_RequiresInputs(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "debouncing", Debouncing.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestScheduler_DirectoryRemovalDropsChildren(t *testing.T) {
	h := newHarness(t, map[string]string{"top.txt": secret})
	sub := h.path("sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "k.txt"), []byte(secret), 0o644))
	h.send(filepath.Join("sub", "k.txt"), types.Created)
	require.Len(t, h.nextDelta(t).Added, 1)

	require.NoError(t, os.RemoveAll(sub))
	h.send("sub", types.Deleted)
	d := h.nextDelta(t)
	assert.Equal(t, []string{sub, filepath.Join(sub, "k.txt")}, d.Paths)
	assert.Len(t, d.Removed, 1)
	assert.Len(t, h.rep.Findings(h.path("top.txt")), 1)
}

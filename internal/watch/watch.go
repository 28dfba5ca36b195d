// Package watch turns fsnotify notifications for a directory tree into
// types.ChangeEvent values.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/passcan/passcan/internal/types"
	"github.com/sirupsen/logrus"
)

// RenamePairing is how soon after a Rename a Create is taken to be the
// rename's destination.
const RenamePairing = 100 * time.Millisecond

// DefaultBuffer is the capacity of the event channel.
const DefaultBuffer = 256

// Options configure a Watcher.
type Options struct {
	// SkipDir reports whether a directory with the given base name should
	// not be watched.
	SkipDir func(name string) bool
	Buffer  int
	Logger  logrus.FieldLogger
	// Now stamps events; defaults to time.Now.
	Now func() time.Time
}

// Watcher recursively watches a root directory.
type Watcher struct {
	fs     *fsnotify.Watcher
	root   string
	opts   Options
	log    logrus.FieldLogger
	events chan types.ChangeEvent
	errors chan error

	lastRename time.Time
}

// New starts watching root and every directory below it that SkipDir does
// not reject. Failures are reported as *types.WatchError.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SkipDir == nil {
		opts.SkipDir = func(string) bool { return false }
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &types.WatchError{Op: "init", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &types.WatchError{Op: "init", Err: err}
	}
	if !info.IsDir() {
		return nil, &types.WatchError{Op: "init", Err: errors.New(abs + " is not a directory")}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &types.WatchError{Op: "init", Err: err}
	}
	w := &Watcher{
		fs:     fw,
		root:   abs,
		opts:   opts,
		log:    log,
		events: make(chan types.ChangeEvent, opts.Buffer),
		errors: make(chan error, 1),
	}
	if _, err := w.addTree(abs); err != nil {
		_ = fw.Close()
		return nil, &types.WatchError{Op: "init", Err: err}
	}
	return w, nil
}

// Events delivers change events. It is closed when Run returns.
func (w *Watcher) Events() <-chan types.ChangeEvent { return w.events }

// Errors delivers at most one terminal *types.WatchError.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Close releases the fsnotify handle. It is safe to call after Run returned.
func (w *Watcher) Close() error { return w.fs.Close() }

// addTree watches dir and its subdirectories and returns the regular files
// found along the way.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.WithError(err).WithField("path", p).Debug("watch: unreadable entry")
			return nil
		}
		if d.IsDir() {
			if p != w.root && w.opts.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return w.fs.Add(p)
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// Run forwards events until ctx is done or fsnotify fails. It closes the
// Events channel on return. A failure is sent on Errors and also returned.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			we := &types.WatchError{Op: "read", Err: err}
			w.errors <- we
			return we
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.handle(ctx, ev) {
				return nil
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) bool {
	now := w.opts.Now()
	switch {
	case ev.Has(fsnotify.Remove):
		return w.emit(ctx, ev.Name, types.Deleted, now)
	case ev.Has(fsnotify.Rename):
		w.lastRename = now
		return w.emit(ctx, ev.Name, types.RenamedFrom, now)
	case ev.Has(fsnotify.Create):
		kind := types.Created
		if !w.lastRename.IsZero() && now.Sub(w.lastRename) <= RenamePairing {
			kind = types.RenamedTo
			w.lastRename = time.Time{}
		}
		info, err := os.Lstat(ev.Name)
		if err == nil && info.IsDir() {
			return w.created(ctx, ev.Name, kind, now)
		}
		return w.emit(ctx, ev.Name, kind, now)
	case ev.Has(fsnotify.Write):
		return w.emit(ctx, ev.Name, types.Modified, now)
	}
	// Chmod alone does not change content.
	return true
}

// created starts watching a new directory and reports the files it already
// holds, which were written before the watch was in place.
func (w *Watcher) created(ctx context.Context, dir string, kind types.ChangeKind, now time.Time) bool {
	if w.opts.SkipDir(filepath.Base(dir)) {
		return true
	}
	files, err := w.addTree(dir)
	if err != nil {
		w.log.WithError(err).WithField("path", dir).Warn("watch: cannot add directory")
	}
	for _, f := range files {
		if !w.emit(ctx, f, kind, now) {
			return false
		}
	}
	return true
}

func (w *Watcher) emit(ctx context.Context, path string, kind types.ChangeKind, at time.Time) bool {
	select {
	case w.events <- types.ChangeEvent{Path: path, Kind: kind, Timestamp: at}:
		return true
	case <-ctx.Done():
		return false
	}
}

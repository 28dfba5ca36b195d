// Package rescan applies filesystem change events to a live report. Events
// are debounced into batches keyed by path; each batch is flushed by
// re-matching or removing the affected paths, and the resulting change is
// published as a report.Delta.
package rescan

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/passcan/passcan/internal/engine"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/types"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the debounce window used when Config.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// State is the scheduler's position in its event cycle.
type State int32

const (
	Idle State = iota
	Debouncing
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Flushing:
		return "flushing"
	}
	return "unknown"
}

// Rescanner re-matches a single path. *engine.Coordinator implements it.
type Rescanner interface {
	RunSingle(ctx context.Context, path string) engine.Outcome
}

// Config wires a Scheduler.
type Config struct {
	Events   <-chan types.ChangeEvent
	Errors   <-chan error
	Debounce time.Duration
	Scanner  Rescanner
	Report   *report.Report
	// OnDelta receives the change made by each flush, including flushes that
	// changed no findings.
	OnDelta func(report.Delta)
	Logger  logrus.FieldLogger
}

// ErrMissingInput is returned by New when a required Config field is nil.
var ErrMissingInput = errors.New("rescan: events, scanner and report are required")

// Scheduler is the debounce state machine. Run drives it from a single
// goroutine, so flushes never overlap.
type Scheduler struct {
	cfg     Config
	state   atomic.Int32
	flushes atomic.Int64
}

// New validates cfg and returns an idle scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Events == nil || cfg.Scanner == nil || cfg.Report == nil {
		return nil, ErrMissingInput
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Scheduler{cfg: cfg}, nil
}

// State returns the current state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Flushes returns how many flushes have completed.
func (s *Scheduler) Flushes() int64 { return s.flushes.Load() }

func (s *Scheduler) set(st State) { s.state.Store(int32(st)) }

// Run consumes events until ctx is done, the event channel is closed, or a
// watch error arrives. The debounce window opens on the first event of a
// batch and is not extended by later ones. Closing Events flushes what is
// pending and returns nil. A value on Errors ends Run with that error wrapped
// as a *types.WatchError; the report is left as of the last flush.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.set(Idle)
	events, errs := s.cfg.Events, s.cfg.Errors
	pending := map[string]types.ChangeEvent{}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var we *types.WatchError
			if !errors.As(err, &we) {
				we = &types.WatchError{Op: "events", Err: err}
			}
			return we

		case ev, ok := <-events:
			if !ok {
				if len(pending) > 0 {
					s.flush(ctx, pending)
				}
				return nil
			}
			if ev.Timestamp.IsZero() {
				ev.Timestamp = time.Now()
			}
			pending[ev.Path] = ev
			if fire == nil {
				timer = time.NewTimer(s.cfg.Debounce)
				fire = timer.C
				s.set(Debouncing)
			}

		case <-fire:
			batch := pending
			pending = map[string]types.ChangeEvent{}
			fire = nil
			s.flush(ctx, batch)
			s.set(Idle)
		}
	}
}

// flush applies batch in path order. Cancellation is checked between paths;
// the path in progress always completes.
func (s *Scheduler) flush(ctx context.Context, batch map[string]types.ChangeEvent) {
	s.set(Flushing)
	defer s.flushes.Add(1)

	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	delta := report.Delta{At: time.Now()}
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		ev := batch[p]
		targets := []string{p}
		if ev.Kind.Removes() {
			// A removed or renamed directory takes its files with it.
			targets = append(targets, s.cfg.Report.Under(p)...)
		}
		for _, t := range targets {
			ev.Path = t
			added, removed := s.apply(ctx, ev)
			delta.Paths = append(delta.Paths, t)
			delta.Added = append(delta.Added, added...)
			delta.Removed = append(delta.Removed, removed...)
		}
	}
	s.cfg.Logger.WithFields(logrus.Fields{
		"paths":   len(delta.Paths),
		"added":   len(delta.Added),
		"removed": len(delta.Removed),
	}).Info("flushed changes")
	if s.cfg.OnDelta != nil {
		s.cfg.OnDelta(delta)
	}
}

func (s *Scheduler) apply(ctx context.Context, ev types.ChangeEvent) (added, removed []types.Finding) {
	rep := s.cfg.Report
	before := rep.Findings(ev.Path)
	if ev.Kind.Removes() {
		rep.Remove(ev.Path, ev.Timestamp)
	} else {
		out := s.cfg.Scanner.RunSingle(ctx, ev.Path)
		if !out.Apply(rep, ev.Path, ev.Timestamp) {
			s.cfg.Logger.WithField("path", ev.Path).Debug("stale change dropped")
		}
	}
	return report.DiffFindings(before, rep.Findings(ev.Path))
}

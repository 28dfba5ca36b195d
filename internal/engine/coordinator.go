package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/passcan/passcan/internal/cache"
	"github.com/passcan/passcan/internal/detectors"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/rules"
	"github.com/passcan/passcan/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of matching one path. Exactly one of the following
// holds: Gone (the path no longer exists), Ignored (the path is out of
// scope), Skip != nil (the file could not be matched), or Findings holds the
// file's findings, possibly empty.
type Outcome struct {
	Findings []types.Finding
	Skip     *types.SkippedFile
	Gone     bool
	Ignored  bool
}

// Apply records o for abs in rep under stamp.
func (o Outcome) Apply(rep *report.Report, abs string, stamp time.Time) bool {
	switch {
	case o.Gone, o.Ignored:
		return rep.Remove(abs, stamp)
	case o.Skip != nil:
		return rep.Skip(abs, *o.Skip, stamp)
	default:
		return rep.Replace(abs, o.Findings, stamp)
	}
}

// Coordinator runs full scans and single-path re-scans of one root with one
// rule set. It is safe for concurrent use.
type Coordinator struct {
	rs    *rules.Set
	req   ScanRequest
	opts  Options
	memo  *cache.Memo
	now   func() time.Time
	log   logrus.FieldLogger
	sel   *selector
	isDir bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithOptions replaces the default Options.
func WithOptions(o Options) Option { return func(c *Coordinator) { c.opts = o } }

// WithMemo sets the match memo. A nil memo disables memoization.
func WithMemo(m *cache.Memo) Option { return func(c *Coordinator) { c.memo = m } }

// WithClock overrides time.Now for stamping full scans.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// WithLogger sets the logger used for skips and progress.
func WithLogger(l logrus.FieldLogger) Option { return func(c *Coordinator) { c.log = l } }

// NewCoordinator builds a coordinator for req. The rule set must be non-nil.
func NewCoordinator(rs *rules.Set, req ScanRequest, opts ...Option) (*Coordinator, error) {
	if rs == nil {
		return nil, errors.New("engine: nil rule set")
	}
	c := &Coordinator{
		rs:   rs,
		req:  req,
		opts: DefaultOptions(),
		memo: cache.New(0, 0),
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.opts.NoCache {
		c.memo = nil
	}
	if c.log == nil {
		c.log = c.opts.logger()
	}
	info, err := os.Stat(req.Root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	c.isDir = info.IsDir()
	c.sel = newSelector(req, c.opts, !c.isDir)
	return c, nil
}

// Request returns the scan request.
func (c *Coordinator) Request() ScanRequest { return c.req }

// Rules returns the rule set.
func (c *Coordinator) Rules() *rules.Set { return c.rs }

// RunFull scans every candidate under the root into a fresh report.
func (c *Coordinator) RunFull(ctx context.Context) (*report.Report, error) {
	rep := report.New(c.req.Root)
	started := c.now()
	err := c.ScanInto(ctx, rep)
	rep.Finish(started, time.Since(started))
	return rep, err
}

// ScanInto scans every candidate into rep, stamping each write with the
// time the scan began so that concurrent incremental writes take precedence.
// On cancellation it stops dispatching, lets in-flight files finish and
// returns ctx.Err().
func (c *Coordinator) ScanInto(ctx context.Context, rep *report.Report) error {
	stamp := c.now()
	threads := c.opts.threads()
	jobs := make(chan Candidate, threads*4)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for cand := range Enumerate(gctx, c.req, c.opts) {
			select {
			case jobs <- cand:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for i := 0; i < threads; i++ {
		g.Go(func() error {
			for cand := range jobs {
				if gctx.Err() != nil {
					continue
				}
				c.candidate(ctx, cand).Apply(rep, cand.Path, stamp)
				if c.opts.Progress != nil {
					c.opts.Progress()
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (c *Coordinator) candidate(ctx context.Context, cand Candidate) Outcome {
	if cand.Skip != "" {
		sk := cand.SkippedFile()
		c.logSkip(sk)
		return Outcome{Skip: &sk}
	}
	return c.process(ctx, cand.Path, cand.Rel)
}

// RunSingle re-matches one absolute path against the current file system.
// Paths outside the root, or excluded by the scan's filters, yield Ignored.
func (c *Coordinator) RunSingle(ctx context.Context, path string) Outcome {
	abs := filepath.Clean(path)
	rel, ok := c.sel.admit(abs)
	if !ok {
		return Outcome{Ignored: true}
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Outcome{Gone: true}
		}
		sk := types.SkippedFile{Path: rel, Reason: types.SkipUnreadable, Detail: err.Error()}
		c.logSkip(sk)
		return Outcome{Skip: &sk}
	}
	if !info.Mode().IsRegular() {
		return Outcome{Ignored: true}
	}
	cand := sized(Candidate{Path: abs, Rel: rel}, info.Size(), c.req.MaxBytes)
	return c.candidate(ctx, cand)
}

func (c *Coordinator) process(ctx context.Context, abs, rel string) Outcome {
	skip := func(reason types.SkipReason, detail string) Outcome {
		sk := types.SkippedFile{Path: rel, Reason: reason, Detail: detail}
		c.logSkip(sk)
		return Outcome{Skip: &sk}
	}

	data, err := readLimited(abs, c.req.MaxBytes)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Outcome{Gone: true}
	case errors.Is(err, errTooLarge):
		return skip(types.SkipTooLarge, "")
	case err != nil:
		return skip(types.SkipUnreadable, err.Error())
	}
	if reason, detail := classify(data); reason != "" {
		return skip(reason, detail)
	}

	key := cache.NewKey(abs, data, c.rs.Fingerprint())
	fs, hit := c.memo.Get(key)
	if !hit {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.matchTimeout())
		fs, err = detectors.ScanContext(mctx, rel, data, c.rs)
		cancel()
		if err != nil {
			return skip(types.SkipMatchTimeout, c.opts.matchTimeout().String())
		}
		c.memo.Put(key, fs)
	}
	if floor := c.opts.MinConfidence; floor > 0 {
		kept := fs[:0]
		for _, f := range fs {
			if f.Confidence >= floor {
				kept = append(kept, f)
			}
		}
		fs = kept
	}
	return Outcome{Findings: fs}
}

func (c *Coordinator) logSkip(sk types.SkippedFile) {
	c.log.WithFields(logrus.Fields{"path": sk.Path, "reason": sk.Reason}).Debug("skipped file")
}

var errTooLarge = errors.New("file exceeds size limit")

// readLimited reads at most max bytes of path, failing with errTooLarge if
// the file grew past the limit since it was listed.
func readLimited(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	if max > 0 {
		r = io.LimitReader(f, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if max > 0 && int64(len(data)) > max {
		return nil, errTooLarge
	}
	return data, nil
}

package core

import (
	"context"
	"errors"
	"time"

	"github.com/passcan/passcan/internal/detectors"
	"github.com/passcan/passcan/internal/engine"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/rescan"
	"github.com/passcan/passcan/internal/rules"
	"github.com/passcan/passcan/internal/types"
	"github.com/passcan/passcan/internal/watch"
	"golang.org/x/sync/errgroup"
)

// Re-export selected internal types as a stable public API surface.
type (
	Finding     = types.Finding
	SkippedFile = types.SkippedFile
	Result      = report.Snapshot
	Delta       = report.Delta
	LoadError   = rules.LoadError
)

// Config describes one scan. The zero value scans the current directory with
// the built-in rules and default excludes.
type Config struct {
	Root    string
	Include []string
	Exclude []string
	// MaxBytes defaults to 1 MiB.
	MaxBytes      int64
	Threads       int
	MinConfidence float64
	MatchTimeout  time.Duration

	NoDefaultExcludes bool
	CodeOnly          bool
	UseGitignore      bool
	NoFollowSymlinks  bool

	// RuleFiles are YAML rule documents merged over the built-ins.
	RuleFiles []string
	// Gitleaks adds the gitleaks default rule pack.
	Gitleaks bool
}

func (c Config) ruleSet() (*rules.Set, error) {
	var srcs []rules.Source
	if c.Gitleaks {
		gs, err := rules.GitleaksSource()
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, gs)
	}
	for _, f := range c.RuleFiles {
		s, err := rules.LoadFile(f)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, s)
	}
	return rules.Load(srcs...)
}

func (c Config) coordinator() (*engine.Coordinator, error) {
	rs, err := c.ruleSet()
	if err != nil {
		return nil, err
	}
	req, err := engine.NewScanRequest(c.Root, c.Include, c.Exclude, c.MaxBytes, false)
	if err != nil {
		return nil, err
	}
	opts := engine.DefaultOptions()
	opts.DefaultExcludes = !c.NoDefaultExcludes
	opts.CodeOnly = c.CodeOnly
	opts.UseGitignore = c.UseGitignore
	opts.FollowSymlinks = !c.NoFollowSymlinks
	opts.Threads = c.Threads
	opts.MinConfidence = c.MinConfidence
	if c.MatchTimeout > 0 {
		opts.MatchTimeout = c.MatchTimeout
	}
	return engine.NewCoordinator(rs, req, engine.WithOptions(opts))
}

// Scan is the stable entrypoint for other programs.
func Scan(cfg Config) ([]Finding, error) {
	res, err := ScanWithStats(context.Background(), cfg)
	return res.Findings, err
}

// ScanWithStats runs a full scan and returns the findings together with the
// files scanned, the skip list and timing.
func ScanWithStats(ctx context.Context, cfg Config) (Result, error) {
	c, err := cfg.coordinator()
	if err != nil {
		return Result{}, err
	}
	rep, err := c.RunFull(ctx)
	return rep.Snapshot(), err
}

// ScanText matches text as if it were the file at path, using the built-in
// rules.
func ScanText(path string, text []byte) ([]Finding, error) {
	rs, err := rules.Load()
	if err != nil {
		return nil, err
	}
	return detectors.Scan(path, text, rs), nil
}

// RuleIDs returns the IDs of the built-in rules.
func RuleIDs() []string {
	rs, err := rules.Load()
	if err != nil {
		return nil
	}
	return rs.IDs()
}

// Watch runs a full scan, hands the result to onResult, then re-scans
// changed files until ctx is cancelled, reporting each flush to onDelta.
// Either callback may be nil. A cancelled ctx is not an error.
func Watch(ctx context.Context, cfg Config, debounce time.Duration, onResult func(Result), onDelta func(Delta)) error {
	c, err := cfg.coordinator()
	if err != nil {
		return err
	}
	w, err := watch.New(c.Request().Root, watch.Options{SkipDir: skipDir(cfg)})
	if err != nil {
		return err
	}
	defer w.Close()

	rep, err := c.RunFull(ctx)
	if err != nil {
		return ignoreCanceled(err)
	}
	if onResult != nil {
		onResult(rep.Snapshot())
	}
	s, err := rescan.New(rescan.Config{
		Events:   w.Events(),
		Errors:   w.Errors(),
		Debounce: debounce,
		Scanner:  c,
		Report:   rep,
		OnDelta:  onDelta,
	})
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return s.Run(gctx) })
	return ignoreCanceled(g.Wait())
}

func skipDir(cfg Config) func(string) bool {
	if cfg.NoDefaultExcludes {
		return nil
	}
	return engine.DefaultExcludedDir
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

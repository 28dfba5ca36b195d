package passcan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/passcan/passcan/internal/engine"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/rescan"
	"github.com/passcan/passcan/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatcher(s scanSettings) (*watch.Watcher, error) {
	var skip func(string) bool
	if s.defaultExcludes {
		skip = engine.DefaultExcludedDir
	}
	return watch.New(s.root, watch.Options{SkipDir: skip, Logger: logger})
}

// runWatch keeps rep current until ctx is cancelled, printing one block per
// flush. Only a watch failure is an error.
func runWatch(ctx context.Context, cmd *cobra.Command, w *watch.Watcher, coord *engine.Coordinator, rep *report.Report, base report.Baseline, s scanSettings) error {
	out := cmd.OutOrStdout()
	sched, err := rescan.New(rescan.Config{
		Events:   w.Events(),
		Errors:   w.Errors(),
		Debounce: s.debounce,
		Scanner:  coord,
		Report:   rep,
		Logger:   logger,
		OnDelta: func(d report.Delta) {
			d.Added = report.FilterNewFindings(d.Added, base)
			d.Removed = report.FilterNewFindings(d.Removed, base)
			if err := renderDelta(out, d, s); err != nil {
				logger.WithError(err).Error("write delta")
			}
		},
	})
	if err != nil {
		return err
	}
	if !flagJSON && !flagSARIF {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (debounce %s), press Ctrl+C to stop\n", s.root, s.debounce)
	}
	logger.WithField("root", s.root).Info("watching for changes")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		logger.WithError(err).Error("watch stopped")
	}
	return err
}

func renderDelta(w io.Writer, d report.Delta, s scanSettings) error {
	if flagJSON || flagSARIF {
		if s.redact {
			d = d.Redacted()
		}
		return report.WriteDeltaJSON(w, d)
	}
	report.PrintDelta(w, d, printOptions(s))
	return nil
}

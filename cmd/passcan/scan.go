package passcan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/passcan/passcan/internal/audit"
	"github.com/passcan/passcan/internal/engine"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/watch"
	"github.com/spf13/cobra"
)

var (
	flagPath           string
	flagInclude        string
	flagExclude        string
	flagMaxBytes       int64
	flagRules          []string
	flagGitleaksRules  bool
	flagCodeOnly       bool
	flagGitignore      bool
	flagFollowSymlinks bool
	flagMatchTimeout   time.Duration
	flagBaseline       string
	flagWatch          bool
	flagDebounce       time.Duration
	flagAudit          bool
	flagRedact         bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan files for secrets",
		Long: "Scan a directory tree (or a single file) for secrets. With --watch, keep\n" +
			"watching the tree and re-scan changed files after each debounce window.",
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", engine.DefaultMaxBytes, "skip files larger than this")
	cmd.Flags().StringArrayVar(&flagRules, "rules", nil, "YAML rule file merged over the built-in rules (repeatable)")
	cmd.Flags().BoolVar(&flagGitleaksRules, "gitleaks-rules", false, "add the gitleaks default rule pack")
	cmd.Flags().BoolVar(&flagCodeOnly, "code-only", false, "only scan source and config files")
	cmd.Flags().BoolVar(&flagGitignore, "gitignore", false, "also honor .gitignore files")
	cmd.Flags().BoolVar(&flagFollowSymlinks, "follow-symlinks", true, "follow symlinked directories")
	cmd.Flags().DurationVar(&flagMatchTimeout, "match-timeout", engine.DefaultMatchTimeout, "per-file matching time limit")
	cmd.Flags().StringVar(&flagBaseline, "baseline", report.DefaultBaselineFile, "baseline file; findings listed there are not reported")
	cmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "keep watching for changes after the first scan")
	cmd.Flags().DurationVar(&flagDebounce, "debounce", 300*time.Millisecond, "debounce window for --watch")
	cmd.Flags().BoolVar(&flagAudit, "audit", false, "append a record to the audit log")
	cmd.Flags().BoolVar(&flagRedact, "redact", true, "mask secrets in output")
}

func runScan(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings(cmd, flagPath)
	if err != nil {
		return err
	}
	if flagWatch {
		if err := checkWatchable(s.root); err != nil {
			return err
		}
	}
	base, err := report.LoadBaselineOptional(s.baseline)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	humanOutput := !flagJSON && !flagSARIF
	var progress *progressBar
	if humanOutput && flagVerbose && stderrIsTerminal() {
		progress = newProgressBar(ctx, cmd.ErrOrStderr(), s)
	}
	coord, rs, err := s.coordinator(flagWatch, progress.tick)
	if err != nil {
		return err
	}
	// Changes made while the full scan runs are queued by the watcher and
	// carry stamps newer than the scan's, so they win in the report.
	var w *watch.Watcher
	if flagWatch {
		if w, err = newWatcher(s); err != nil {
			return err
		}
		defer w.Close()
	}
	if humanOutput {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Scanning %s with %d rules...\n", s.root, rs.Len())
	}
	rep, err := coord.RunFull(ctx)
	progress.done()
	if err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	snap := rep.Snapshot()
	view := snap
	view.Findings = report.FilterNewFindings(snap.Findings, base)
	if err := render(cmd.OutOrStdout(), view, s); err != nil {
		return err
	}

	if s.audit {
		rec := audit.NewRecord(snap, view.Findings, s.baseline, rs.Fingerprint())
		if err := audit.Open(auditRoot(s.root)).Append(rec); err != nil {
			logger.WithError(err).Warn("audit log not written")
		}
	}

	if flagWatch {
		return runWatch(ctx, cmd, w, coord, rep, base, s)
	}
	if report.ShouldFail(view.Findings, s.failOn) {
		return exitCode(1)
	}
	return nil
}

// render writes a full report in the selected format.
func render(w io.Writer, snap report.Snapshot, s scanSettings) error {
	switch {
	case flagSARIF:
		if s.redact {
			snap = snap.Redacted()
		}
		if err := report.WriteSARIF(w, snap, version); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if s.redact {
			snap = snap.Redacted()
		}
		return report.WriteJSON(w, snap)
	case flagText:
		report.PrintText(w, snap, printOptions(s))
	default:
		return report.PrintTable(w, snap, printOptions(s))
	}
	return nil
}

func printOptions(s scanSettings) report.PrintOptions {
	return report.PrintOptions{NoColor: s.noColor, ShowSecrets: !s.redact, Verbose: flagVerbose}
}

// progressBar prints a textual progress bar while a full scan runs. A nil
// bar does nothing.
type progressBar struct {
	w     io.Writer
	total int64
	n     atomic.Int64
}

func newProgressBar(ctx context.Context, w io.Writer, s scanSettings) *progressBar {
	req, err := s.request(false)
	if err != nil {
		return nil
	}
	total := engine.CountTargets(ctx, req, s.options())
	if total == 0 {
		return nil
	}
	return &progressBar{w: w, total: int64(total)}
}

func (p *progressBar) tick() {
	if p == nil {
		return
	}
	n := p.n.Add(1)
	if n%10 == 0 || n == p.total {
		pct := float64(n) / float64(p.total) * 100
		_, _ = fmt.Fprintf(p.w, "\r[%d/%d] %.0f%%", n, p.total, pct)
	}
}

func (p *progressBar) done() {
	if p != nil {
		_, _ = fmt.Fprintln(p.w)
	}
}

// auditRoot keeps the audit log next to the scanned tree.
func auditRoot(root string) string {
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

var errWatchFile = errors.New("--watch needs a directory")

func checkWatchable(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errWatchFile
	}
	return nil
}

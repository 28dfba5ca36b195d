package passcan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/passcan/passcan/internal/config"
	"github.com/passcan/passcan/internal/engine"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/rescan"
	"github.com/passcan/passcan/internal/rules"
	"github.com/spf13/cobra"
)

// scanSettings is the effective configuration of one scan after layering
// flags over the local and global config files.
type scanSettings struct {
	root          string
	include       string
	exclude       string
	maxBytes      int64
	threads       int
	minConfidence float64
	failOn        string
	baseline      string
	matchTimeout  time.Duration
	debounce      time.Duration

	noColor         bool
	defaultExcludes bool
	codeOnly        bool
	gitignore       bool
	followSymlinks  bool
	gitleaks        bool
	audit           bool
	redact          bool

	sources []rules.Source
}

// loadConfigs returns the local and global config files for root. Missing
// files are not an error; malformed ones are.
func loadConfigs(root string) (local, global config.FileConfig, err error) {
	global, err = config.LoadGlobal()
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return local, global, err
	}
	local, err = config.LoadLocal(root)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return local, global, err
	}
	return local, global, nil
}

func resolveSettings(cmd *cobra.Command, path string) (scanSettings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return scanSettings{}, err
	}
	configRoot := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		configRoot = filepath.Dir(abs)
	}
	lcfg, gcfg, err := loadConfigs(configRoot)
	if err != nil {
		return scanSettings{}, err
	}

	s := scanSettings{
		root:            abs,
		include:         pickString(flagInclude, lcfg.Include, gcfg.Include),
		exclude:         pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
		maxBytes:        pickInt64(flagIfChanged(cmd, "max-bytes", flagMaxBytes), lcfg.MaxBytes, gcfg.MaxBytes),
		threads:         pickInt(flagThreads, lcfg.Threads, gcfg.Threads),
		minConfidence:   pickFloat(flagMinConfidence, lcfg.MinConfidence, gcfg.MinConfidence),
		failOn:          pickStringFlag(cmd, "fail-on", flagFailOn, lcfg.FailOn, gcfg.FailOn),
		baseline:        pickStringFlag(cmd, "baseline", flagBaseline, lcfg.Baseline, gcfg.Baseline),
		noColor:         pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		defaultExcludes: pickBoolFlag(cmd, "default-excludes", flagDefaultExcludes, lcfg.DefaultExcludes, gcfg.DefaultExcludes),
		codeOnly:        pickBool(flagCodeOnly, lcfg.CodeOnly, gcfg.CodeOnly),
		gitignore:       pickBool(flagGitignore, lcfg.Gitignore, gcfg.Gitignore),
		followSymlinks:  pickBoolFlag(cmd, "follow-symlinks", flagFollowSymlinks, lcfg.FollowSymlinks, gcfg.FollowSymlinks),
		gitleaks:        pickBool(flagGitleaksRules, lcfg.Gitleaks, gcfg.Gitleaks),
		audit:           pickBool(flagAudit, lcfg.Audit, gcfg.Audit),
		redact:          pickBoolFlag(cmd, "redact", flagRedact, nil, nil),
	}
	if s.maxBytes == 0 {
		s.maxBytes = engine.DefaultMaxBytes
	}
	if s.baseline == "" {
		s.baseline = report.DefaultBaselineFile
	}
	if s.matchTimeout, err = pickDuration(cmd, "match-timeout", flagMatchTimeout, lcfg.MatchTimeout, gcfg.MatchTimeout); err != nil {
		return scanSettings{}, fmt.Errorf("match_timeout: %w", err)
	}
	if s.debounce, err = pickDuration(cmd, "debounce", flagDebounce, lcfg.Debounce, gcfg.Debounce); err != nil {
		return scanSettings{}, fmt.Errorf("debounce: %w", err)
	}
	if s.debounce <= 0 {
		s.debounce = rescan.DefaultDebounce
	}
	if !stdoutIsTerminal() {
		s.noColor = true
	}

	if s.gitleaks {
		gs, err := rules.GitleaksSource()
		if err != nil {
			return scanSettings{}, err
		}
		s.sources = append(s.sources, gs)
	}
	for _, fc := range []config.FileConfig{gcfg, lcfg} {
		srcs, err := fc.RuleSources()
		if err != nil {
			return scanSettings{}, err
		}
		s.sources = append(s.sources, srcs...)
	}
	for _, f := range flagRules {
		src, err := rules.LoadFile(f)
		if err != nil {
			return scanSettings{}, err
		}
		s.sources = append(s.sources, src)
	}
	if lvl := pickString("", lcfg.LogLevel, gcfg.LogLevel); lvl != "" && !changed(cmd, "log-level") {
		l, err := newLogger(cmd.ErrOrStderr(), lvl, flagVerbose, s.noColor)
		if err != nil {
			return scanSettings{}, err
		}
		logger = l
	}
	return s, nil
}

func flagIfChanged(cmd *cobra.Command, name string, v int64) int64 {
	if changed(cmd, name) {
		return v
	}
	return 0
}

// ruleSet compiles the built-ins merged with every configured source.
func (s scanSettings) ruleSet() (*rules.Set, error) {
	return rules.Load(s.sources...)
}

func (s scanSettings) request(watch bool) (engine.ScanRequest, error) {
	return engine.NewScanRequest(s.root, globList(s.include), globList(s.exclude), s.maxBytes, watch)
}

func (s scanSettings) options() engine.Options {
	return engine.Options{
		DefaultExcludes: s.defaultExcludes,
		CodeOnly:        s.codeOnly,
		UseGitignore:    s.gitignore,
		FollowSymlinks:  s.followSymlinks,
		Threads:         s.threads,
		MatchTimeout:    s.matchTimeout,
		MinConfidence:   s.minConfidence,
		NoCache:         flagNoCache,
		Logger:          logger,
	}
}

// coordinator builds the rule set and the scan coordinator.
func (s scanSettings) coordinator(watch bool, progress func()) (*engine.Coordinator, *rules.Set, error) {
	rs, err := s.ruleSet()
	if err != nil {
		return nil, nil, err
	}
	req, err := s.request(watch)
	if err != nil {
		return nil, nil, err
	}
	opts := s.options()
	opts.Progress = progress
	c, err := engine.NewCoordinator(rs, req, engine.WithOptions(opts), engine.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return c, rs, nil
}

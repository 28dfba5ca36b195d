package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxBytes     int64 = 1 << 20
	DefaultMatchTimeout       = 5 * time.Second
)

// ScanRequest is the immutable description of what to scan.
type ScanRequest struct {
	Root     string
	Include  []string
	Exclude  []string
	MaxBytes int64
	Watch    bool
}

// NewScanRequest resolves root to an absolute, cleaned path and applies
// defaults.
func NewScanRequest(root string, include, exclude []string, maxBytes int64, watch bool) (ScanRequest, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return ScanRequest{}, fmt.Errorf("resolve root %q: %w", root, err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return ScanRequest{
		Root:     filepath.Clean(abs),
		Include:  append([]string(nil), include...),
		Exclude:  append([]string(nil), exclude...),
		MaxBytes: maxBytes,
		Watch:    watch,
	}, nil
}

// Options tune selection and execution. The zero value disables the default
// excludes and symlink following; use DefaultOptions for CLI behavior.
type Options struct {
	DefaultExcludes bool
	CodeOnly        bool
	UseGitignore    bool
	FollowSymlinks  bool

	Threads       int
	MatchTimeout  time.Duration
	MinConfidence float64
	NoCache       bool

	// Progress is called once per file processed by a full scan.
	Progress func()
	Logger   logrus.FieldLogger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DefaultExcludes: true,
		FollowSymlinks:  true,
		MatchTimeout:    DefaultMatchTimeout,
	}
}

func (o Options) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) matchTimeout() time.Duration {
	if o.MatchTimeout > 0 {
		return o.MatchTimeout
	}
	return DefaultMatchTimeout
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

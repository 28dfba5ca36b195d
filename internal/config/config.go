package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/passcan/passcan/internal/rules"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no config file exists at the searched
// locations.
var ErrNotFound = errors.New("no config file")

// LocalNames are the repo-local config file names, in search order.
var LocalNames = []string{".passcan.yml", ".passcan.yaml", "passcan.yml", "passcan.yaml"}

// FileConfig is the on-disk YAML configuration shape for passcan. Nil fields
// are unset and fall through to the next layer.
type FileConfig struct {
	Include         *string  `yaml:"include,omitempty"`
	Exclude         *string  `yaml:"exclude,omitempty"`
	MaxBytes        *int64   `yaml:"max_bytes,omitempty"`
	Threads         *int     `yaml:"threads,omitempty"`
	MinConfidence   *float64 `yaml:"min_confidence,omitempty"`
	NoColor         *bool    `yaml:"no_color,omitempty"`
	DefaultExcludes *bool    `yaml:"default_excludes,omitempty"`
	CodeOnly        *bool    `yaml:"code_only,omitempty"`
	Gitignore       *bool    `yaml:"gitignore,omitempty"`
	FollowSymlinks  *bool    `yaml:"follow_symlinks,omitempty"`
	FailOn          *string  `yaml:"fail_on,omitempty"`
	MatchTimeout    *string  `yaml:"match_timeout,omitempty"`
	Debounce        *string  `yaml:"debounce,omitempty"`
	Baseline        *string  `yaml:"baseline,omitempty"`
	Audit           *bool    `yaml:"audit,omitempty"`
	LogLevel        *string  `yaml:"log_level,omitempty"`

	// Gitleaks adds the gitleaks default rule pack to the built-ins.
	Gitleaks *bool `yaml:"gitleaks,omitempty"`

	// RuleFiles are YAML rule documents, resolved against the directory of
	// the config file.
	RuleFiles []string           `yaml:"rule_files,omitempty"`
	Rules     []rules.Definition `yaml:"rules,omitempty"`
	Overrides []rules.Override   `yaml:"overrides,omitempty"`

	path string
}

// Path returns the file the config was read from, if any.
func (fc FileConfig) Path() string { return fc.path }

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
// It supports .passcan.yml/.yaml and passcan.yml/.yaml.
func LoadLocal(repoRoot string) (FileConfig, error) {
	for _, name := range LocalNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, ErrNotFound
}

// GlobalPath returns $XDG_CONFIG_HOME/passcan/config.yml, falling back to
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", fmt.Errorf("%w: no config dir", ErrNotFound)
	}
	return filepath.Join(base, "passcan", "config.yml"), nil
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	p, err := GlobalPath()
	if err != nil {
		return FileConfig{}, err
	}
	if _, err := os.Stat(p); err != nil {
		return FileConfig{}, ErrNotFound
	}
	return LoadFile(p)
}

// RuleSources returns the rule sources this config contributes: each rule
// file in order, then the inline rules and overrides.
func (fc FileConfig) RuleSources() ([]rules.Source, error) {
	var out []rules.Source
	base := "."
	if fc.path != "" {
		base = filepath.Dir(fc.path)
	}
	for _, f := range fc.RuleFiles {
		if !filepath.IsAbs(f) {
			f = filepath.Join(base, f)
		}
		src, err := rules.LoadFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	if len(fc.Rules) > 0 || len(fc.Overrides) > 0 {
		name := fc.path
		if name == "" {
			name = "config"
		}
		out = append(out, rules.Source{Name: name, Rules: fc.Rules, Overrides: fc.Overrides})
	}
	return out, nil
}

// Duration parses an optional duration field. Unset or empty yields def.
func Duration(s *string, def time.Duration) (time.Duration, error) {
	if s == nil || *s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", *s, err)
	}
	return d, nil
}

// Template is the starter file written by `passcan config init`.
const Template = `# passcan configuration
# CLI flags take precedence over this file; this file over
# $XDG_CONFIG_HOME/passcan/config.yml.

# include: "**/*.go,**/*.env"
# exclude: "testdata/**"
max_bytes: 1048576
# threads: 8
min_confidence: 0
default_excludes: true
code_only: false
gitignore: false
follow_symlinks: true
fail_on: medium
match_timeout: 5s
debounce: 300ms
# baseline: passcan.baseline.json
# gitleaks: false

# rule_files:
#   - rules/custom.yml

# rules:
#   - id: internal_api_key
#     pattern: 'ik_[A-Za-z0-9]{32}'
#     severity: high
#     min_entropy: 3.5

# overrides:
#   - id: generic_token
#     min_entropy: 5.0
#   - id: password_assignment
#     denylist: ["hunter2"]
`

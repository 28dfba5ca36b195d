package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/passcan/passcan/internal/types"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateRule   = errors.New("duplicate rule id")
	ErrUnknownRule     = errors.New("unknown rule id")
	ErrInvalidPattern  = errors.New("invalid pattern")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidRule     = errors.New("invalid rule")
)

// LoadError reports why a rule set could not be built. Source is empty for
// the built-in catalog.
type LoadError struct {
	Source string
	RuleID string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Source != "" && e.RuleID != "":
		return fmt.Sprintf("rules %s: rule %q: %v", e.Source, e.RuleID, e.Err)
	case e.Source != "":
		return fmt.Sprintf("rules %s: %v", e.Source, e.Err)
	case e.RuleID != "":
		return fmt.Sprintf("rule %q: %v", e.RuleID, e.Err)
	}
	return "rules: " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Definition is the YAML form of a rule.
type Definition struct {
	ID          string   `yaml:"id"`
	Label       string   `yaml:"label,omitempty"`
	Pattern     string   `yaml:"pattern"`
	Severity    string   `yaml:"severity"`
	MinEntropy  float64  `yaml:"min_entropy,omitempty"`
	Denylist    []string `yaml:"denylist,omitempty"`
	Specificity float64  `yaml:"specificity,omitempty"`
	SecretGroup int      `yaml:"secret_group,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Validator   string   `yaml:"validator,omitempty"`
}

// Override adjusts an existing rule by ID. Nil fields are left alone and
// Denylist entries are appended.
type Override struct {
	ID         string   `yaml:"id"`
	Severity   *string  `yaml:"severity,omitempty"`
	MinEntropy *float64 `yaml:"min_entropy,omitempty"`
	Denylist   []string `yaml:"denylist,omitempty"`
	Disabled   *bool    `yaml:"disabled,omitempty"`
}

// Source is one named batch of user rules and overrides.
type Source struct {
	Name      string       `yaml:"-"`
	Rules     []Definition `yaml:"rules,omitempty"`
	Overrides []Override   `yaml:"overrides,omitempty"`

	// compiled carries rules that are already in Go form (gitleaks import).
	compiled []Rule
}

// ParseSource decodes a YAML rule document.
func ParseSource(name string, data []byte) (Source, error) {
	var src Source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return Source{}, &LoadError{Source: name, Err: fmt.Errorf("%w: %v", ErrInvalidRule, err)}
	}
	src.Name = name
	return src, nil
}

// LoadFile reads and parses a YAML rule file.
func LoadFile(path string) (Source, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Source{}, &LoadError{Source: path, Err: err}
	}
	return ParseSource(path, b)
}

// ToRule converts a YAML definition into a Rule.
func (d Definition) ToRule() (Rule, error) {
	sev, err := types.ParseSeverity(d.Severity)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidSeverity, err)
	}
	return Rule{
		ID:          d.ID,
		Label:       d.Label,
		Pattern:     d.Pattern,
		Severity:    sev,
		MinEntropy:  d.MinEntropy,
		Denylist:    d.Denylist,
		Specificity: d.Specificity,
		SecretGroup: d.SecretGroup,
		Keywords:    d.Keywords,
		Validator:   d.Validator,
	}, nil
}

// Load builds a rule set from the built-in catalog followed by sources in
// order. Any error leaves nothing loaded.
func Load(sources ...Source) (*Set, error) {
	return merge(Builtin(), sources)
}

// LoadOnly is Load without the built-in catalog.
func LoadOnly(sources ...Source) (*Set, error) {
	return merge(nil, sources)
}

func merge(base []Rule, sources []Source) (*Set, error) {
	defs := append([]Rule(nil), base...)
	index := make(map[string]int, len(defs))
	for i, r := range defs {
		index[r.ID] = i
	}
	disabled := map[string]bool{}

	for _, src := range sources {
		added := append([]Rule(nil), src.compiled...)
		for _, d := range src.Rules {
			r, err := d.ToRule()
			if err != nil {
				return nil, &LoadError{Source: src.Name, RuleID: d.ID, Err: err}
			}
			added = append(added, r)
		}
		for _, r := range added {
			if _, dup := index[r.ID]; dup {
				return nil, &LoadError{Source: src.Name, RuleID: r.ID, Err: ErrDuplicateRule}
			}
			index[r.ID] = len(defs)
			defs = append(defs, r)
		}
		for _, o := range src.Overrides {
			i, ok := index[o.ID]
			if !ok {
				return nil, &LoadError{Source: src.Name, RuleID: o.ID, Err: ErrUnknownRule}
			}
			r := defs[i]
			if o.Severity != nil {
				sev, err := types.ParseSeverity(*o.Severity)
				if err != nil {
					return nil, &LoadError{Source: src.Name, RuleID: o.ID, Err: fmt.Errorf("%w: %v", ErrInvalidSeverity, err)}
				}
				r.Severity = sev
			}
			if o.MinEntropy != nil {
				r.MinEntropy = *o.MinEntropy
			}
			if len(o.Denylist) > 0 {
				r.Denylist = append(append([]string(nil), r.Denylist...), o.Denylist...)
			}
			if o.Disabled != nil {
				disabled[o.ID] = *o.Disabled
			}
			defs[i] = r
		}
	}

	if len(disabled) > 0 {
		kept := defs[:0:0]
		for _, r := range defs {
			if !disabled[r.ID] {
				kept = append(kept, r)
			}
		}
		defs = kept
	}

	set, err := Compile(defs)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Source == "" {
			le.Source = sourceOf(le.RuleID, base, sources)
		}
		return nil, err
	}
	return set, nil
}

// sourceOf names the source that introduced id, for error messages.
func sourceOf(id string, base []Rule, sources []Source) string {
	for _, r := range base {
		if r.ID == id {
			return "builtin"
		}
	}
	for _, s := range sources {
		for _, d := range s.Rules {
			if d.ID == id {
				return s.Name
			}
		}
		for _, r := range s.compiled {
			if r.ID == id {
				return s.Name
			}
		}
	}
	return ""
}

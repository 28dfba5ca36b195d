package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/passcan/passcan/internal/types"
)

// DefaultBaselineFile is written by "passcan baseline".
const DefaultBaselineFile = "passcan.baseline.json"

const baselineVersion = 1

// Baseline is a set of accepted findings, identified by path, rule and a
// hash of the match. Line numbers are not part of the identity so accepted
// secrets stay accepted when code above them moves. The file never contains
// a secret.
type Baseline struct {
	Items map[string]bool
}

type baselineFile struct {
	Version int      `json:"version"`
	Items   []string `json:"items"`
}

// UnmarshalJSON accepts the current list form and the older object form
// ({"items": {"key": true}}).
func (b *Baseline) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version int             `json:"version"`
		Items   json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Items = map[string]bool{}
	if len(raw.Items) == 0 || string(raw.Items) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw.Items, &list); err == nil {
		for _, k := range list {
			b.Items[k] = true
		}
		return nil
	}
	return json.Unmarshal(raw.Items, &b.Items)
}

// MarshalJSON writes the sorted list form.
func (b Baseline) MarshalJSON() ([]byte, error) {
	out := baselineFile{Version: baselineVersion, Items: make([]string, 0, len(b.Items))}
	for k, ok := range b.Items {
		if ok {
			out.Items = append(out.Items, k)
		}
	}
	slices.Sort(out.Items)
	return json.Marshal(out)
}

// Contains reports whether f is accepted.
func (b Baseline) Contains(f types.Finding) bool { return b.Items[baselineKey(f)] }

// LoadBaseline reads a baseline file. A missing file yields an empty
// baseline and the not-exist error.
func LoadBaseline(path string) (Baseline, error) {
	empty := Baseline{Items: map[string]bool{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return empty, err
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return empty, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	return b, nil
}

// LoadBaselineOptional is LoadBaseline that treats a missing file as empty.
func LoadBaselineOptional(path string) (Baseline, error) {
	b, err := LoadBaseline(path)
	if errors.Is(err, fs.ErrNotExist) {
		return b, nil
	}
	return b, err
}

// SaveBaseline accepts findings, replacing any existing file at path.
func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Items: make(map[string]bool, len(findings))}
	for _, f := range findings {
		b.Items[baselineKey(f)] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(buf, '\n'), 0o644)
}

// FilterNewFindings drops findings the baseline accepts.
func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	if len(base.Items) == 0 {
		return findings
	}
	var out []types.Finding
	for _, f := range findings {
		if !base.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}

func baselineKey(f types.Finding) string {
	return fmt.Sprintf("%s|%s|%016x", f.Path, f.RuleID, xxhash.Sum64String(f.Match))
}

// ShouldFail reports whether any finding is at or above failOn. Unknown or
// empty thresholds default to medium.
func ShouldFail(findings []types.Finding, failOn string) bool {
	threshold := types.SevMed.Rank()
	if sev, err := types.ParseSeverity(failOn); err == nil {
		threshold = sev.Rank()
	}
	return slices.ContainsFunc(findings, func(f types.Finding) bool {
		return f.Severity.Rank() >= threshold
	})
}

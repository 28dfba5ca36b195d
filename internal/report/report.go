package report

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/passcan/passcan/internal/types"
)

// Report accumulates findings keyed by absolute path. All mutation goes
// through Replace, Skip and Remove, each of which is atomic with respect to
// readers. Every write carries a stamp; a write older than the stamp already
// recorded for the path is dropped, equal stamps apply in arrival order.
type Report struct {
	mu       sync.Mutex
	root     string
	started  time.Time
	duration time.Duration

	findings map[string][]types.Finding
	skipped  map[string]types.SkippedFile
	scanned  map[string]bool
	stamps   map[string]time.Time
}

// New returns an empty report for root.
func New(root string) *Report {
	return &Report{
		root:     root,
		started:  time.Now(),
		findings: map[string][]types.Finding{},
		skipped:  map[string]types.SkippedFile{},
		scanned:  map[string]bool{},
		stamps:   map[string]time.Time{},
	}
}

// Root returns the scan root.
func (r *Report) Root() string { return r.root }

// admit must be called with r.mu held.
func (r *Report) admit(path string, stamp time.Time) bool {
	if prev, ok := r.stamps[path]; ok && stamp.Before(prev) {
		return false
	}
	r.stamps[path] = stamp
	return true
}

// Replace sets the findings for a successfully matched path. It returns
// false when a newer write for the path already exists.
func (r *Report) Replace(path string, fs []types.Finding, stamp time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.admit(path, stamp) {
		return false
	}
	if len(fs) == 0 {
		delete(r.findings, path)
	} else {
		r.findings[path] = append([]types.Finding(nil), fs...)
	}
	delete(r.skipped, path)
	r.scanned[path] = true
	return true
}

// Skip records that path contributed nothing and why. Prior findings for the
// path are dropped.
func (r *Report) Skip(path string, s types.SkippedFile, stamp time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.admit(path, stamp) {
		return false
	}
	delete(r.findings, path)
	delete(r.scanned, path)
	r.skipped[path] = s
	return true
}

// Remove forgets path entirely, as after a deletion or rename away.
func (r *Report) Remove(path string, stamp time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.admit(path, stamp) {
		return false
	}
	delete(r.findings, path)
	delete(r.skipped, path)
	delete(r.scanned, path)
	return true
}

// Finish records scan timing metadata.
func (r *Report) Finish(started time.Time, d time.Duration) {
	r.mu.Lock()
	r.started = started
	r.duration = d
	r.mu.Unlock()
}

// Findings returns a copy of the findings currently held for path.
func (r *Report) Findings(path string) []types.Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Finding(nil), r.findings[path]...)
}

// Skipped returns the skip record for path, if any.
func (r *Report) Skipped(path string) (types.SkippedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skipped[path]
	return s, ok
}

// Under returns the sorted paths with a record (findings, skip or scan)
// strictly below the directory dir.
func (r *Report) Under(dir string) []string {
	prefix := strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for p := range r.stamps {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if _, skipped := r.skipped[p]; r.scanned[p] || skipped {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot is an immutable view of a Report for renderers.
type Snapshot struct {
	Root         string              `json:"root"`
	Started      time.Time           `json:"started"`
	Duration     time.Duration       `json:"duration"`
	FilesScanned int                 `json:"files_scanned"`
	Findings     []types.Finding     `json:"findings"`
	Skipped      []types.SkippedFile `json:"skipped,omitempty"`
}

// Snapshot copies the current state. Findings are ordered by path, then by
// their in-file order; skipped files by path.
func (r *Report) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{
		Root:         r.root,
		Started:      r.started,
		Duration:     r.duration,
		FilesScanned: len(r.scanned),
	}
	paths := make([]string, 0, len(r.findings))
	for p := range r.findings {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		s.Findings = append(s.Findings, r.findings[p]...)
	}
	skipped := make([]string, 0, len(r.skipped))
	for p := range r.skipped {
		skipped = append(skipped, p)
	}
	sort.Strings(skipped)
	for _, p := range skipped {
		s.Skipped = append(s.Skipped, r.skipped[p])
	}
	return s
}

// FilesWithFindings counts distinct paths that have at least one finding.
func (s Snapshot) FilesWithFindings() int {
	seen := map[string]bool{}
	for _, f := range s.Findings {
		seen[f.Path] = true
	}
	return len(seen)
}

// CountBySeverity tallies findings per severity.
func (s Snapshot) CountBySeverity() map[types.Severity]int {
	out := map[types.Severity]int{}
	for _, f := range s.Findings {
		out[f.Severity]++
	}
	return out
}

// Delta is the change one incremental flush made to a Report.
type Delta struct {
	At      time.Time       `json:"at"`
	Paths   []string        `json:"paths"`
	Added   []types.Finding `json:"added,omitempty"`
	Removed []types.Finding `json:"removed,omitempty"`
}

// Empty reports whether the delta changed no findings.
func (d Delta) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

type identity struct {
	path   string
	line   int
	column int
	rule   string
	match  string
}

func idOf(f types.Finding) identity {
	return identity{f.Path, f.Line, f.Column, f.RuleID, f.Match}
}

// DiffFindings compares two finding lists for one path by location, rule and
// matched text.
func DiffFindings(before, after []types.Finding) (added, removed []types.Finding) {
	old := make(map[identity]int, len(before))
	for _, f := range before {
		old[idOf(f)]++
	}
	for _, f := range after {
		k := idOf(f)
		if old[k] > 0 {
			old[k]--
			continue
		}
		added = append(added, f)
	}
	cur := make(map[identity]int, len(after))
	for _, f := range after {
		cur[idOf(f)]++
	}
	for _, f := range before {
		k := idOf(f)
		if cur[k] > 0 {
			cur[k]--
			continue
		}
		removed = append(removed, f)
	}
	return added, removed
}

// Filter returns a copy of s keeping only findings for which keep is true.
func (s Snapshot) Filter(keep func(types.Finding) bool) Snapshot {
	out := s
	out.Findings = nil
	for _, f := range s.Findings {
		if keep(f) {
			out.Findings = append(out.Findings, f)
		}
	}
	return out
}

// MinConfidence returns a predicate for Filter.
func MinConfidence(min float64) func(types.Finding) bool {
	return func(f types.Finding) bool { return f.Confidence >= min }
}

// RedactFinding masks the matched secret in f, including its occurrence in
// the context line.
func RedactFinding(f types.Finding) types.Finding {
	if f.Match == "" {
		return f
	}
	m := Mask(f.Match)
	f.Context = strings.ReplaceAll(f.Context, f.Match, m)
	f.Match = m
	return f
}

func redactAll(fs []types.Finding) []types.Finding {
	if fs == nil {
		return nil
	}
	out := make([]types.Finding, len(fs))
	for i, f := range fs {
		out[i] = RedactFinding(f)
	}
	return out
}

// Redacted returns a copy of s with every match masked.
func (s Snapshot) Redacted() Snapshot {
	s.Findings = redactAll(s.Findings)
	return s
}

// Redacted returns a copy of d with every match masked.
func (d Delta) Redacted() Delta {
	d.Added = redactAll(d.Added)
	d.Removed = redactAll(d.Removed)
	return d
}

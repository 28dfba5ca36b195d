// Package audit keeps an append-only JSONL history of scans. Secrets are
// masked before they are written.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/types"
)

// FileName is the log name inside .git, or with a leading dot at the root
// when the directory is not a git checkout.
const FileName = "passcan_audit.jsonl"

// maxTop bounds Record.Top.
const maxTop = 10

// Record is one line of the log.
type Record struct {
	Timestamp      time.Time       `json:"timestamp"`
	ScanID         string          `json:"scan_id"`
	Root           string          `json:"root"`
	TotalFindings  int             `json:"total_findings"`
	NewFindings    int             `json:"new_findings"`
	BaselinedCount int             `json:"baselined_count"`
	SeverityCounts map[string]int  `json:"severity_counts"`
	FilesScanned   int             `json:"files_scanned"`
	FilesSkipped   int             `json:"files_skipped"`
	Duration       string          `json:"duration"`
	BaselineFile   string          `json:"baseline_file,omitempty"`
	RulesHash      string          `json:"rules_hash,omitempty"`
	Top            []Summary       `json:"top_findings,omitempty"`
	Findings       []types.Finding `json:"all_findings,omitempty"`
}

// Summary is the short form of a finding kept in Record.Top.
type Summary struct {
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
}

// Log is the audit file of one scan root.
type Log struct {
	path string
}

// Open locates the log for root. The file is created on the first Append.
func Open(root string) *Log {
	if st, err := os.Stat(filepath.Join(root, ".git")); err == nil && st.IsDir() {
		return &Log{path: filepath.Join(root, ".git", FileName)}
	}
	return &Log{path: filepath.Join(root, "."+FileName)}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append writes rec as one line, assigning a scan id if it has none.
func (l *Log) Append(rec Record) error {
	if rec.ScanID == "" {
		rec.ScanID = fmt.Sprintf("scan_%d", rec.Timestamp.UnixNano())
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	// owner-only: the log carries finding metadata
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit record: %w", err)
	}
	return f.Close()
}

// History returns the records newest first. A missing log is an empty
// history; lines that fail to decode are skipped.
func (l *Log) History() ([]Record, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var rec Record
		if json.Unmarshal(sc.Bytes(), &rec) == nil {
			out = append(out, rec)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// Delete removes the record at index, counted newest first. The log is
// rewritten through a temporary file and renamed into place.
func (l *Log) Delete(index int) error {
	recs, err := l.History()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(recs) {
		return fmt.Errorf("no audit record %d (have %d)", index, len(recs))
	}
	recs = slices.Delete(recs, index, index+1)
	slices.Reverse(recs)

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".passcan_audit-*")
	if err != nil {
		return fmt.Errorf("rewrite audit log: %w", err)
	}
	defer os.Remove(tmp.Name())
	enc := json.NewEncoder(tmp)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write audit record: %w", err)
		}
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.path)
}

// NewRecord summarizes a scan. fresh holds the findings not covered by the
// baseline.
func NewRecord(snap report.Snapshot, fresh []types.Finding, baselineFile string, fingerprint uint64) Record {
	counts := make(map[string]int)
	for sev, n := range snap.CountBySeverity() {
		counts[string(sev)] = n
	}
	top := make([]Summary, 0, min(len(fresh), maxTop))
	for _, f := range fresh[:min(len(fresh), maxTop)] {
		top = append(top, Summary{Path: f.Path, Rule: f.RuleID, Severity: string(f.Severity), Line: f.Line})
	}

	rec := Record{
		Timestamp:      time.Now(),
		Root:           snap.Root,
		TotalFindings:  len(snap.Findings),
		NewFindings:    len(fresh),
		BaselinedCount: len(snap.Findings) - len(fresh),
		SeverityCounts: counts,
		FilesScanned:   snap.FilesScanned,
		FilesSkipped:   len(snap.Skipped),
		Duration:       snap.Duration.String(),
		BaselineFile:   baselineFile,
		Top:            top,
		Findings:       snap.Redacted().Findings,
	}
	if fingerprint != 0 {
		rec.RulesHash = fmt.Sprintf("%016x", fingerprint)
	}
	return rec
}

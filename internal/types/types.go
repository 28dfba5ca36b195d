package types

import (
	"fmt"
	"strings"
	"time"
)

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow      Severity = "low"
	SevMed      Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// Rank orders severities from low (1) to critical (4). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SevLow:
		return 1
	case SevMed:
		return 2
	case SevHigh:
		return 3
	case SevCritical:
		return 4
	}
	return 0
}

// ParseSeverity accepts the canonical names plus "med" and "crit".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SevLow, nil
	case "medium", "med":
		return SevMed, nil
	case "high":
		return SevHigh, nil
	case "critical", "crit":
		return SevCritical, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Finding describes a potential secret detected at a path and line, including
// the rule that matched, its severity, and a confidence in [0,1].
type Finding struct {
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	Column     int      `json:"column"` // 1-based byte offset of the secret within the line
	Match      string   `json:"match"`
	RuleID     string   `json:"rule"`
	Label      string   `json:"label"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Entropy    float64  `json:"entropy"`
	Context    string   `json:"context,omitempty"`
}

// SkipReason explains why a file contributed no findings.
type SkipReason string

const (
	SkipTooLarge     SkipReason = "too-large"
	SkipBinary       SkipReason = "binary"
	SkipUndecodable  SkipReason = "undecodable"
	SkipUnreadable   SkipReason = "unreadable"
	SkipMatchTimeout SkipReason = "match-timeout"
	SkipSymlinkLoop  SkipReason = "symlink-loop"
)

// SkippedFile is a per-file condition recorded in scan metadata. It never
// aborts a scan.
type SkippedFile struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

func (s SkippedFile) String() string {
	if s.Detail == "" {
		return fmt.Sprintf("%s (%s)", s.Path, s.Reason)
	}
	return fmt.Sprintf("%s (%s: %s)", s.Path, s.Reason, s.Detail)
}

// ChangeKind is the type of a filesystem change.
type ChangeKind int

const (
	Created ChangeKind = iota + 1
	Modified
	Deleted
	RenamedFrom
	RenamedTo
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case RenamedFrom:
		return "renamed-from"
	case RenamedTo:
		return "renamed-to"
	}
	return "unknown"
}

// Removes reports whether the change takes the path away from the tree.
func (k ChangeKind) Removes() bool {
	return k == Deleted || k == RenamedFrom
}

// ChangeEvent is one filesystem change for an absolute path.
type ChangeEvent struct {
	Path      string
	Kind      ChangeKind
	Timestamp time.Time
}

// WatchError is a terminal failure of the change-notification source. The
// last report produced before it remains valid.
type WatchError struct {
	Op  string
	Err error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Op, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

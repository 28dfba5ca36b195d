package rules

import (
	"fmt"
	"regexp"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/passcan/passcan/internal/types"
	"github.com/passcan/passcan/internal/validate"
)

// DefaultSpecificity is used when a rule does not declare a weight.
const DefaultSpecificity = 0.5

// Rule is one secret-detection pattern with its metadata. Rules are
// immutable once compiled into a Set.
type Rule struct {
	ID          string
	Label       string
	Pattern     string
	Severity    types.Severity
	MinEntropy  float64
	Denylist    []string
	Specificity float64
	SecretGroup int
	Keywords    []string
	Validator   string

	re        *regexp.Regexp
	check     validate.Func
	lowerDeny []string
	lowerKeys []string
}

// Span is the location of a candidate secret within a line.
type Span struct {
	Start int
	End   int
	Text  string
}

func (r *Rule) compile() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRule)
	}
	if r.Pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if r.SecretGroup < 0 || r.SecretGroup > re.NumSubexp() {
		return fmt.Errorf("%w: secret group %d out of range (pattern has %d)", ErrInvalidRule, r.SecretGroup, re.NumSubexp())
	}
	if r.Severity.Rank() == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, r.Severity)
	}
	if r.MinEntropy < 0 {
		return fmt.Errorf("%w: negative min entropy", ErrInvalidRule)
	}
	if r.Specificity == 0 {
		r.Specificity = DefaultSpecificity
	}
	if r.Specificity < 0 || r.Specificity > 1 {
		return fmt.Errorf("%w: specificity %.2f outside [0,1]", ErrInvalidRule, r.Specificity)
	}
	if r.Validator != "" {
		f, ok := validate.Lookup(r.Validator)
		if !ok {
			return fmt.Errorf("%w: unknown validator %q", ErrInvalidRule, r.Validator)
		}
		r.check = f
	}
	if r.Label == "" {
		r.Label = r.ID
	}
	r.re = re
	r.lowerDeny = lowerAll(r.Denylist)
	r.lowerKeys = lowerAll(r.Keywords)
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Regexp returns the compiled pattern.
func (r *Rule) Regexp() *regexp.Regexp { return r.re }

// Admits reports whether a lowercased line passes the keyword prefilter.
// Rules without keywords admit every line.
func (r *Rule) Admits(lowerLine string) bool {
	if len(r.lowerKeys) == 0 {
		return true
	}
	for _, k := range r.lowerKeys {
		if strings.Contains(lowerLine, k) {
			return true
		}
	}
	return false
}

// Matches returns the non-overlapping candidate secrets on line. When the
// rule names a secret group, spans cover that group only.
func (r *Rule) Matches(line string) []Span {
	idx := r.re.FindAllStringSubmatchIndex(line, -1)
	if len(idx) == 0 {
		return nil
	}
	out := make([]Span, 0, len(idx))
	for _, m := range idx {
		start, end := m[0], m[1]
		if g := r.SecretGroup; g > 0 {
			start, end = m[2*g], m[2*g+1]
		}
		if start < 0 || start == end {
			continue
		}
		out = append(out, Span{Start: start, End: end, Text: line[start:end]})
	}
	return out
}

// Denied reports whether secret equals or contains a denylist entry,
// ignoring case.
func (r *Rule) Denied(secret string) bool {
	if len(r.lowerDeny) == 0 {
		return false
	}
	s := strings.ToLower(secret)
	for _, d := range r.lowerDeny {
		if strings.Contains(s, d) {
			return true
		}
	}
	return false
}

// Check runs the rule's shape validator. checked is false when the rule has
// none.
func (r *Rule) Check(secret string) (checked, ok bool) {
	if r.check == nil {
		return false, false
	}
	return true, r.check(secret)
}

// Set is an immutable ordered catalog of compiled rules.
type Set struct {
	rules       []Rule
	byID        map[string]int
	fingerprint uint64
}

// Compile validates and compiles defs in order. Duplicate IDs fail.
func Compile(defs []Rule) (*Set, error) {
	s := &Set{
		rules: make([]Rule, len(defs)),
		byID:  make(map[string]int, len(defs)),
	}
	h := xxhash.New()
	for i, d := range defs {
		d.Denylist = append([]string(nil), d.Denylist...)
		d.Keywords = append([]string(nil), d.Keywords...)
		if err := d.compile(); err != nil {
			return nil, &LoadError{RuleID: d.ID, Err: err}
		}
		if _, dup := s.byID[d.ID]; dup {
			return nil, &LoadError{RuleID: d.ID, Err: ErrDuplicateRule}
		}
		s.byID[d.ID] = i
		s.rules[i] = d
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%g\x00%s\x00%g\x00%d\x00%s\x00%s\x01",
			d.ID, d.Pattern, d.Severity, d.MinEntropy, strings.Join(d.lowerDeny, "\x02"),
			d.Specificity, d.SecretGroup, strings.Join(d.lowerKeys, "\x02"), d.Validator)
	}
	s.fingerprint = h.Sum64()
	return s, nil
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Rules returns the rules in evaluation order. The slice is a copy; the
// rules themselves must be treated as read-only.
func (s *Set) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// ByID looks up a rule by identifier.
func (s *Set) ByID(id string) (Rule, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Index returns the evaluation position of id, or -1.
func (s *Set) Index(id string) int {
	if i, ok := s.byID[id]; ok {
		return i
	}
	return -1
}

// IDs returns rule identifiers in evaluation order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.ID
	}
	return out
}

// Only returns a set restricted to the named rules, keeping catalog order.
func (s *Set) Only(ids ...string) (*Set, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			return nil, &LoadError{RuleID: id, Err: ErrUnknownRule}
		}
		want[id] = true
	}
	var defs []Rule
	for _, r := range s.rules {
		if want[r.ID] {
			defs = append(defs, r)
		}
	}
	return Compile(defs)
}

// Fingerprint is a stable hash of every rule definition in the set.
func (s *Set) Fingerprint() uint64 { return s.fingerprint }

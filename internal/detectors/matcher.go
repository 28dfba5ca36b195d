package detectors

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/passcan/passcan/internal/rules"
	"github.com/passcan/passcan/internal/types"
)

const (
	// Weights of the confidence blend.
	specificityWeight = 0.6
	entropyWeight     = 0.4

	validatorBonus   = 0.1
	validatorPenalty = 0.2

	maxContext = 200
)

// Scan applies every rule in rs to text and returns the findings ordered by
// line, column and rule position. It is pure: identical input yields
// identical output.
func Scan(path string, text []byte, rs *rules.Set) []types.Finding {
	out, _ := ScanContext(context.Background(), path, text, rs)
	return out
}

// ScanContext is Scan with cancellation checked between lines. On
// cancellation it returns the context error and no findings.
func ScanContext(ctx context.Context, path string, text []byte, rs *rules.Set) ([]types.Finding, error) {
	if len(text) == 0 || rs == nil || rs.Len() == 0 {
		return nil, nil
	}
	body := string(text)
	if fileIgnored(body) {
		return nil, nil
	}
	set := rs.Rules()

	var out []types.Finding
	var sup suppressor
	lineNo := 0
	for len(body) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var line string
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			line, body = body[:i], body[i+1:]
		} else {
			line, body = body, ""
		}
		line = strings.TrimSuffix(line, "\r")
		lineNo++
		if sup.skip(line) {
			continue
		}
		out = append(out, matchLine(path, lineNo, line, set)...)
	}
	return out, nil
}

type ranked struct {
	f    types.Finding
	rule int
}

func matchLine(path string, lineNo int, line string, set []rules.Rule) []types.Finding {
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)
	var hits []ranked
	for i := range set {
		r := &set[i]
		if !r.Admits(lower) {
			continue
		}
		for _, sp := range r.Matches(line) {
			H := Entropy(sp.Text)
			if r.MinEntropy > 0 && H < r.MinEntropy {
				continue
			}
			if r.Denied(sp.Text) {
				continue
			}
			hits = append(hits, ranked{
				rule: i,
				f: types.Finding{
					Path:       path,
					Line:       lineNo,
					Column:     sp.Start + 1,
					Match:      sp.Text,
					RuleID:     r.ID,
					Label:      r.Label,
					Severity:   r.Severity,
					Confidence: confidence(r, sp.Text, H),
					Entropy:    round2(H),
					Context:    contextOf(line),
				},
			})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].f.Column != hits[b].f.Column {
			return hits[a].f.Column < hits[b].f.Column
		}
		return hits[a].rule < hits[b].rule
	})
	out := make([]types.Finding, len(hits))
	for i, h := range hits {
		out[i] = h.f
	}
	return out
}

func confidence(r *rules.Rule, secret string, H float64) float64 {
	c := specificityWeight*r.Specificity + entropyWeight*normEntropy(H, len(secret))
	if checked, ok := r.Check(secret); checked {
		if ok {
			c += validatorBonus
		} else {
			c -= validatorPenalty
		}
	}
	return round2(clamp01(c))
}

func contextOf(line string) string {
	line = strings.TrimSpace(line)
	if len(line) <= maxContext {
		return line
	}
	cut := maxContext
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + "…"
}

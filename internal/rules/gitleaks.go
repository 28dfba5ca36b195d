package rules

import (
	"fmt"
	"sort"

	"github.com/passcan/passcan/internal/types"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// GitleaksPrefix namespaces rules imported from the gitleaks default pack.
const GitleaksPrefix = "gitleaks."

// GitleaksSource converts the gitleaks default configuration into a rule
// source. Path-only rules are dropped; stop words become denylist entries.
func GitleaksSource() (Source, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return Source{}, &LoadError{Source: "gitleaks", Err: fmt.Errorf("default config: %w", err)}
	}

	ids := make([]string, 0, len(detector.Config.Rules))
	for id := range detector.Config.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	src := Source{Name: "gitleaks"}
	for _, id := range ids {
		gr := detector.Config.Rules[id]
		if gr.Regex == nil {
			continue
		}
		pattern := gr.Regex.String()
		if pattern == "" {
			continue
		}
		r := Rule{
			ID:          GitleaksPrefix + gr.RuleID,
			Label:       gr.Description,
			Pattern:     pattern,
			Severity:    types.SevMed,
			MinEntropy:  gr.Entropy,
			Specificity: 0.7,
			SecretGroup: gr.SecretGroup,
			Keywords:    append([]string(nil), gr.Keywords...),
		}
		if r.SecretGroup == 0 && gr.Regex.NumSubexp() > 0 {
			r.SecretGroup = 1
		}
		for _, al := range gr.Allowlists {
			if al == nil {
				continue
			}
			r.Denylist = append(r.Denylist, al.StopWords...)
		}
		if r.Label == "" {
			r.Label = gr.RuleID
		}
		src.compiled = append(src.compiled, r)
	}
	return src, nil
}

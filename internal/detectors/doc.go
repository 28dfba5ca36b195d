// Package detectors matches a rule set against decoded file text and turns
// raw pattern hits into scored findings.
//
// Matching is line oriented. For every line and every rule, in catalog order,
// each non-overlapping match is gated by the rule's entropy threshold and
// denylist, then scored:
//
//	confidence = 0.6*specificity + 0.4*normalized entropy (+0.1 / -0.2 validator)
//
// Inline directives suppress matches: "passcan:ignore" on a line,
// "passcan:ignore-next-line", "passcan:ignore-start" / "passcan:ignore-end"
// regions and "passcan:ignore-file" anywhere in the text.
package detectors

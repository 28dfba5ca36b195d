// Package rules defines the secret-detection catalog: the Rule type, the
// immutable Set handed to every scan, the built-in rules, and the YAML
// format used to add rules or override built-in thresholds.
//
// A rule set is built once, before scanning, and never mutated afterwards.
// Every load failure is a *LoadError wrapping one of the sentinel errors, so
// callers can branch with errors.Is.
package rules

// Package validate holds cheap shape checks for candidate secrets. Rules name
// a check by key; the matcher raises confidence when the check passes and
// lowers it when it fails.
package validate

import (
	"encoding/base64"
	"encoding/json"
	"slices"
	"strings"
)

// Func reports whether s has the expected shape for a secret kind.
type Func func(s string) bool

// Character classes used by the checks.
const (
	Base62     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	UpperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	Base64     = Base62 + "+/="
)

var registry = map[string]Func{
	"aws_access_key":  Prefixed(20, UpperAlnum, "AKIA", "ASIA", "ABIA", "ACCA"),
	"aws_secret_key":  Exact(40, Base64),
	"github_token":    Prefixed(40, Base62, "ghp_", "gho_", "ghu_", "ghs_", "ghr_"),
	"openai_key":      OpenAIKey,
	"stripe_key":      Prefixed(0, Base62, "sk_live_", "rk_live_"),
	"slack_token":     SlackToken,
	"jwt":             JWT,
	"slack_webhook":   WebhookPath("hooks.slack.com/services/", 3),
	"discord_webhook": WebhookPath("/api/webhooks/", 2),
}

// Lookup returns the check registered under name.
func Lookup(name string) (Func, bool) {
	f, ok := registry[name]
	return f, ok
}

// Names lists the registered checks in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// InAlphabet reports whether s is non-empty and every byte of s is in
// alphabet.
func InAlphabet(s, alphabet string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// Exact accepts strings of length n drawn from alphabet.
func Exact(n int, alphabet string) Func {
	return func(s string) bool { return len(s) == n && InAlphabet(s, alphabet) }
}

// Prefixed accepts one of prefixes followed by a body from alphabet. A
// positive total fixes the full length.
func Prefixed(total int, alphabet string, prefixes ...string) Func {
	return func(s string) bool {
		if total > 0 && len(s) != total {
			return false
		}
		for _, p := range prefixes {
			if body, ok := strings.CutPrefix(s, p); ok {
				return InAlphabet(body, alphabet)
			}
		}
		return false
	}
}

// OpenAIKey accepts sk- keys, including project, service-account and admin
// keys.
func OpenAIKey(s string) bool {
	tail, ok := strings.CutPrefix(s, "sk-")
	if !ok {
		return false
	}
	for _, kind := range []string{"proj-", "svcacct-", "admin-"} {
		if t, ok := strings.CutPrefix(tail, kind); ok {
			tail = t
			break
		}
	}
	return len(tail) >= 40 && len(tail) <= 164 && InAlphabet(tail, Base62+"_-")
}

// SlackToken accepts xox?- tokens made of at least three dash-separated
// parts.
func SlackToken(s string) bool {
	if len(s) < 15 || !strings.HasPrefix(s, "xox") || s[4] != '-' {
		return false
	}
	if !strings.ContainsRune("abprs", rune(s[3])) {
		return false
	}
	return strings.Count(s, "-") >= 2 && InAlphabet(s[5:], Base62+"-")
}

// JWT accepts three dot-separated base64url segments whose header decodes
// to a JSON object naming an algorithm.
func JWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if json.Unmarshal(raw, &header) != nil || header.Alg == "" {
		return false
	}
	_, err = base64.RawURLEncoding.DecodeString(parts[1])
	return err == nil
}

// WebhookPath accepts URLs containing marker followed by at least segments
// non-empty path segments.
func WebhookPath(marker string, segments int) Func {
	return func(s string) bool {
		_, rest, ok := strings.Cut(s, marker)
		if !ok {
			return false
		}
		parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
		if len(parts) < segments {
			return false
		}
		return !slices.Contains(parts[:segments], "")
	}
}

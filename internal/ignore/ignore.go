// Package ignore evaluates gitignore-style pattern files (.passcanignore and,
// optionally, .gitignore) against root-relative paths.
package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the project-specific ignore file.
const FileName = ".passcanignore"

// GitFileName is the standard git ignore file.
const GitFileName = ".gitignore"

// Matcher decides whether a slash-separated, root-relative path is ignored.
// The zero value ignores nothing. Matchers are immutable; With returns an
// extended copy.
type Matcher struct {
	patterns []gitignore.Pattern
	m        gitignore.Matcher
}

// Parse reads patterns from data. domain is the slash-separated directory
// the file lives in, relative to the scan root ("" for the root).
func Parse(data []byte, domain string) []gitignore.Pattern {
	var dom []string
	if domain != "" && domain != "." {
		dom = split(domain)
	}
	var ps []gitignore.Pattern
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, dom))
	}
	return ps
}

// Load reads a single ignore file whose patterns apply from the root. A
// missing file yields an empty matcher and no error.
func Load(path string) (Matcher, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matcher{}, nil
		}
		return Matcher{}, err
	}
	return Matcher{}.With(Parse(b, "")), nil
}

// ReadDir returns the patterns of the named ignore files found in
// root/relDir. Unreadable files are skipped.
func ReadDir(root, relDir string, names ...string) []gitignore.Pattern {
	var ps []gitignore.Pattern
	for _, n := range names {
		b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relDir), n))
		if err != nil {
			continue
		}
		ps = append(ps, Parse(b, relDir)...)
	}
	return ps
}

// With returns a matcher that also applies ps. Later patterns take
// precedence, so nested files should be added after their parents.
func (m Matcher) With(ps []gitignore.Pattern) Matcher {
	if len(ps) == 0 {
		return m
	}
	all := make([]gitignore.Pattern, 0, len(m.patterns)+len(ps))
	all = append(all, m.patterns...)
	all = append(all, ps...)
	return Matcher{patterns: all, m: gitignore.NewMatcher(all)}
}

// Len returns the number of patterns.
func (m Matcher) Len() int { return len(m.patterns) }

// Match reports whether the file at rel is ignored.
func (m Matcher) Match(rel string) bool { return m.match(rel, false) }

// MatchDir reports whether the directory at rel is ignored.
func (m Matcher) MatchDir(rel string) bool { return m.match(rel, true) }

func (m Matcher) match(rel string, isDir bool) bool {
	if m.m == nil {
		return false
	}
	parts := split(rel)
	if len(parts) == 0 {
		return false
	}
	return m.m.Match(parts, isDir)
}

func split(rel string) []string {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return nil
	}
	return strings.Split(rel, "/")
}

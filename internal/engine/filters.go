package engine

import (
	"path"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/passcan/passcan/internal/ignore"
)

var defaultExcludeDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	"node_modules":  true,
	"target":        true,
	"vendor":        true,
	"dist":          true,
	"build":         true,
	"out":           true,
	".venv":         true,
	"venv":          true,
	"__pycache__":   true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".tox":          true,
	".idea":         true,
	".vscode":       true,
	".gradle":       true,
	"coverage":      true,
	"bin":           true,
	"obj":           true,
}

// suffixes treated as non-text/big or noisy artifacts when default excludes enabled
var defaultExcludeFileSuffixes = []string{
	".min.js", ".min.css", ".map", ".log",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".bmp", ".svg",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".bz2", ".xz", ".7z", ".rar",
	".jar", ".war", ".class", ".exe", ".dll", ".so", ".dylib", ".o", ".a",
	".wasm", ".pyc", ".woff", ".woff2", ".ttf", ".eot",
	".mp3", ".mp4", ".mov", ".avi",
	// common generated code outputs
	".pb.go", ".gen.go",
}

// exact filenames commonly safe to exclude when default excludes enabled
var defaultExcludeFileNames = map[string]bool{
	// lockfiles (package managers)
	"yarn.lock":         true,
	"package-lock.json": true,
	"pnpm-lock.yaml":    true,
	"composer.lock":     true,
	"poetry.lock":       true,
	"cargo.lock":        true,
	"go.sum":            true,
	// OS cruft
	".ds_store": true,
}

// codeExtensions is the allowlist applied by Options.CodeOnly.
var codeExtensions = map[string]bool{
	".env": true, ".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".rs": true, ".go": true, ".sh": true, ".bash": true, ".java": true, ".kt": true,
	".rb": true, ".php": true, ".cs": true, ".tf": true,
	".yml": true, ".yaml": true, ".toml": true, ".ini": true, ".cfg": true,
	".conf": true, ".properties": true, ".md": true,
}

// DefaultExcludedDir reports whether a directory named name is skipped by
// the default excludes.
func DefaultExcludedDir(name string) bool {
	return defaultExcludeDirs[name]
}

func isDefaultFileExcluded(lowerRel string) bool {
	// fast check for any *.lock
	if strings.HasSuffix(lowerRel, ".lock") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	// generic generated artifacts pattern
	if strings.Contains(path.Base(lowerRel), ".gen.") {
		return true
	}
	return defaultExcludeFileNames[path.Base(lowerRel)]
}

func isCodeFile(lowerRel string) bool {
	base := path.Base(lowerRel)
	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return true
	}
	return codeExtensions[path.Ext(base)]
}

// selector applies every path-based filter of a scan. It is shared by the
// walker and by single-path re-scans so both agree on what is in scope.
type selector struct {
	root        string
	rootIsFile  bool
	opts        Options
	includes    []string
	excludes    []string
	ignoreFiles []string
}

func newSelector(req ScanRequest, opts Options, rootIsFile bool) *selector {
	names := []string{ignore.FileName}
	if opts.UseGitignore {
		names = []string{ignore.GitFileName, ignore.FileName}
	}
	return &selector{
		root:        req.Root,
		rootIsFile:  rootIsFile,
		opts:        opts,
		includes:    parseGlobsList(req.Include),
		excludes:    parseGlobsList(req.Exclude),
		ignoreFiles: names,
	}
}

// patterns reads the ignore files of one directory.
func (s *selector) patterns(m ignore.Matcher, relDir string) ignore.Matcher {
	return m.With(ignore.ReadDir(s.root, relDir, s.ignoreFiles...))
}

func (s *selector) dirExcluded(rel, name string, m ignore.Matcher) bool {
	if s.opts.DefaultExcludes && DefaultExcludedDir(name) {
		return true
	}
	if m.MatchDir(rel) {
		return true
	}
	return len(s.excludes) > 0 && matchAnyGlob(rel, s.excludes)
}

func (s *selector) fileAllowed(rel string, m ignore.Matcher) bool {
	lower := strings.ToLower(rel)
	if s.opts.DefaultExcludes && isDefaultFileExcluded(lower) {
		return false
	}
	if s.opts.CodeOnly && !isCodeFile(lower) {
		return false
	}
	if !s.allowedByGlobs(rel) {
		return false
	}
	return !m.Match(rel)
}

// admit reports whether the absolute path abs is in scope and returns its
// slash-separated path relative to the root.
func (s *selector) admit(abs string) (string, bool) {
	if s.rootIsFile {
		if abs != s.root {
			return "", false
		}
		return filepath.Base(abs), true
	}
	r, err := filepath.Rel(s.root, abs)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel := filepath.ToSlash(r)
	parts := strings.Split(rel, "/")
	m := s.patterns(ignore.Matcher{}, "")
	for i := 0; i < len(parts)-1; i++ {
		dir := strings.Join(parts[:i+1], "/")
		if s.dirExcluded(dir, parts[i], m) {
			return rel, false
		}
		m = s.patterns(m, dir)
	}
	return rel, s.fileAllowed(rel, m)
}

// allowedByGlobs returns true if the given path is allowed by the include/exclude
// glob configuration. Include globs, if provided, act as a positive filter.
// Exclude globs are subtracted last.
func (s *selector) allowedByGlobs(rel string) bool {
	if len(s.includes) > 0 && !matchAnyGlob(rel, s.includes) {
		return false
	}
	return !(len(s.excludes) > 0 && matchAnyGlob(rel, s.excludes))
}

// parseGlobsList accepts repeated or comma-separated globs.
func parseGlobsList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p, trimGlobPrefix(p))
			}
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, path.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}

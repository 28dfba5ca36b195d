package engine

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/passcan/passcan/internal/ignore"
	"github.com/passcan/passcan/internal/types"
)

// Candidate is one file selected for scanning. Skip is set when the walker
// already knows the file cannot be matched (too large, a symlink loop, an
// unreadable directory).
type Candidate struct {
	Path   string // absolute
	Rel    string // slash-separated, relative to the root
	Size   int64
	Skip   types.SkipReason
	Detail string
}

// SkippedFile converts a flagged candidate into its report record.
func (c Candidate) SkippedFile() types.SkippedFile {
	return types.SkippedFile{Path: c.Rel, Reason: c.Skip, Detail: c.Detail}
}

// Enumerate lazily yields the files under req.Root in depth-first order,
// entries sorted by name. Each range over the sequence walks the tree again.
// Iteration stops early when ctx is cancelled.
func Enumerate(ctx context.Context, req ScanRequest, opts Options) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		info, err := os.Stat(req.Root)
		if err != nil {
			yield(Candidate{Path: req.Root, Rel: ".", Skip: types.SkipUnreadable, Detail: err.Error()})
			return
		}
		if !info.IsDir() {
			yield(sized(Candidate{Path: req.Root, Rel: filepath.Base(req.Root)}, info.Size(), req.MaxBytes))
			return
		}
		real, err := filepath.EvalSymlinks(req.Root)
		if err != nil {
			real = req.Root
		}
		w := &walker{
			ctx:     ctx,
			req:     req,
			opts:    opts,
			sel:     newSelector(req, opts, false),
			yield:   yield,
			visited: map[string]bool{real: true},
		}
		w.dir(req.Root, "", ignore.Matcher{}, []string{real})
	}
}

func sized(c Candidate, size, max int64) Candidate {
	c.Size = size
	if max > 0 && size > max {
		c.Skip = types.SkipTooLarge
	}
	return c
}

type walker struct {
	ctx     context.Context
	req     ScanRequest
	opts    Options
	sel     *selector
	yield   func(Candidate) bool
	visited map[string]bool
}

// dir walks one directory. It returns false once the consumer stops or the
// context is done.
func (w *walker) dir(abs, rel string, m ignore.Matcher, stack []string) bool {
	m = w.sel.patterns(m, rel)
	entries, err := os.ReadDir(abs)
	if err != nil {
		return w.yield(Candidate{Path: abs, Rel: relOrDot(rel), Skip: types.SkipUnreadable, Detail: err.Error()})
	}
	for _, e := range entries {
		if w.ctx.Err() != nil {
			return false
		}
		name := e.Name()
		childAbs := filepath.Join(abs, name)
		childRel := path.Join(rel, name)

		typ := e.Type()
		isLink := typ&fs.ModeSymlink != 0
		if isLink {
			if !w.opts.FollowSymlinks {
				continue
			}
			st, err := os.Stat(childAbs)
			if err != nil {
				// dangling link
				continue
			}
			typ = st.Mode().Type()
		}

		switch {
		case typ.IsDir():
			if w.sel.dirExcluded(childRel, name, m) {
				continue
			}
			real, err := filepath.EvalSymlinks(childAbs)
			if err != nil {
				continue
			}
			if slices.Contains(stack, real) {
				c := Candidate{Path: childAbs, Rel: childRel, Skip: types.SkipSymlinkLoop, Detail: "resolves to " + real}
				if !w.yield(c) {
					return false
				}
				continue
			}
			if isLink && w.visited[real] {
				continue
			}
			w.visited[real] = true
			if !w.dir(childAbs, childRel, m, append(stack, real)) {
				return false
			}
		case typ.IsRegular():
			if !w.sel.fileAllowed(childRel, m) {
				continue
			}
			info, err := os.Stat(childAbs)
			if err != nil {
				continue
			}
			if !w.yield(sized(Candidate{Path: childAbs, Rel: childRel}, info.Size(), w.req.MaxBytes)) {
				return false
			}
		}
	}
	return true
}

func relOrDot(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

// CountTargets returns how many files a full scan would visit.
func CountTargets(ctx context.Context, req ScanRequest, opts Options) int {
	n := 0
	for c := range Enumerate(ctx, req, opts) {
		if c.Skip == "" || c.Skip == types.SkipTooLarge {
			n++
		}
	}
	return n
}

// Package cache memoizes per-file match results so that unchanged content is
// not re-matched, for example when a watcher reports a write that did not
// change the bytes.
package cache

import (
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/passcan/passcan/internal/types"
)

const (
	DefaultCapacity = 4096
	DefaultTTL      = 30 * time.Minute
)

// Key identifies one match result: the same path with the same bytes under
// the same rule set always produces the same findings.
type Key struct {
	Path  string
	Hash  uint64
	Rules uint64
}

// NewKey hashes content for path under the rule set fingerprint.
func NewKey(path string, content []byte, rules uint64) Key {
	return Key{Path: path, Hash: xxhash.Sum64(content), Rules: rules}
}

// Memo is a bounded, expiring map from Key to findings. It is safe for
// concurrent use.
type Memo struct {
	c *ttlcache.Cache[Key, []types.Finding]
}

// New creates a memo holding at most capacity entries for ttl each. Zero
// values select the defaults.
func New(capacity uint64, ttl time.Duration) *Memo {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memo{c: ttlcache.New[Key, []types.Finding](
		ttlcache.WithTTL[Key, []types.Finding](ttl),
		ttlcache.WithCapacity[Key, []types.Finding](capacity),
		ttlcache.WithDisableTouchOnHit[Key, []types.Finding](),
	)}
}

// Get returns a copy of the memoized findings for k.
func (m *Memo) Get(k Key) ([]types.Finding, bool) {
	if m == nil {
		return nil, false
	}
	item := m.c.Get(k)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return clone(item.Value()), true
}

// Put stores a copy of fs under k.
func (m *Memo) Put(k Key, fs []types.Finding) {
	if m == nil {
		return
	}
	m.c.Set(k, clone(fs), ttlcache.DefaultTTL)
}

// Len returns the number of live entries.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return m.c.Len()
}

// Purge drops every entry.
func (m *Memo) Purge() {
	if m != nil {
		m.c.DeleteAll()
	}
}

func clone(fs []types.Finding) []types.Finding {
	if fs == nil {
		return nil
	}
	return append([]types.Finding(nil), fs...)
}

// Hex renders a content hash as 16 lowercase hex digits.
func Hex(h uint64) string {
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[h&0xF]
		h >>= 4
	}
	return string(buf[:])
}

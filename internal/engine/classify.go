package engine

import (
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/passcan/passcan/internal/types"
)

const (
	sniffLen = 8000
	// maxNonText is the share of control bytes above which content is binary.
	maxNonText = 0.30
)

// classify decides whether data can be matched as text. It returns "" for
// matchable content.
func classify(data []byte) (types.SkipReason, string) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	nonText, hasNUL := controlBytes(head)
	if hasNUL || (len(head) > 0 && float64(nonText)/float64(len(head)) > maxNonText) {
		return types.SkipBinary, "control bytes"
	}
	// Text-bodied formats (PostScript, playlists, FDF) carry magic strings
	// too, so the MIME sniff only decides for heads that already hold
	// control bytes.
	if nonText > 0 {
		if mt, ok := looksNonTextMIME(head); ok {
			return types.SkipBinary, mt
		}
	}
	if !utf8.Valid(data) {
		return types.SkipUndecodable, "invalid utf-8"
	}
	return "", ""
}

// controlBytes counts bytes in head that do not occur in text and reports
// whether any of them is NUL.
func controlBytes(head []byte) (n int, nul bool) {
	for _, b := range head {
		switch {
		case b == 0:
			return n + 1, true
		case b == '\t', b == '\n', b == '\r', b == '\f', b == '\b', b == 0x1b:
		case b < 0x20, b == 0x7f:
			n++
		}
	}
	return n, false
}

// looksNonTextMIME sniffs well-known binary formats (images, archives,
// executables). Anything under text/plain, or unrecognised, passes.
func looksNonTextMIME(head []byte) (string, bool) {
	mt := mimetype.Detect(head)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return "", false
		}
	}
	if mt.Is("application/octet-stream") {
		return "", false
	}
	return mt.String(), true
}

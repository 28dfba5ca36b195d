package detectors

import "strings"

const (
	dirIgnore     = "ignore"
	dirNextLine   = "ignore-next-line"
	dirStart      = "ignore-start"
	dirEnd        = "ignore-end"
	dirIgnoreFile = "ignore-file"
)

// directive returns the inline suppression named on line, if any. Both
// "passcan:ignore" and "passcan: ignore" are accepted.
func directive(line string) string {
	i := strings.Index(line, "passcan:")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(line[i+len("passcan:"):], " ")
	for _, d := range []string{dirNextLine, dirStart, dirEnd, dirIgnoreFile} {
		if strings.HasPrefix(rest, d) {
			return d
		}
	}
	if strings.HasPrefix(rest, dirIgnore) {
		return dirIgnore
	}
	return ""
}

// suppressor tracks region and next-line state while walking lines in order.
type suppressor struct {
	region   bool
	skipNext bool
}

// skip consumes line and reports whether it must not be matched.
func (s *suppressor) skip(line string) bool {
	switch directive(line) {
	case dirStart:
		s.region = true
		return true
	case dirEnd:
		s.region = false
		return true
	}
	if s.region {
		return true
	}
	if s.skipNext {
		s.skipNext = false
		return true
	}
	switch directive(line) {
	case dirNextLine:
		s.skipNext = true
		return true
	case dirIgnore, dirIgnoreFile:
		return true
	}
	return false
}

// fileIgnored reports whether text carries a whole-file suppression.
func fileIgnored(text string) bool {
	for {
		i := strings.Index(text, "passcan:")
		if i < 0 {
			return false
		}
		if directive(text[i:]) == dirIgnoreFile {
			return true
		}
		text = text[i+len("passcan:"):]
	}
}

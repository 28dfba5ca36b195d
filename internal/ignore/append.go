package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Append ensures pattern is present in the ignore file name at root. It
// creates the file if missing and never duplicates a line.
func Append(root, name, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	path := filepath.Join(root, name)
	existing := map[string]bool{}
	endsWithNewline := true
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		endsWithNewline = len(b) == 0 || b[len(b)-1] == '\n'
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if !endsWithNewline {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(pattern + "\n")
	return err
}

// DefaultGeneratedIgnores returns generated-code patterns that are safe to
// ignore.
func DefaultGeneratedIgnores() []string {
	return []string{
		"*.pb.go",
		"*.gen.*",
	}
}

package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/passcan/passcan/internal/report"
)

// WriteResult writes res in the format of `passcan scan --json`. With redact
// set every match is masked.
func WriteResult(w io.Writer, res Result, redact bool) error {
	if redact {
		res = res.Redacted()
	}
	return report.WriteJSON(w, res)
}

// ReadFindings decodes either a bare JSON array of findings or a full
// `passcan scan --json` document.
func ReadFindings(r io.Reader) ([]Finding, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var fs []Finding
		if err := json.Unmarshal(b, &fs); err != nil {
			return nil, fmt.Errorf("decode findings: %w", err)
		}
		return fs, nil
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("decode scan result: %w", err)
	}
	return res.Findings, nil
}

package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestScan_Smoke(t *testing.T) {
	findings, err := Scan(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings in empty dir, got %d", len(findings))
	}
	if len(RuleIDs()) == 0 {
		t.Fatal("expected non-empty rule IDs")
	}
}

func TestScanWithStats(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.txt"), []byte("# deploy settings\nregion = us-east-1\nAKIA1234567890ABCDEF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := ScanWithStats(context.Background(), Config{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesScanned != 1 || len(res.Findings) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f := res.Findings[0]; f.Line != 3 || f.RuleID != "aws_access_key" {
		t.Fatalf("unexpected finding: %+v", f)
	}
}

func TestScanWithStats_GitleaksRules(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.txt"), []byte("AKIA1234567890ABCDEF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := ScanWithStats(context.Background(), Config{Root: dir, Gitleaks: true})
	if err != nil {
		t.Fatalf("gitleaks rule pack: %v", err)
	}
	found := false
	for _, f := range res.Findings {
		if f.RuleID == "aws_access_key" {
			found = true
		}
	}
	if !found {
		t.Fatalf("built-in rule lost when gitleaks rules are added: %+v", res.Findings)
	}
}

func TestScan_BadRuleFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rules.yml")
	if err := os.WriteFile(p, []byte("rules:\n  - id: x\n    pattern: '('\n    severity: high\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Scan(Config{Root: dir, RuleFiles: []string{p}})
	if err == nil {
		t.Fatal("expected load error")
	}
}

func TestScanText(t *testing.T) {
	fs, err := ScanText("x.py", []byte(`password = "password"`))
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 0 {
		t.Fatalf("expected no findings, got %+v", fs)
	}
}

func TestWriteResult_ReadFindings(t *testing.T) {
	fs, _ := ScanText("a.env", []byte("KEY=AKIA1234567890ABCDEF\n"))
	var buf bytes.Buffer
	if err := WriteResult(&buf, Result{Root: ".", FilesScanned: 1, Findings: fs}, true); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("AKIA1234567890ABCDEF")) {
		t.Fatal("redacted result leaks the secret")
	}
	back, err := ReadFindings(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != len(fs) || back[0].RuleID != fs[0].RuleID {
		t.Fatalf("round trip mismatch: %+v", back)
	}

	back, err = ReadFindings(strings.NewReader(`[{"path":"x","line":2,"rule":"jwt"}]`))
	if err != nil || len(back) != 1 || back[0].Line != 2 {
		t.Fatalf("bare array: %+v, %v", back, err)
	}
	if _, err := ReadFindings(strings.NewReader("nope")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan Result, 1)
	deltas := make(chan Delta, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Config{Root: dir}, 20*time.Millisecond,
			func(r Result) { ready <- r },
			func(d Delta) { deltas <- d })
	}()
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("initial scan did not finish")
	}
	if err := os.WriteFile(filepath.Join(dir, "new.env"), []byte("K=AKIA1234567890ABCDEF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for added := 0; added == 0; {
		select {
		case d := <-deltas:
			added += len(d.Added)
		case <-deadline:
			t.Fatal("no delta with the new finding")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}

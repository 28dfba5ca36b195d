package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/passcan/passcan/internal/rules"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "passcan.yaml", "threads: 4\nmax_bytes: 123\ncode_only: true\nmatch_timeout: 2s\n")
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 4 {
		t.Fatalf("expected threads=4, got %#v", cfg.Threads)
	}
	if cfg.MaxBytes == nil || *cfg.MaxBytes != 123 {
		t.Fatalf("expected max_bytes=123, got %#v", cfg.MaxBytes)
	}
	if cfg.CodeOnly == nil || !*cfg.CodeOnly {
		t.Fatalf("expected code_only=true")
	}
	if cfg.Gitignore != nil {
		t.Fatalf("unset field should stay nil")
	}
	d, err := Duration(cfg.MatchTimeout, time.Second)
	if err != nil || d != 2*time.Second {
		t.Fatalf("match_timeout = %v, %v", d, err)
	}
	if cfg.Path() != p {
		t.Fatalf("Path() = %q", cfg.Path())
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "passcan.yml", "threads: [1\n")
	if _, err := LoadFile(p); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	// place both, expect the dotfile to be picked first by search order
	writeTemp(t, dir, "passcan.yaml", "threads: 1\n")
	writeTemp(t, dir, ".passcan.yaml", "threads: 7\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 7 {
		t.Fatalf("expected threads=7 from .passcan.yaml, got %#v", cfg.Threads)
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLocal(dir); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, filepath.Join("passcan", "config.yml"), "threads: 9\n")
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Threads == nil || *cfg.Threads != 9 {
		t.Fatalf("expected threads=9 from global config, got %#v", cfg.Threads)
	}
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
}

func TestRuleSources(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, filepath.Join("rules", "extra.yml"), `rules:
  - id: internal_key
    pattern: 'ik_[A-Za-z0-9]{24}'
    severity: high
`)
	p := writeTemp(t, dir, ".passcan.yml", `rule_files: [rules/extra.yml]
overrides:
  - id: generic_token
    min_entropy: 5.5
  - id: internal_key
    severity: critical
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	srcs, err := cfg.RuleSources()
	if err != nil {
		t.Fatal(err)
	}
	if len(srcs) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(srcs))
	}
	rs, err := rules.Load(srcs...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, ok := rs.ByID("internal_key")
	if !ok || r.Severity != "critical" {
		t.Fatalf("override not applied: %+v", r)
	}
	g, _ := rs.ByID("generic_token")
	if g.MinEntropy != 5.5 {
		t.Fatalf("generic_token min_entropy = %v", g.MinEntropy)
	}

	cfg.RuleFiles = []string{"rules/missing.yml"}
	if _, err := cfg.RuleSources(); err == nil {
		t.Fatal("expected error for missing rule file")
	}
}

func TestDuration(t *testing.T) {
	bad := "soon"
	if _, err := Duration(&bad, 0); err == nil {
		t.Fatal("expected error")
	}
	if d, _ := Duration(nil, time.Minute); d != time.Minute {
		t.Fatalf("default not applied: %v", d)
	}
}

func TestTemplateParses(t *testing.T) {
	p := writeTemp(t, t.TempDir(), ".passcan.yml", Template)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if cfg.FailOn == nil || *cfg.FailOn != "medium" {
		t.Fatalf("fail_on = %#v", cfg.FailOn)
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/actionpin/internal/config"
	"github.com/kingrea/actionpin/internal/logging"
	"github.com/kingrea/actionpin/internal/lookup/lookuptest"
)

func TestInitWritesDefaultConfig(t *testing.T) {
	root := t.TempDir()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", root})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, config.FileName)); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if !strings.Contains(out.String(), "Wrote ") {
		t.Fatalf("unexpected output %q", out.String())
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", root})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected second init to refuse overwriting")
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	root := t.TempDir()
	yaml := "concurrency: 3\nkey: action\nlookup_timeout: 10s\n"
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ACTIONPIN_CONCURRENCY", "")
	t.Setenv("ACTIONPIN_BACKEND", "")

	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--concurrency", "9", "--backend", "gh"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	flags := &runFlags{concurrency: 9, backend: "gh"}
	cfg, err := loadConfig(root, flags, cmd.Flags())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Concurrency != 9 || cfg.GitHub.Backend != "gh" {
		t.Fatalf("flags did not override: concurrency=%d backend=%q", cfg.Concurrency, cfg.GitHub.Backend)
	}
	if cfg.Key != "action" || cfg.LookupTimeout != 10*time.Second {
		t.Fatalf("file values lost: key=%q timeout=%s", cfg.Key, cfg.LookupTimeout)
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--concurrency", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := loadConfig(t.TempDir(), &runFlags{}, cmd.Flags()); err == nil {
		t.Fatalf("expected validation error for concurrency 0")
	}
}

func TestRootDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := rootDir([]string{file}); err == nil {
		t.Fatalf("expected error for non-directory root")
	}
}

func TestDryRunLeavesWorkflowsUntouched(t *testing.T) {
	root := t.TempDir()
	workflows := filepath.Join(root, ".github", "workflows")
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(workflows, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	original := "steps:\n  - uses: ./local\n"
	path := filepath.Join(workflows, "ci.yml")
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--dry-run", root})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != original {
		t.Fatalf("dry run modified workflow:\n%s", data)
	}
	if !strings.Contains(out.String(), "Repositories processed: 1") {
		t.Fatalf("expected summary in output:\n%s", out.String())
	}
}

func TestPinAllRewritesAndBacksUpWorkflows(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "app")
	workflows := filepath.Join(repoDir, ".github", "workflows")
	if err := os.MkdirAll(filepath.Join(repoDir, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(workflows, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	original := "jobs:\n  build:\n    steps:\n      - uses: actions/checkout@v4 # pinned below\n      - uses: ./local\n"
	path := filepath.Join(workflows, "ci.yml")
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.Load(root, "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	backups := t.TempDir()
	cfg.BackupDir = backups

	const sha = "0123456789abcdef0123456789abcdef01234567"
	fake := &lookuptest.Fake{
		DefaultBranches: map[string]string{"actions/checkout": "main"},
		Tips:            map[string]string{"actions/checkout@main": sha},
	}
	var out bytes.Buffer
	if err := pinAll(context.Background(), &out, cfg, &runFlags{}, fake); err != nil {
		t.Fatalf("pinAll failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "actions/checkout@"+sha) {
		t.Fatalf("reference not pinned:\n%s", data)
	}
	if !strings.Contains(string(data), "./local") || !strings.Contains(string(data), "# pinned below") {
		t.Fatalf("expected local reference and comment to survive:\n%s", data)
	}

	runs, err := os.ReadDir(backups)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one backup run dir, got %v (err %v)", runs, err)
	}
	runDir := filepath.Join(backups, runs[0].Name())
	saved, err := os.ReadFile(filepath.Join(runDir, "app", ".github", "workflows", "ci.yml"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(saved) != original {
		t.Fatalf("backup differs from original:\n%s", saved)
	}
	if _, err := os.Stat(filepath.Join(runDir, logging.FileName)); err != nil {
		t.Fatalf("expected log file in run dir: %v", err)
	}

	for _, want := range []string{"Pinned actions/checkout from v4", "Action references updated: 1", "Backup location: " + runDir} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

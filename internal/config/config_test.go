package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected no config path, got %q", cfg.Path)
	}
	if cfg.Concurrency != DefaultConcurrency || cfg.Key != DefaultKey || cfg.WorkflowsDir != DefaultWorkflowsDir {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.GitHub.Backend != DefaultBackend || cfg.LookupTimeout != 0 {
		t.Fatalf("unexpected github defaults: %+v", cfg)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	root := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
concurrency: 8
key: uses
workflows_dir: .gitea/workflows
backup_dir: /tmp/pins
lookup_timeout: 45s
github:
  backend: GH
  gh_binary: /opt/gh
`)
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Fatalf("unexpected path %q", cfg.Path)
	}
	if cfg.Concurrency != 8 || cfg.WorkflowsDir != ".gitea/workflows" || cfg.BackupDir != "/tmp/pins" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.LookupTimeout != 45*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.LookupTimeout)
	}
	if cfg.GitHub.Backend != "gh" || cfg.GitHub.GHBinary != "/opt/gh" {
		t.Fatalf("unexpected github config: %+v", cfg.GitHub)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"version":  "version: 2\n",
		"backend":  "github:\n  backend: svn\n",
		"timeout":  "lookup_timeout: soon\n",
		"absolute": "workflows_dir: /etc\n",
		"negative": "concurrency: -1\n",
		"syntax":   "concurrency: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.WriteFile(filepath.Join(root, FileName), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(root, ""); err == nil {
				t.Fatalf("expected validation error for %q", body)
			}
		})
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	if _, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	env := map[string]string{
		"ACTIONPIN_CONCURRENCY": "12",
		"ACTIONPIN_BACKEND":     "gh",
		"ACTIONPIN_BACKUP_DIR":  "/var/backups/pins",
		"GITHUB_API_URL":        "https://ghe.example.com/api/v3",
		"GH_TOKEN":              "gh-token",
	}
	cfg.ApplyEnv(func(key string) string { return env[key] })
	if cfg.Concurrency != 12 || cfg.GitHub.Backend != "gh" || cfg.BackupDir != "/var/backups/pins" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.GitHub.BaseURL != "https://ghe.example.com/api/v3" || cfg.Token != "gh-token" {
		t.Fatalf("unexpected github settings: %+v token=%q", cfg.GitHub, cfg.Token)
	}

	env["GITHUB_TOKEN"] = "primary"
	env["ACTIONPIN_CONCURRENCY"] = "zero"
	cfg.ApplyEnv(func(key string) string { return env[key] })
	if cfg.Token != "primary" {
		t.Fatalf("expected GITHUB_TOKEN to win, got %q", cfg.Token)
	}
	if cfg.Concurrency != 12 {
		t.Fatalf("invalid concurrency override must be ignored, got %d", cfg.Concurrency)
	}
}

func TestResolvedBackupDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := &Config{BackupDir: "~/.actions-backups"}
	dir, err := cfg.ResolvedBackupDir()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dir != filepath.Join(home, ".actions-backups") {
		t.Fatalf("unexpected backup dir %q", dir)
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, FileName)
	if err := WriteDefault(path); err != nil {
		t.Fatalf("write default: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatalf("expected existing file to be refused")
	}
	cfg, err := Load(root, "")
	if err != nil {
		t.Fatalf("load default file: %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency || cfg.GitHub.Backend != DefaultBackend {
		t.Fatalf("default file did not decode to defaults: %+v", cfg)
	}
}

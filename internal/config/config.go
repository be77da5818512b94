// internal/config/config.go
//
// This package loads actionpin's run configuration. Settings come from
// built-in defaults, then an optional .actionpin.yaml in the root directory,
// then environment variables. Command-line flags are applied last by the CLI.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the optional per-root configuration file.
	FileName = ".actionpin.yaml"

	DefaultConcurrency  = 5
	DefaultKey          = "uses"
	DefaultWorkflowsDir = ".github/workflows"
	DefaultBackupDir    = "~/.actions-backups"
	DefaultBackend      = "api"
)

const defaultConfigYAML = `# actionpin configuration
version: 1

# Maximum GitHub lookups in flight per repository.
concurrency: 5

# Mapping key whose values are action references.
key: uses

# Workflow directory, relative to each repository.
workflows_dir: .github/workflows

# Every run stores copies of the original workflows under a timestamped
# directory here.
backup_dir: ~/.actions-backups

# Bound for a single GitHub lookup, e.g. 30s. Empty means no bound.
lookup_timeout: ""

github:
  # api talks to the REST API (token from GITHUB_TOKEN or GH_TOKEN);
  # gh shells out to the gh CLI and reuses its login.
  backend: api
  # base_url: https://ghe.example.com/api/v3/
  # gh_binary: gh
`

// GitHubConfig selects how repositories are looked up.
type GitHubConfig struct {
	Backend  string `yaml:"backend"`
	BaseURL  string `yaml:"base_url,omitempty"`
	GHBinary string `yaml:"gh_binary,omitempty"`
}

// FileConfig models .actionpin.yaml.
type FileConfig struct {
	Version       int          `yaml:"version"`
	Concurrency   int          `yaml:"concurrency"`
	Key           string       `yaml:"key"`
	WorkflowsDir  string       `yaml:"workflows_dir"`
	BackupDir     string       `yaml:"backup_dir"`
	LookupTimeout string       `yaml:"lookup_timeout"`
	GitHub        GitHubConfig `yaml:"github"`
}

// Config holds the runtime configuration for one actionpin run.
type Config struct {
	// RootDir is the directory scanned for repositories.
	RootDir string
	// Path is the config file that was loaded, if any.
	Path string

	Concurrency   int
	Key           string
	WorkflowsDir  string
	BackupDir     string
	LookupTimeout time.Duration
	GitHub        GitHubConfig
	// Token authenticates GitHub API calls. It is only read from the
	// environment.
	Token string
}

// Load builds a Config for rootDir. When path is empty, rootDir/.actionpin.yaml
// is used if it exists. An explicit path must exist.
func Load(rootDir, path string) (*Config, error) {
	file := defaultFileConfig()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = filepath.Join(rootDir, FileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		path = ""
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	file.applyDefaults()
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	timeout, err := parseTimeout(file.LookupTimeout)
	if err != nil {
		return nil, fmt.Errorf("config: lookup_timeout: %w", err)
	}

	cfg := &Config{
		RootDir:       rootDir,
		Path:          path,
		Concurrency:   file.Concurrency,
		Key:           file.Key,
		WorkflowsDir:  file.WorkflowsDir,
		BackupDir:     file.BackupDir,
		LookupTimeout: timeout,
		GitHub:        file.GitHub,
	}
	return cfg, nil
}

// ApplyEnv layers environment overrides on top of the loaded values.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c == nil || getenv == nil {
		return
	}
	if value := strings.TrimSpace(getenv("ACTIONPIN_CONCURRENCY")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			c.Concurrency = parsed
		}
	}
	if value := strings.TrimSpace(getenv("ACTIONPIN_BACKEND")); value != "" {
		c.GitHub.Backend = normalizeBackend(value)
	}
	if value := strings.TrimSpace(getenv("ACTIONPIN_BACKUP_DIR")); value != "" {
		c.BackupDir = value
	}
	if value := strings.TrimSpace(getenv("GITHUB_API_URL")); value != "" && c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = value
	}
	for _, name := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if value := strings.TrimSpace(getenv(name)); value != "" {
			c.Token = value
			break
		}
	}
}

// Validate checks values after flags have been applied.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be >= 1")
	}
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("config: key is required")
	}
	switch c.GitHub.Backend {
	case "api", "gh":
	default:
		return fmt.Errorf("config: github.backend must be 'api' or 'gh'")
	}
	return nil
}

// ResolvedBackupDir expands a leading ~ and makes the backup root absolute.
func (c *Config) ResolvedBackupDir() (string, error) {
	dir := strings.TrimSpace(c.BackupDir)
	if dir == "" {
		dir = DefaultBackupDir
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Abs(dir)
}

// WriteDefault writes a commented default config file to path. Existing
// files are left untouched and reported as an error.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: ensure dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version:      1,
		Concurrency:  DefaultConcurrency,
		Key:          DefaultKey,
		WorkflowsDir: DefaultWorkflowsDir,
		BackupDir:    DefaultBackupDir,
		GitHub:       GitHubConfig{Backend: DefaultBackend},
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if fc.Concurrency == 0 {
		fc.Concurrency = DefaultConcurrency
	}
	fc.Key = strings.TrimSpace(fc.Key)
	if fc.Key == "" {
		fc.Key = DefaultKey
	}
	fc.WorkflowsDir = strings.TrimSpace(fc.WorkflowsDir)
	if fc.WorkflowsDir == "" {
		fc.WorkflowsDir = DefaultWorkflowsDir
	}
	fc.BackupDir = strings.TrimSpace(fc.BackupDir)
	if fc.BackupDir == "" {
		fc.BackupDir = DefaultBackupDir
	}
	fc.GitHub.Backend = normalizeBackend(fc.GitHub.Backend)
	fc.GitHub.BaseURL = strings.TrimSpace(fc.GitHub.BaseURL)
	fc.GitHub.GHBinary = strings.TrimSpace(fc.GitHub.GHBinary)
}

func (fc FileConfig) validate() error {
	if fc.Version != 1 {
		return fmt.Errorf("unsupported config version %d", fc.Version)
	}
	if fc.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1")
	}
	if filepath.IsAbs(fc.WorkflowsDir) {
		return fmt.Errorf("workflows_dir must be relative to the repository")
	}
	switch fc.GitHub.Backend {
	case "api", "gh":
	default:
		return fmt.Errorf("github.backend must be 'api' or 'gh'")
	}
	return nil
}

func normalizeBackend(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return DefaultBackend
	}
	return value
}

func parseTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

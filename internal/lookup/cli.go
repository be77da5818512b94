package lookup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CLI answers lookups by running the gh command line tool, which reuses the
// user's existing gh authentication.
type CLI struct {
	binary string
	run    Runner
}

// NewCLI creates a gh-backed Lookup. A nil runner executes real processes.
func NewCLI(binary string, run Runner) *CLI {
	if strings.TrimSpace(binary) == "" {
		binary = "gh"
	}
	if run == nil {
		run = execRunner
	}
	return &CLI{binary: binary, run: run}
}

// DefaultBranch implements Lookup.
func (c *CLI) DefaultBranch(ctx context.Context, repo string) (string, error) {
	out, err := c.run(ctx, c.binary, "repo", "view", repo, "--json", "defaultBranchRef", "-q", ".defaultBranchRef.name")
	if err != nil {
		return "", fmt.Errorf("lookup: gh repo view %s: %w", repo, err)
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" {
		return "", fmt.Errorf("lookup: gh repo view %s returned no default branch", repo)
	}
	return branch, nil
}

// BranchExists implements Lookup.
func (c *CLI) BranchExists(ctx context.Context, repo, branch string) bool {
	_, err := c.run(ctx, c.binary, "api", fmt.Sprintf("repos/%s/branches/%s", repo, branch))
	return err == nil
}

// BranchTip implements Lookup.
func (c *CLI) BranchTip(ctx context.Context, repo, branch string) (string, error) {
	out, err := c.run(ctx, c.binary, "api", fmt.Sprintf("repos/%s/commits/%s", repo, branch), "--jq", ".sha")
	if err != nil {
		return "", fmt.Errorf("lookup: gh api commits %s@%s: %w", repo, branch, err)
	}
	sha := strings.TrimSpace(string(out))
	if sha == "" {
		return "", fmt.Errorf("lookup: gh api commits %s@%s returned no sha", repo, branch)
	}
	return sha, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return out, fmt.Errorf("%w: %s", err, msg)
			}
		}
		return out, err
	}
	return out, nil
}

// Package resolver turns an action repository into the commit SHA at the tip
// of its default branch.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/actionpin/internal/lookup"
)

const (
	// FallbackBranch is probed when the default branch cannot be looked up.
	FallbackBranch = "main"
	// LegacyBranch is assumed, without verification, when FallbackBranch is
	// missing too.
	LegacyBranch = "master"
)

// Resolution describes how a repository was resolved.
type Resolution struct {
	Repository string
	Branch     string
	Commit     string
	// Fallback is true when the default branch lookup failed and the branch
	// was chosen by probing.
	Fallback bool
}

// Error reports that a repository could not be resolved to a commit.
type Error struct {
	Repository string
	Branch     string
	Err        error
}

func (e *Error) Error() string {
	if e.Branch == "" {
		return fmt.Sprintf("resolve %s: %v", e.Repository, e.Err)
	}
	return fmt.Sprintf("resolve %s@%s: %v", e.Repository, e.Branch, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolver performs the two sequential lookups for one repository. It holds
// no state between calls; repeated repositories are resolved again.
type Resolver struct {
	lookup  lookup.Lookup
	timeout time.Duration
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithTimeout bounds every individual lookup. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a Resolver on top of l.
func New(l lookup.Lookup, opts ...Option) (*Resolver, error) {
	if l == nil {
		return nil, errors.New("resolver: lookup is required")
	}
	r := &Resolver{lookup: l}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve finds the default branch of repo (owner/name) and returns the
// commit at its tip. When the default branch cannot be determined, "main" is
// probed and "master" is assumed if the probe fails.
func (r *Resolver) Resolve(ctx context.Context, repo string) (Resolution, error) {
	repo = strings.TrimSpace(repo)
	res := Resolution{Repository: repo}

	branch, err := r.defaultBranch(ctx, repo)
	if err != nil || branch == "" {
		res.Fallback = true
		if r.branchExists(ctx, repo, FallbackBranch) {
			branch = FallbackBranch
		} else {
			branch = LegacyBranch
		}
	}
	res.Branch = branch

	commit, err := r.branchTip(ctx, repo, branch)
	if err != nil {
		return res, &Error{Repository: repo, Branch: branch, Err: err}
	}
	res.Commit = commit
	return res, nil
}

func (r *Resolver) defaultBranch(ctx context.Context, repo string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	branch, err := r.lookup.DefaultBranch(ctx, repo)
	return strings.TrimSpace(branch), err
}

func (r *Resolver) branchExists(ctx context.Context, repo, branch string) bool {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return r.lookup.BranchExists(ctx, repo, branch)
}

func (r *Resolver) branchTip(ctx context.Context, repo, branch string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	commit, err := r.lookup.BranchTip(ctx, repo, branch)
	if err != nil {
		return "", err
	}
	commit = strings.TrimSpace(commit)
	if commit == "" {
		return "", errors.New("empty commit")
	}
	return commit, nil
}

func (r *Resolver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

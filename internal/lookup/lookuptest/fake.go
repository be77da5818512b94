// Package lookuptest provides a scripted lookup.Lookup for tests.
package lookuptest

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Call records one lookup made against a Fake.
type Call struct {
	Method string
	Repo   string
	Branch string
}

// Fake answers lookups from in-memory tables. Unknown repositories and
// branches produce errors, matching how GitHub answers with 404.
type Fake struct {
	// DefaultBranches maps owner/name to its default branch.
	DefaultBranches map[string]string
	// Branches lists existing branches as "owner/name@branch".
	Branches map[string]bool
	// Tips maps "owner/name@branch" to the commit SHA at its tip.
	Tips map[string]string
	// Delay is slept inside every lookup so tests can observe concurrency.
	Delay time.Duration

	mu     sync.Mutex
	calls  []Call
	active int
	peak   int
}

// DefaultBranch implements lookup.Lookup.
func (f *Fake) DefaultBranch(ctx context.Context, repo string) (string, error) {
	defer f.enter(Call{Method: "DefaultBranch", Repo: repo})()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	branch, ok := f.DefaultBranches[repo]
	if !ok {
		return "", fmt.Errorf("lookuptest: repository %s not found", repo)
	}
	return branch, nil
}

// BranchExists implements lookup.Lookup.
func (f *Fake) BranchExists(ctx context.Context, repo, branch string) bool {
	defer f.enter(Call{Method: "BranchExists", Repo: repo, Branch: branch})()
	if err := f.wait(ctx); err != nil {
		return false
	}
	return f.Branches[repo+"@"+branch]
}

// BranchTip implements lookup.Lookup.
func (f *Fake) BranchTip(ctx context.Context, repo, branch string) (string, error) {
	defer f.enter(Call{Method: "BranchTip", Repo: repo, Branch: branch})()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	sha, ok := f.Tips[repo+"@"+branch]
	if !ok {
		return "", fmt.Errorf("lookuptest: branch %s@%s not found", repo, branch)
	}
	return sha, nil
}

// Calls returns a copy of every lookup made so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Peak returns the largest number of lookups that were running at once.
func (f *Fake) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

func (f *Fake) enter(call Call) func() {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}
}

func (f *Fake) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

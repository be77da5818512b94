package resolver

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kingrea/actionpin/internal/lookup/lookuptest"
)

func TestResolveUsesDefaultBranch(t *testing.T) {
	fake := &lookuptest.Fake{
		DefaultBranches: map[string]string{"actions/checkout": "main"},
		Tips:            map[string]string{"actions/checkout@main": "abc123"},
	}
	r := mustResolver(t, fake)

	res, err := r.Resolve(context.Background(), "actions/checkout")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := Resolution{Repository: "actions/checkout", Branch: "main", Commit: "abc123"}
	if res != want {
		t.Fatalf("got %+v, want %+v", res, want)
	}
	wantCalls := []lookuptest.Call{
		{Method: "DefaultBranch", Repo: "actions/checkout"},
		{Method: "BranchTip", Repo: "actions/checkout", Branch: "main"},
	}
	if calls := fake.Calls(); !reflect.DeepEqual(calls, wantCalls) {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	cases := []struct {
		name       string
		branches   map[string]bool
		tips       map[string]string
		wantBranch string
		wantCalls  []lookuptest.Call
	}{
		{
			name:       "probe main",
			branches:   map[string]bool{"octo/tool@main": true},
			tips:       map[string]string{"octo/tool@main": "sha-main"},
			wantBranch: "main",
			wantCalls: []lookuptest.Call{
				{Method: "DefaultBranch", Repo: "octo/tool"},
				{Method: "BranchExists", Repo: "octo/tool", Branch: "main"},
				{Method: "BranchTip", Repo: "octo/tool", Branch: "main"},
			},
		},
		{
			name:       "assume master",
			tips:       map[string]string{"octo/tool@master": "sha-master"},
			wantBranch: "master",
			wantCalls: []lookuptest.Call{
				{Method: "DefaultBranch", Repo: "octo/tool"},
				{Method: "BranchExists", Repo: "octo/tool", Branch: "main"},
				{Method: "BranchTip", Repo: "octo/tool", Branch: "master"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &lookuptest.Fake{Branches: tc.branches, Tips: tc.tips}
			r := mustResolver(t, fake)
			res, err := r.Resolve(context.Background(), "octo/tool")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !res.Fallback || res.Branch != tc.wantBranch {
				t.Fatalf("unexpected resolution %+v", res)
			}
			if calls := fake.Calls(); !reflect.DeepEqual(calls, tc.wantCalls) {
				t.Fatalf("unexpected calls: %+v", calls)
			}
		})
	}
}

func TestResolveTipFailureIsResolutionError(t *testing.T) {
	fake := &lookuptest.Fake{}
	r := mustResolver(t, fake)

	_, err := r.Resolve(context.Background(), "ghost/repo")
	var resErr *Error
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if resErr.Repository != "ghost/repo" || resErr.Branch != LegacyBranch {
		t.Fatalf("unexpected error fields: %+v", resErr)
	}
}

func TestResolveTimeoutBoundsEachLookup(t *testing.T) {
	fake := &lookuptest.Fake{
		DefaultBranches: map[string]string{"slow/repo": "main"},
		Tips:            map[string]string{"slow/repo@main": "sha"},
		Delay:           200 * time.Millisecond,
	}
	r := mustResolver(t, fake, WithTimeout(10*time.Millisecond))

	_, err := r.Resolve(context.Background(), "slow/repo")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewRequiresLookup(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error without lookup")
	}
}

func mustResolver(t *testing.T, fake *lookuptest.Fake, opts ...Option) *Resolver {
	t.Helper()
	r, err := New(fake, opts...)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

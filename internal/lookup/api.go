package lookup

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v68/github"
)

// API talks to the GitHub REST API.
type API struct {
	client *github.Client
}

// NewAPI creates a REST-backed Lookup.
func NewAPI(settings Settings) (*API, error) {
	client := github.NewClient(settings.HTTPClient)
	if token := strings.TrimSpace(settings.Token); token != "" {
		client = client.WithAuthToken(token)
	}
	if base := strings.TrimSpace(settings.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("lookup: parse base url %q: %w", settings.BaseURL, err)
		}
		client.BaseURL = parsed
	}
	return &API{client: client}, nil
}

// DefaultBranch implements Lookup.
func (a *API) DefaultBranch(ctx context.Context, repo string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	info, _, err := a.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("lookup: get repository %s: %w", repo, err)
	}
	branch := strings.TrimSpace(info.GetDefaultBranch())
	if branch == "" {
		return "", fmt.Errorf("lookup: repository %s reports no default branch", repo)
	}
	return branch, nil
}

// BranchExists implements Lookup.
func (a *API) BranchExists(ctx context.Context, repo, branch string) bool {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return false
	}
	_, _, err = a.client.Repositories.GetBranch(ctx, owner, name, branch, 1)
	return err == nil
}

// BranchTip implements Lookup.
func (a *API) BranchTip(ctx context.Context, repo, branch string) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}
	sha, _, err := a.client.Repositories.GetCommitSHA1(ctx, owner, name, branch, "")
	if err != nil {
		return "", fmt.Errorf("lookup: tip of %s@%s: %w", repo, branch, err)
	}
	sha = strings.TrimSpace(sha)
	if sha == "" {
		return "", fmt.Errorf("lookup: tip of %s@%s is empty", repo, branch)
	}
	return sha, nil
}

package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	BackendAPI = "api"
	BackendGH  = "gh"
)

// Lookup answers the repository questions needed to pin an action.
type Lookup interface {
	// DefaultBranch returns the repository's configured default branch.
	DefaultBranch(ctx context.Context, repo string) (string, error)
	// BranchExists reports whether branch exists. It is only used as a
	// fallback signal, so lookup errors count as "does not exist".
	BranchExists(ctx context.Context, repo, branch string) bool
	// BranchTip returns the commit SHA at the tip of branch.
	BranchTip(ctx context.Context, repo, branch string) (string, error)
}

// Settings selects and configures a Lookup implementation.
type Settings struct {
	Backend string
	// Token authenticates API requests. Empty means anonymous.
	Token string
	// BaseURL overrides the REST endpoint, e.g. https://ghe.example.com/api/v3/.
	BaseURL string
	// GHBinary is the gh executable used by the CLI backend.
	GHBinary string
	// HTTPClient is used by the API backend when set.
	HTTPClient *http.Client
}

// New builds the Lookup named by settings.Backend.
func New(settings Settings) (Lookup, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Backend)) {
	case "", BackendAPI:
		return NewAPI(settings)
	case BackendGH:
		return NewCLI(settings.GHBinary, nil), nil
	default:
		return nil, fmt.Errorf("lookup: unknown backend %q (want %q or %q)", settings.Backend, BackendAPI, BackendGH)
	}
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("lookup: %q is not owner/name", repo)
	}
	return owner, name, nil
}

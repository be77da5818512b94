package walker

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/actionpin/internal/gate"
	"github.com/kingrea/actionpin/internal/reference"
	"github.com/kingrea/actionpin/internal/resolver"
)

// DefaultKey is the mapping key whose string values are action references.
const DefaultKey = "uses"

// Resolver resolves an owner/name repository to a commit.
type Resolver interface {
	Resolve(ctx context.Context, repo string) (resolver.Resolution, error)
}

// Update records one reference that was rewritten.
type Update struct {
	// Path is the action path (owner/name[/subpath]).
	Path   string
	OldRef string
	NewRef string
	// Branch is the branch whose tip NewRef came from.
	Branch string
	// Line is the 1-based line of the reference in the source document.
	Line int
}

// Failure records a reference that could not be resolved. The reference is
// left unchanged.
type Failure struct {
	Reference reference.Reference
	Line      int
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("line %d: %s: %v", f.Line, f.Reference, f.Err)
}

// Result summarizes one walk.
type Result struct {
	// Sites counts every reserved-key string value encountered.
	Sites int
	// Skipped counts local, container and unversioned references.
	Skipped int
	// Invalid counts malformed references.
	Invalid  int
	Updates  []Update
	Failures []Failure
	Mutated  bool
}

// Walker pins references found in a document tree.
type Walker struct {
	key      string
	gate     *gate.Gate
	resolver Resolver

	// OnUpdate and OnFailure, when set, are called as each site completes.
	OnUpdate  func(Update)
	OnFailure func(Failure)
}

// New creates a Walker. An empty key falls back to DefaultKey.
func New(key string, g *gate.Gate, r Resolver) (*Walker, error) {
	if g == nil {
		return nil, errors.New("walker: gate is required")
	}
	if r == nil {
		return nil, errors.New("walker: resolver is required")
	}
	if key == "" {
		key = DefaultKey
	}
	return &Walker{key: key, gate: g, resolver: r}, nil
}

// Walk visits node and every node beneath it. Resolution failures are
// recorded in the result; the only error returned is ctx's error once it
// ends, either while waiting on the gate or during a resolution.
func (w *Walker) Walk(ctx context.Context, node *yaml.Node) (Result, error) {
	var res Result
	mutated, err := w.walk(ctx, node, &res)
	res.Mutated = mutated
	return res, err
}

func (w *Walker) walk(ctx context.Context, node *yaml.Node, res *Result) (bool, error) {
	if node == nil {
		return false, nil
	}
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		mutated := false
		for _, child := range node.Content {
			changed, err := w.walk(ctx, child, res)
			if err != nil {
				return mutated, err
			}
			mutated = mutated || changed
		}
		return mutated, nil
	case yaml.MappingNode:
		mutated := false
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			var (
				changed bool
				err     error
			)
			if w.isSite(key, value) {
				changed, err = w.visitSite(ctx, value, res)
			} else {
				changed, err = w.walk(ctx, value, res)
			}
			if err != nil {
				return mutated, err
			}
			mutated = mutated || changed
		}
		return mutated, nil
	default:
		// Scalars are never sites on their own; aliases are visited where
		// their anchor is defined.
		return false, nil
	}
}

func (w *Walker) isSite(key, value *yaml.Node) bool {
	return key.Kind == yaml.ScalarNode &&
		key.Value == w.key &&
		value.Kind == yaml.ScalarNode &&
		value.ShortTag() == "!!str"
}

func (w *Walker) visitSite(ctx context.Context, node *yaml.Node, res *Result) (bool, error) {
	res.Sites++
	ref, err := reference.Parse(node.Value)
	if err != nil {
		if errors.Is(err, reference.ErrInvalid) {
			res.Invalid++
		} else {
			res.Skipped++
		}
		return false, nil
	}

	var resolution resolver.Resolution
	var resolveErr error
	err = w.gate.Do(ctx, func(ctx context.Context) error {
		resolution, resolveErr = w.resolver.Resolve(ctx, ref.Repository())
		return nil
	})
	if err != nil {
		return false, err
	}
	if resolveErr != nil {
		// A lookup cut short by the run ending is not a per-reference
		// failure; the document must not be written half pinned.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		failure := Failure{Reference: ref, Line: node.Line, Err: resolveErr}
		res.Failures = append(res.Failures, failure)
		if w.OnFailure != nil {
			w.OnFailure(failure)
		}
		return false, nil
	}

	node.Value = ref.Pin(resolution.Commit)
	update := Update{
		Path:   ref.Path,
		OldRef: ref.Ref,
		NewRef: resolution.Commit,
		Branch: resolution.Branch,
		Line:   node.Line,
	}
	res.Updates = append(res.Updates, update)
	if w.OnUpdate != nil {
		w.OnUpdate(update)
	}
	return true, nil
}

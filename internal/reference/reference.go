// Package reference parses the string form of an action reference found under
// a workflow's `uses:` key and decides whether it is something actionpin
// should rewrite.
package reference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSkip marks values that are not remote, pinnable references: local
	// actions, container images and unversioned references.
	ErrSkip = errors.New("reference: not a pinnable reference")
	// ErrInvalid marks values that look like remote references but are
	// malformed.
	ErrInvalid = errors.New("reference: malformed reference")
)

const (
	localPrefix  = "./"
	dockerPrefix = "docker://"
)

// Reference is a remote action reference split at its version delimiter.
type Reference struct {
	// Path is owner/name with an optional subpath.
	Path string
	// Ref is the tag, branch or commit after the '@'.
	Ref string
}

// Parse validates raw and splits it into a Reference. Values that should be
// left alone return an error wrapping ErrSkip; malformed values return an
// error wrapping ErrInvalid. Besides needing at least owner/name, the owner
// and name segments must be non-empty, so "/x@v1" and "a/@v1" are invalid
// rather than resolved against a repository that cannot exist.
func Parse(raw string) (Reference, error) {
	value := raw
	if idx := strings.IndexByte(value, '#'); idx >= 0 {
		value = value[:idx]
	}
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, localPrefix) || strings.HasPrefix(value, dockerPrefix) {
		return Reference{}, fmt.Errorf("%w: %q is local or a container image", ErrSkip, value)
	}
	path, ref, found := strings.Cut(value, "@")
	if !found {
		return Reference{}, fmt.Errorf("%w: %q has no version", ErrSkip, value)
	}
	if path == "" || ref == "" {
		return Reference{}, fmt.Errorf("%w: %q has an empty path or version", ErrInvalid, value)
	}
	if strings.Contains(ref, "@") {
		return Reference{}, fmt.Errorf("%w: %q has more than one '@'", ErrInvalid, value)
	}
	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Reference{}, fmt.Errorf("%w: %q is not owner/name[/path]", ErrInvalid, value)
	}
	return Reference{Path: path, Ref: ref}, nil
}

// Repository returns the owner/name pair the action lives in.
func (r Reference) Repository() string {
	segments := strings.SplitN(r.Path, "/", 3)
	if len(segments) < 2 {
		return r.Path
	}
	return segments[0] + "/" + segments[1]
}

// Pin returns the reference rewritten to point at commit.
func (r Reference) Pin(commit string) string {
	return r.Path + "@" + commit
}

func (r Reference) String() string {
	return r.Path + "@" + r.Ref
}

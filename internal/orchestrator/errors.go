package orchestrator

import "fmt"

// DocumentError reports that a whole workflow file was skipped.
type DocumentError struct {
	Repository string
	Path       string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Repository, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// RepositoryError reports that a whole repository was skipped.
type RepositoryError struct {
	Repository string
	Err        error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Repository, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

package orchestrator

import (
	"errors"

	"github.com/kingrea/actionpin/internal/walker"
)

// DocumentResult is the outcome of walking one workflow file.
type DocumentResult struct {
	Path         string
	RelativePath string
	Sites        int
	Updates      []walker.Update
	Failures     []walker.Failure
	// Changed is true when the document was rewritten (or would have been,
	// in a dry run).
	Changed bool
}

// RepositorySummary collects the outcome of one repository.
type RepositorySummary struct {
	Name           string
	Dir            string
	FilesProcessed int
	Documents      []DocumentResult
	Errors         []error
}

// Changed returns the documents that were rewritten.
func (s RepositorySummary) Changed() []DocumentResult {
	var out []DocumentResult
	for _, doc := range s.Documents {
		if doc.Changed {
			out = append(out, doc)
		}
	}
	return out
}

// ReferencesUpdated counts pinned references across all documents.
func (s RepositorySummary) ReferencesUpdated() int {
	total := 0
	for _, doc := range s.Documents {
		if doc.Changed {
			total += len(doc.Updates)
		}
	}
	return total
}

// ReferenceFailures counts references that could not be resolved.
func (s RepositorySummary) ReferenceFailures() int {
	total := 0
	for _, doc := range s.Documents {
		total += len(doc.Failures)
	}
	return total
}

// Skipped reports whether the repository failed as a whole before any of its
// documents completed.
func (s RepositorySummary) Skipped() bool {
	if s.FilesProcessed > 0 {
		return false
	}
	for _, err := range s.Errors {
		var repoErr *RepositoryError
		if errors.As(err, &repoErr) {
			return true
		}
	}
	return false
}

// Summary is the outcome of a whole run.
type Summary struct {
	Repositories []RepositorySummary
	BackupDir    string
	DryRun       bool
}

// RepositoriesProcessed counts repositories that were not skipped.
func (s Summary) RepositoriesProcessed() int {
	total := 0
	for _, repo := range s.Repositories {
		if !repo.Skipped() {
			total++
		}
	}
	return total
}

// FilesProcessed counts workflow files across repositories.
func (s Summary) FilesProcessed() int {
	total := 0
	for _, repo := range s.Repositories {
		total += repo.FilesProcessed
	}
	return total
}

// ReferencesUpdated counts pinned references across repositories.
func (s Summary) ReferencesUpdated() int {
	total := 0
	for _, repo := range s.Repositories {
		total += repo.ReferencesUpdated()
	}
	return total
}

// Errors returns every repository and document error. Unresolved
// references are reported by ReferenceFailures instead.
func (s Summary) Errors() []error {
	var out []error
	for _, repo := range s.Repositories {
		out = append(out, repo.Errors...)
	}
	return out
}

// ReferenceFailures counts unresolved references across repositories.
func (s Summary) ReferenceFailures() int {
	total := 0
	for _, repo := range s.Repositories {
		total += repo.ReferenceFailures()
	}
	return total
}

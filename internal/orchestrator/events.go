package orchestrator

import "github.com/kingrea/actionpin/internal/walker"

// EventKind enumerates progress notifications.
type EventKind string

const (
	EventRepositoryStarted  EventKind = "repository-started"
	EventRepositoryFinished EventKind = "repository-finished"
	EventRepositoryFailed   EventKind = "repository-failed"
	EventNoWorkflows        EventKind = "no-workflows"
	EventReferencePinned    EventKind = "reference-pinned"
	EventReferenceFailed    EventKind = "reference-failed"
	EventDocumentUpdated    EventKind = "document-updated"
	EventDocumentFailed     EventKind = "document-failed"
)

// Event is a single progress notification. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind       EventKind
	Repository string
	// File is relative to the repository root.
	File    string
	Update  walker.Update
	Failure walker.Failure
	// Count is the number of files (repository events) or updates (document
	// events).
	Count     int
	BackupDir string
	Err       error
}

// Observer receives events. Events for different documents arrive from
// different goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

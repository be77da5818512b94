package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/kingrea/actionpin/internal/orchestrator"
)

// Console prints one line per progress event. It is safe for concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Observe implements orchestrator.Observer.
func (c *Console) Observe(e orchestrator.Event) {
	line := FormatEvent(e)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// FormatEvent renders a single event, or "" for events with nothing to say.
func FormatEvent(e orchestrator.Event) string {
	switch e.Kind {
	case orchestrator.EventRepositoryStarted:
		line := "\n" + repoStyle.Render("Processing repository: "+e.Repository)
		if e.BackupDir != "" {
			line += "\n" + mutedStyle.Render("  Backups will be stored in: "+e.BackupDir)
		}
		return line
	case orchestrator.EventNoWorkflows:
		return mutedStyle.Render("  No workflow files found in " + e.Repository)
	case orchestrator.EventReferencePinned:
		u := e.Update
		return okStyle.Render(fmt.Sprintf("  Pinned %s from %s to %s...", u.Path, u.OldRef, ShortCommit(u.NewRef)))
	case orchestrator.EventReferenceFailed:
		f := e.Failure
		return warnStyle.Render(fmt.Sprintf("  Failed to update %s: %v", f.Reference, f.Err))
	case orchestrator.EventDocumentUpdated:
		return okStyle.Render(fmt.Sprintf("  Updated %s with %d action references", e.File, e.Count))
	case orchestrator.EventDocumentFailed:
		return errorStyle.Render(fmt.Sprintf("  Error processing %s: %v", e.File, e.Err))
	case orchestrator.EventRepositoryFailed:
		return errorStyle.Render(fmt.Sprintf("Error processing repository %s: %v", e.Repository, e.Err))
	case orchestrator.EventRepositoryFinished:
		return mutedStyle.Render(fmt.Sprintf("  Processed %d workflow files", e.Count))
	default:
		return ""
	}
}

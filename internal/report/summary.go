package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kingrea/actionpin/internal/orchestrator"
)

// Render writes the end-of-run summary.
func Render(w io.Writer, summary orchestrator.Summary) {
	title := "Summary of GitHub Action updates"
	if summary.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(title))
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintf(w, "Repositories processed: %d\n", summary.RepositoriesProcessed())
	fmt.Fprintf(w, "Workflow files processed: %d\n", summary.FilesProcessed())
	fmt.Fprintf(w, "Action references updated: %d\n", summary.ReferencesUpdated())
	if failed := summary.ReferenceFailures(); failed > 0 {
		fmt.Fprintf(w, "Action references left unresolved: %d\n", failed)
	}
	switch {
	case summary.DryRun:
		fmt.Fprintln(w, mutedStyle.Render("Dry run: no files were written or backed up."))
	case summary.BackupDir != "":
		fmt.Fprintf(w, "Backup location: %s\n", summary.BackupDir)
	}

	if summary.ReferencesUpdated() > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Changes made:"))
		renderChanges(w, summary)
	} else {
		fmt.Fprintln(w)
		fmt.Fprintln(w, mutedStyle.Render("No changes were made."))
	}

	if unresolved := unresolvedLines(summary); len(unresolved) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Unresolved references:"))
		for _, line := range unresolved {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}

	if errs := summary.Errors(); len(errs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, errorStyle.Render("Errors:"))
		for _, err := range errs {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}
}

func renderChanges(w io.Writer, summary orchestrator.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Repository", "File", "Action", "From", "To"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
	})
	for _, repo := range summary.Repositories {
		for _, doc := range repo.Changed() {
			for _, u := range doc.Updates {
				tw.AppendRow(table.Row{repo.Name, doc.RelativePath, u.Path, u.OldRef, u.NewRef})
			}
		}
	}
	tw.Render()
}

func unresolvedLines(summary orchestrator.Summary) []string {
	var lines []string
	for _, repo := range summary.Repositories {
		for _, doc := range repo.Documents {
			for _, f := range doc.Failures {
				lines = append(lines, fmt.Sprintf("%s/%s: %v", repo.Name, doc.RelativePath, f))
			}
		}
	}
	return lines
}

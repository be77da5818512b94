package report

import "github.com/charmbracelet/lipgloss"

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	repoStyle    = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// ShortCommit abbreviates a commit SHA for display.
func ShortCommit(sha string) string {
	if len(sha) <= 8 {
		return sha
	}
	return sha[:8]
}

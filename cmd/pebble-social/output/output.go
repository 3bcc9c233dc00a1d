// Package output prints styled CLI messages.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out receives everything this package prints.
var Out io.Writer = os.Stdout

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

func line(icon string, style lipgloss.Style, format string, args ...any) {
	_, _ = fmt.Fprintf(Out, "%s%s\n", style.Render(icon+" "), fmt.Sprintf(format, args...))
}

func Success(format string, args ...any) { line("✓", successStyle, format, args...) }
func Warning(format string, args ...any) { line("⚠", warningStyle, format, args...) }
func Error(format string, args ...any)   { line("✗", errorStyle, format, args...) }
func Info(format string, args ...any)    { line("ℹ", infoStyle, format, args...) }

// Muted prints a dimmed line.
func Muted(format string, args ...any) {
	_, _ = fmt.Fprintln(Out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Primary prints a highlighted line.
func Primary(format string, args ...any) {
	_, _ = fmt.Fprintln(Out, primaryStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a title underlined to its width.
func Section(title string) {
	_, _ = fmt.Fprintf(Out, "\n%s\n%s\n\n",
		primaryStyle.Render(title),
		mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
}

// StatusIcon returns a colored icon for a migration or record status.
func StatusIcon(status string) string {
	switch status {
	case "applied", "created":
		return successStyle.Render("✓")
	case "pending":
		return warningStyle.Render("○")
	case "failed":
		return errorStyle.Render("✗")
	case "running":
		return infoStyle.Render("◉")
	default:
		return mutedStyle.Render("•")
	}
}

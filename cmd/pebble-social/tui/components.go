package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// confirmedMsg and cancelledMsg report how a ConfirmationDialog closed.
type (
	confirmedMsg struct{}
	cancelledMsg struct{}
)

// ConfirmationDialog is a yes/no prompt that answers with confirmedMsg or
// cancelledMsg.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
}

func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

func (d *ConfirmationDialog) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "left", "h":
		d.YesSelected = true
	case "right", "l":
		d.YesSelected = false
	case "y":
		return func() tea.Msg { return confirmedMsg{} }
	case "n", "esc", "q":
		return func() tea.Msg { return cancelledMsg{} }
	case "enter":
		if d.YesSelected {
			return func() tea.Msg { return confirmedMsg{} }
		}
		return func() tea.Msg { return cancelledMsg{} }
	}
	return nil
}

func (d ConfirmationDialog) View() string {
	yes, no := inactiveButtonStyle.Render("Yes"), activeButtonStyle.Render("No")
	if d.YesSelected {
		yes, no = activeButtonStyle.Render("Yes"), inactiveButtonStyle.Render("No")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Title))
	b.WriteString("\n\n")
	b.WriteString(d.Message)
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Left, yes, "  ", no))
	b.WriteString("\n")
	b.WriteString(FormatHelp("←/→", "choose", "enter", "confirm", "esc", "cancel"))
	return boxStyle.Render(b.String())
}

// MigrationItem is one row of the migration list.
type MigrationItem struct {
	Version   string
	Name      string
	Status    string
	AppliedAt string
}

func (i MigrationItem) FilterValue() string { return i.Name }

func (i MigrationItem) Title() string {
	return fmt.Sprintf("%s %s - %s", FormatStatus(i.Status), i.Version, i.Name)
}

func (i MigrationItem) Description() string {
	if i.AppliedAt != "" {
		return mutedStyle.Render("Applied: " + i.AppliedAt)
	}
	return mutedStyle.Render("Not applied")
}

// ViewItem is one admin view in the view list.
type ViewItem struct {
	Name    string
	Label   string
	Columns []string
}

func (i ViewItem) FilterValue() string { return i.Label }
func (i ViewItem) Title() string       { return i.Label }
func (i ViewItem) Description() string {
	return mutedStyle.Render(i.Name + " · " + strings.Join(i.Columns, ", "))
}

type titled interface {
	list.Item
	Title() string
	Description() string
}

// itemDelegate renders two-line items with a cursor marker.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 2 }
func (d itemDelegate) Spacing() int                            { return 1 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(titled)
	if !ok {
		return
	}
	if index == m.Index() {
		_, _ = fmt.Fprint(w, selectedItemStyle.Render("▸ "+i.Title()+"\n  "+i.Description()))
		return
	}
	_, _ = fmt.Fprint(w, unselectedItemStyle.Render("  "+i.Title()+"\n  "+i.Description()))
}

func newList(title string) list.Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle
	return l
}

// LogView keeps the last MaxLen entries.
type LogView struct {
	Logs   []string
	MaxLen int
}

func NewLogView(maxLen int) LogView {
	return LogView{MaxLen: maxLen}
}

func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if len(l.Logs) > l.MaxLen {
		l.Logs = l.Logs[len(l.Logs)-l.MaxLen:]
	}
}

func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("No logs")
	}
	var b strings.Builder
	for _, entry := range l.Logs {
		b.WriteString(mutedStyle.Render("• "))
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

// centered places content in the middle of a width x height screen.
func centered(width, height int, content string) string {
	if width == 0 || height == 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/pebble-social/pkg/migration"
)

// Direction says whether the migration UI applies or rolls back.
type Direction string

const (
	MigrateUp   Direction = "up"
	MigrateDown Direction = "down"
)

// Runner is the part of *migration.Executor the UI drives.
type Runner interface {
	GetStatus(ctx context.Context, migrations []migration.Migration) ([]migration.MigrationRecord, error)
	ApplyAll(ctx context.Context, migrations []migration.Migration, steps int, dryRun bool) (int, error)
	RollbackTo(ctx context.Context, targetVersion string, migrations []migration.Migration, dryRun bool) (int, error)
}

// MigrateMode is the screen the migration UI shows.
type MigrateMode int

const (
	ModeList MigrateMode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// MigrateModel lists migrations and applies or rolls back up to the
// selected one. Applying a pending migration applies every pending
// migration before it; rolling back an applied one rolls back every newer
// migration too.
type MigrateModel struct {
	ctx        context.Context
	runner     Runner
	direction  Direction
	migrations []migration.Migration
	status     []migration.MigrationRecord

	mode         MigrateMode
	list         list.Model
	confirmation ConfirmationDialog
	spinner      spinner.Model
	logs         LogView
	selected     int
	executed     int
	err          error
	width        int
	height       int
}

func NewMigrateModel(ctx context.Context, direction Direction, runner Runner, migrations []migration.Migration) MigrateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = infoStyle

	return MigrateModel{
		ctx:        ctx,
		runner:     runner,
		direction:  direction,
		migrations: migrations,
		list:       newList(fmt.Sprintf("Migrations (%s)", direction)),
		spinner:    s,
		logs:       NewLogView(10),
	}
}

type statusLoadedMsg struct {
	status []migration.MigrationRecord
}

type migrationsExecutedMsg struct {
	count int
	err   error
}

type errorMsg struct {
	err error
}

func (m MigrateModel) Init() tea.Cmd {
	return m.loadStatus
}

func (m MigrateModel) loadStatus() tea.Msg {
	status, err := m.runner.GetStatus(m.ctx, m.migrations)
	if err != nil {
		return errorMsg{err: err}
	}
	return statusLoadedMsg{status: status}
}

// execute runs the selected operation under the executor's lock.
func (m MigrateModel) execute() tea.Msg {
	var (
		n   int
		err error
	)
	if m.direction == MigrateUp {
		n, err = m.runner.ApplyAll(m.ctx, m.migrations[:m.selected+1], 0, false)
	} else {
		target := ""
		if m.selected > 0 {
			target = m.status[m.selected-1].Version
		}
		n, err = m.runner.RollbackTo(m.ctx, target, m.migrations, false)
	}
	return migrationsExecutedMsg{count: n, err: err}
}

// actionable reports whether the selected migration can be run in the
// model's direction.
func (m MigrateModel) actionable(i int) bool {
	if i < 0 || i >= len(m.status) {
		return false
	}
	if m.direction == MigrateUp {
		return m.status[i].Status != migration.StatusApplied
	}
	return m.status[i].Status == migration.StatusApplied
}

func (m MigrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case statusLoadedMsg:
		m.status = msg.status
		items := make([]list.Item, len(msg.status))
		for i, s := range msg.status {
			item := MigrationItem{Version: s.Version, Name: s.Name, Status: string(s.Status)}
			if s.AppliedAt != nil {
				item.AppliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			items[i] = item
		}
		return m, m.list.SetItems(items)

	case migrationsExecutedMsg:
		m.executed = msg.count
		if msg.err != nil {
			m.mode, m.err = ModeError, msg.err
			m.logs.AddLog(dangerStyle.Render("Failed: " + msg.err.Error()))
			return m, nil
		}
		m.mode = ModeComplete
		m.logs.AddLog(successStyle.Render(fmt.Sprintf("✓ %d migration(s) %s", msg.count, m.verb())))
		return m, m.loadStatus

	case errorMsg:
		m.mode, m.err = ModeError, msg.err
		return m, nil

	case confirmedMsg:
		m.mode = ModeExecuting
		return m, tea.Batch(m.spinner.Tick, m.execute)

	case cancelledMsg:
		m.mode = ModeList
		return m, nil

	case spinner.TickMsg:
		if m.mode != ModeExecuting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case ModeList:
			if m.list.FilterState() == list.Filtering {
				break
			}
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "enter", " ":
				i := m.selectedIndex()
				if !m.actionable(i) {
					return m, nil
				}
				m.selected = i
				m.confirmation = NewConfirmationDialog(
					fmt.Sprintf("Migrate %s", m.direction),
					m.confirmMessage(),
				)
				m.mode = ModeConfirm
				return m, nil
			}

		case ModeConfirm:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, m.confirmation.Update(msg)

		case ModeExecuting:
			return m, nil

		case ModeComplete, ModeError:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			case "esc":
				m.mode, m.err = ModeList, nil
				return m, m.loadStatus
			}
			return m, nil
		}
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

// selectedIndex maps the list cursor to an index into status, which can
// differ while a filter is applied.
func (m MigrateModel) selectedIndex() int {
	item, ok := m.list.SelectedItem().(MigrationItem)
	if !ok {
		return -1
	}
	for i, s := range m.status {
		if s.Version == item.Version {
			return i
		}
	}
	return -1
}

func (m MigrateModel) verb() string {
	if m.direction == MigrateUp {
		return "applied"
	}
	return "rolled back"
}

func (m MigrateModel) confirmMessage() string {
	s := m.status[m.selected]
	if m.direction == MigrateUp {
		return fmt.Sprintf("Apply every pending migration up to\n%s - %s?", s.Version, s.Name)
	}
	return fmt.Sprintf("Roll back %s - %s\nand every migration after it?", s.Version, s.Name)
}

func (m MigrateModel) View() string {
	switch m.mode {
	case ModeConfirm:
		return centered(m.width, m.height, m.confirmation.View())

	case ModeExecuting:
		return centered(m.width, m.height, boxStyle.Render(
			m.spinner.View()+" "+infoStyle.Render("Running migrations..."),
		))

	case ModeComplete:
		return centered(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left,
			boxStyle.Render(titleStyle.Render("Migration Complete")+"\n"+
				FormatProgressBar(m.executed, m.executed, 30)),
			m.logs.View(),
			FormatHelp("esc", "back", "enter/q", "exit"),
		))

	case ModeError:
		return centered(m.width, m.height, lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Migration Failed"),
			errorStyle.Render(m.err.Error()),
			FormatHelp("esc", "back", "enter/q", "exit"),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		FormatHelp("↑/↓", "navigate", "enter", m.action(), "/", "filter", "q", "quit"),
	)
}

func (m MigrateModel) action() string {
	if m.direction == MigrateUp {
		return "apply"
	}
	return "rollback"
}

// RunMigrate starts the interactive migration UI.
func RunMigrate(ctx context.Context, direction Direction, runner Runner, migrations []migration.Migration) error {
	_, err := tea.NewProgram(NewMigrateModel(ctx, direction, runner, migrations), tea.WithAltScreen()).Run()
	return err
}

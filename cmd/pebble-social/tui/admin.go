package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mdobak/go-xerrors"

	"github.com/marshallshelly/pebble-social/internal/admin"
)

const maxCellWidth = 30

var errNotObject = xerrors.Message("input must be a JSON object")

type adminScreen int

const (
	screenViews adminScreen = iota
	screenRecords
	screenDetail
	screenEdit
	screenConfirm
)

// AdminModel browses and edits the admin views: pick a view, page through
// its records, open one, and create, edit or delete records as JSON.
type AdminModel struct {
	ctx      context.Context
	admin    *admin.Admin
	pageSize int

	screen  adminScreen
	back    adminScreen
	views   list.Model
	table   table.Model
	editor  textarea.Model
	confirm ConfirmationDialog

	current   admin.View
	rows      []map[string]any
	page      int
	total     int64
	detail    map[string]any
	editingID int
	deleteID  int
	status    string
	err       error
	width     int
	height    int
}

func NewAdminModel(ctx context.Context, a *admin.Admin, pageSize int) AdminModel {
	if pageSize <= 0 {
		pageSize = 20
	}

	views := newList(a.Name)
	items := make([]list.Item, 0, len(a.Views()))
	for _, v := range a.Views() {
		items = append(items, ViewItem{Name: v.Name(), Label: v.Label(), Columns: v.Columns()})
	}
	views.SetItems(items)

	editor := textarea.New()
	editor.Placeholder = `{"column": "value"}`
	editor.ShowLineNumbers = false
	editor.SetWidth(60)
	editor.SetHeight(10)

	return AdminModel{
		ctx:      ctx,
		admin:    a,
		pageSize: pageSize,
		views:    views,
		table:    table.New(table.WithFocused(true), table.WithHeight(pageSize)),
		editor:   editor,
		page:     1,
	}
}

type recordsLoadedMsg struct {
	rows  []map[string]any
	total int64
}

type recordLoadedMsg struct {
	record map[string]any
}

type recordSavedMsg struct {
	record  map[string]any
	created bool
}

type recordDeletedMsg struct {
	id int
}

type adminErrMsg struct {
	err error
}

func (m AdminModel) Init() tea.Cmd {
	return nil
}

func (m AdminModel) loadRecords() tea.Cmd {
	v, page, size := m.current, m.page, m.pageSize
	return func() tea.Msg {
		rows, total, err := v.List(m.ctx, page, size)
		if err != nil {
			return adminErrMsg{err: err}
		}
		return recordsLoadedMsg{rows: rows, total: total}
	}
}

func (m AdminModel) loadRecord(id int) tea.Cmd {
	v := m.current
	return func() tea.Msg {
		record, err := v.Get(m.ctx, id)
		if err != nil {
			return adminErrMsg{err: err}
		}
		return recordLoadedMsg{record: record}
	}
}

func (m AdminModel) save(input string) tea.Cmd {
	v, id := m.current, m.editingID
	return func() tea.Msg {
		fields, err := decodeFields(input)
		if err != nil {
			return adminErrMsg{err: err}
		}
		var record map[string]any
		if id == 0 {
			record, err = v.Create(m.ctx, fields)
		} else {
			record, err = v.Update(m.ctx, id, fields)
		}
		if err != nil {
			return adminErrMsg{err: err}
		}
		return recordSavedMsg{record: record, created: id == 0}
	}
}

func (m AdminModel) remove(id int) tea.Cmd {
	v := m.current
	return func() tea.Msg {
		if err := v.Delete(m.ctx, id); err != nil {
			return adminErrMsg{err: err}
		}
		return recordDeletedMsg{id: id}
	}
}

// decodeFields parses editor input the way the HTTP API parses a body.
func decodeFields(input string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, xerrors.New(err)
	}
	if fields == nil {
		return nil, xerrors.New(errNotObject)
	}
	return fields, nil
}

func (m AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.views.SetSize(msg.Width-4, msg.Height-6)
		m.editor.SetWidth(min(80, msg.Width-8))
		return m, nil

	case recordsLoadedMsg:
		m.rows, m.total, m.err = msg.rows, msg.total, nil
		m.setTable()
		return m, nil

	case recordLoadedMsg:
		m.detail, m.err = msg.record, nil
		m.screen = screenDetail
		return m, nil

	case recordSavedMsg:
		m.detail, m.err = msg.record, nil
		m.screen = screenDetail
		m.status = fmt.Sprintf("%s %v updated", m.current.Label(), msg.record["id"])
		if msg.created {
			m.status = fmt.Sprintf("%s %v created", m.current.Label(), msg.record["id"])
		}
		return m, m.loadRecords()

	case recordDeletedMsg:
		m.screen, m.err = screenRecords, nil
		m.status = fmt.Sprintf("%s %d deleted", m.current.Label(), msg.id)
		return m, m.loadRecords()

	case adminErrMsg:
		m.err = msg.err
		if m.screen == screenConfirm {
			m.screen = m.back
		}
		return m, nil

	case confirmedMsg:
		return m, m.remove(m.deleteID)

	case cancelledMsg:
		m.screen = m.back
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen {
		case screenViews:
			return m.updateViews(msg)
		case screenRecords:
			return m.updateRecords(msg)
		case screenDetail:
			return m.updateDetail(msg)
		case screenEdit:
			return m.updateEdit(msg)
		case screenConfirm:
			return m, m.confirm.Update(msg)
		}
	}
	return m, nil
}

func (m AdminModel) updateViews(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.views.FilterState() != list.Filtering {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "enter":
			item, ok := m.views.SelectedItem().(ViewItem)
			if !ok {
				return m, nil
			}
			v, err := m.admin.View(item.Name)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.current, m.page, m.status, m.err = v, 1, "", nil
			m.rows = nil
			m.setTable()
			m.screen = screenRecords
			return m, m.loadRecords()
		}
	}
	var cmd tea.Cmd
	m.views, cmd = m.views.Update(msg)
	return m, cmd
}

func (m AdminModel) updateRecords(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.screen, m.err, m.status = screenViews, nil, ""
		return m, nil
	case "r":
		return m, m.loadRecords()
	case "]", "pgdown":
		if int64(m.page*m.pageSize) < m.total {
			m.page++
			return m, m.loadRecords()
		}
		return m, nil
	case "[", "pgup":
		if m.page > 1 {
			m.page--
			return m, m.loadRecords()
		}
		return m, nil
	case "n":
		return m.startEdit(0, nil), textarea.Blink
	case "enter":
		if id, ok := m.selectedID(); ok {
			return m, m.loadRecord(id)
		}
		return m, nil
	case "e":
		if id, ok := m.selectedID(); ok {
			return m.startEdit(id, m.rowByID(id)), textarea.Blink
		}
		return m, nil
	case "d":
		if id, ok := m.selectedID(); ok {
			return m.askDelete(id), nil
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m AdminModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id, _ := toInt(m.detail["id"])
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.screen, m.err = screenRecords, nil
	case "e":
		return m.startEdit(id, m.detail), textarea.Blink
	case "d":
		return m.askDelete(id), nil
	}
	return m, nil
}

func (m AdminModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editor.Blur()
		m.screen, m.err = m.back, nil
		return m, nil
	case "ctrl+s":
		return m, m.save(m.editor.Value())
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// startEdit opens the editor for record id, or for a new record when id is
// zero. Only stored columns are prefilled.
func (m AdminModel) startEdit(id int, record map[string]any) AdminModel {
	fields := map[string]any{}
	for _, col := range m.current.Columns() {
		if col == "id" {
			continue
		}
		if v, ok := record[col]; ok {
			fields[col] = v
		} else if id == 0 {
			fields[col] = nil
		}
	}
	raw, _ := json.MarshalIndent(fields, "", "  ")

	m.back = m.screen
	m.editingID = id
	m.editor.SetValue(string(raw))
	m.editor.Focus()
	m.screen, m.err = screenEdit, nil
	return m
}

func (m AdminModel) askDelete(id int) AdminModel {
	m.back = m.screen
	m.deleteID = id
	m.confirm = NewConfirmationDialog(
		"Delete "+m.current.Label(),
		fmt.Sprintf("Delete %s %d? This cannot be undone.", m.current.Name(), id),
	)
	m.screen = screenConfirm
	return m
}

func (m AdminModel) selectedID() (int, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.Atoi(row[0])
	return id, err == nil
}

func (m AdminModel) rowByID(id int) map[string]any {
	for _, r := range m.rows {
		if n, ok := toInt(r["id"]); ok && n == id {
			return r
		}
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// setTable rebuilds the table from rows: id first, then the other keys in
// order.
func (m *AdminModel) setTable() {
	keys := tableColumns(m.rows)
	widths := make([]int, len(keys))
	rows := make([]table.Row, len(m.rows))
	for i, k := range keys {
		widths[i] = lipgloss.Width(k)
	}
	for r, record := range m.rows {
		row := make(table.Row, len(keys))
		for i, k := range keys {
			row[i] = cell(record[k])
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
		rows[r] = row
	}

	cols := make([]table.Column, len(keys))
	for i, k := range keys {
		cols[i] = table.Column{Title: k, Width: widths[i]}
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func tableColumns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] && k != "id" {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	if len(rows) > 0 {
		keys = slices.Insert(keys, 0, "id")
	}
	return keys
}

func cell(v any) string {
	var s string
	switch v := v.(type) {
	case nil:
		s = "∅"
	case string:
		s = v
	case map[string]any, []any:
		raw, _ := json.Marshal(v)
		s = string(raw)
	default:
		s = fmt.Sprint(v)
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCellWidth {
		s = string(r[:maxCellWidth-1]) + "…"
	}
	return s
}

func (m AdminModel) View() string {
	var body string
	switch m.screen {
	case screenViews:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.views.View(),
			FormatHelp("↑/↓", "navigate", "enter", "open", "/", "filter", "q", "quit"),
		)

	case screenRecords:
		pages := max(1, int((m.total+int64(m.pageSize)-1)/int64(m.pageSize)))
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(fmt.Sprintf("%s · page %d/%d · %d total", m.current.Label(), m.page, pages, m.total)),
			m.table.View(),
			FormatHelp("enter", "open", "n", "new", "e", "edit", "d", "delete", "[/]", "page", "r", "refresh", "esc", "back"),
		)

	case screenDetail:
		raw, _ := json.MarshalIndent(m.detail, "", "  ")
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(fmt.Sprintf("%s %v", m.current.Label(), m.detail["id"])),
			codeStyle.Render(string(raw)),
			FormatHelp("e", "edit", "d", "delete", "esc", "back"),
		)

	case screenEdit:
		title := "New " + m.current.Label()
		if m.editingID != 0 {
			title = fmt.Sprintf("Edit %s %d", m.current.Label(), m.editingID)
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(title),
			m.editor.View(),
			FormatHelp("ctrl+s", "save", "esc", "cancel"),
		)

	case screenConfirm:
		return centered(m.width, m.height, m.confirm.View())
	}

	if m.err != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, errorStyle.Render(errorText(m.err)))
	} else if m.status != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, successStyle.Render(m.status))
	}
	return body
}

// errorText lists validation failures one per line and otherwise returns
// the error message.
func errorText(err error) string {
	var verr *admin.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + verr.Fields[k]
	}
	return strings.Join(lines, "\n")
}

// RunAdmin starts the interactive admin UI.
func RunAdmin(ctx context.Context, a *admin.Admin, pageSize int) error {
	_, err := tea.NewProgram(NewAdminModel(ctx, a, pageSize), tea.WithAltScreen()).Run()
	return err
}

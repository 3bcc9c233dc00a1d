package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mdobak/go-xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-social/internal/admin"
	"github.com/marshallshelly/pebble-social/pkg/runtime"
)

// memView is an in-memory comments view.
type memView struct {
	records map[int]map[string]any
	next    int
	updates map[int]map[string]any
}

func newMemView() *memView {
	return &memView{
		records: map[int]map[string]any{
			1: {"id": 1, "text": "first!", "user_id": 1, "post_id": 1, "user_email": "a@example.com"},
			2: {"id": 2, "text": "nice shot", "user_id": 2, "post_id": 1, "user_email": "b@example.com"},
		},
		next:    3,
		updates: map[int]map[string]any{},
	}
}

func (v *memView) Name() string      { return "comments" }
func (v *memView) Label() string     { return "Comments" }
func (v *memView) Columns() []string { return []string{"id", "text", "user_id", "post_id"} }

func (v *memView) List(_ context.Context, page, size int) ([]map[string]any, int64, error) {
	var out []map[string]any
	for id := 1; id < v.next; id++ {
		if r, ok := v.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (v *memView) Get(_ context.Context, id int) (map[string]any, error) {
	r, ok := v.records[id]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return r, nil
}

func (v *memView) Create(_ context.Context, fields map[string]any) (map[string]any, error) {
	if fields["text"] == nil {
		return nil, xerrors.New(&admin.ValidationError{Fields: map[string]string{"text": "must not be null"}})
	}
	r := map[string]any{"id": v.next, "text": fields["text"]}
	v.records[v.next] = r
	v.next++
	return r, nil
}

func (v *memView) Update(_ context.Context, id int, fields map[string]any) (map[string]any, error) {
	v.updates[id] = fields
	r := v.records[id]
	for k, val := range fields {
		r[k] = val
	}
	return r, nil
}

func (v *memView) Delete(_ context.Context, id int) error {
	if _, ok := v.records[id]; !ok {
		return runtime.ErrNotFound
	}
	delete(v.records, id)
	return nil
}

func sendAdmin(t *testing.T, m AdminModel, msg tea.Msg) (AdminModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AdminModel)
	require.True(t, ok)
	return am, cmd
}

// settle feeds every message cmd produces back into the model, following
// the commands those messages return.
func settle(t *testing.T, m AdminModel, cmd tea.Cmd) AdminModel {
	t.Helper()
	for depth := 0; cmd != nil && depth < 10; depth++ {
		var next []tea.Cmd
		for _, msg := range run(cmd) {
			var c tea.Cmd
			m, c = sendAdmin(t, m, msg)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	return m
}

func openComments(t *testing.T) (AdminModel, *memView) {
	t.Helper()
	v := newMemView()
	a := admin.New("Test Admin")
	require.NoError(t, a.AddView(v))

	m := NewAdminModel(context.Background(), a, 10)
	m, _ = sendAdmin(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, cmd := sendAdmin(t, m, keyMsg("enter"))
	require.Equal(t, screenRecords, m.screen)
	return settle(t, m, cmd), v
}

func TestAdminModel_ListAndDetail(t *testing.T) {
	m, _ := openComments(t)

	require.Len(t, m.table.Rows(), 2)
	assert.Equal(t, "1", m.table.Rows()[0][0])
	assert.Equal(t, int64(2), m.total)
	assert.Contains(t, m.View(), "Comments · page 1/1 · 2 total")

	m, cmd := sendAdmin(t, m, keyMsg("enter"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenDetail, m.screen)
	assert.Contains(t, m.View(), "first!")

	m, _ = sendAdmin(t, m, keyMsg("esc"))
	assert.Equal(t, screenRecords, m.screen)
}

func TestAdminModel_Edit(t *testing.T) {
	m, v := openComments(t)

	m, _ = sendAdmin(t, m, keyMsg("e"))
	require.Equal(t, screenEdit, m.screen)
	assert.Equal(t, 1, m.editingID)
	assert.Contains(t, m.editor.Value(), `"text": "first!"`)
	assert.NotContains(t, m.editor.Value(), "user_email", "only stored columns are editable")

	m.editor.SetValue(`{"text": "edited", "post_id": 2}`)
	m, cmd := sendAdmin(t, m, keyMsg("ctrl+s"))
	m = settle(t, m, cmd)

	assert.Equal(t, screenDetail, m.screen)
	assert.Equal(t, "edited", v.records[1]["text"])
	assert.Contains(t, m.View(), "Comments 1 updated")
}

func TestAdminModel_CreateValidationError(t *testing.T) {
	m, v := openComments(t)

	m, _ = sendAdmin(t, m, keyMsg("n"))
	require.Equal(t, screenEdit, m.screen)
	assert.Contains(t, m.editor.Value(), `"text": null`)

	m, cmd := sendAdmin(t, m, keyMsg("ctrl+s"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenEdit, m.screen)
	assert.Contains(t, m.View(), "text: must not be null")
	assert.Len(t, v.records, 2)

	m.editor.SetValue(`{"text": "third"}`)
	m, cmd = sendAdmin(t, m, keyMsg("ctrl+s"))
	m = settle(t, m, cmd)
	assert.Equal(t, screenDetail, m.screen)
	assert.Len(t, v.records, 3)
	assert.Len(t, m.table.Rows(), 3)
}

func TestAdminModel_BadJSON(t *testing.T) {
	m, _ := openComments(t)

	m, _ = sendAdmin(t, m, keyMsg("n"))
	m.editor.SetValue(`null`)
	m, cmd := sendAdmin(t, m, keyMsg("ctrl+s"))
	m = settle(t, m, cmd)

	assert.Contains(t, m.View(), "input must be a JSON object")
}

func TestAdminModel_Delete(t *testing.T) {
	m, v := openComments(t)

	m, _ = sendAdmin(t, m, keyMsg("d"))
	require.Equal(t, screenConfirm, m.screen)
	assert.Contains(t, m.View(), "Delete comments 1?")

	m, cmd := sendAdmin(t, m, keyMsg("y"))
	m = settle(t, m, cmd)

	assert.NotContains(t, v.records, 1)
	assert.Equal(t, screenRecords, m.screen)
	assert.Len(t, m.table.Rows(), 1)
	assert.Contains(t, m.View(), "Comments 1 deleted")
}

func TestDecodeFields(t *testing.T) {
	fields, err := decodeFields(`{"user_id": 7, "text": "hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "7", fields["user_id"].(interface{ String() string }).String())

	_, err = decodeFields(`[1]`)
	assert.Error(t, err)
}

func TestCell(t *testing.T) {
	assert.Equal(t, "∅", cell(nil))
	assert.Equal(t, `{"bio":"hi"}`, cell(map[string]any{"bio": "hi"}))
	assert.Equal(t, "a b", cell("a\nb"))

	long := cell("abcdefghijklmnopqrstuvwxyz0123456789")
	assert.Equal(t, maxCellWidth, len([]rune(long)))
}

func TestTableColumns(t *testing.T) {
	cols := tableColumns([]map[string]any{
		{"id": 1, "text": "x", "post_id": 1},
		{"id": 2, "user_email": "a@example.com"},
	})
	assert.Equal(t, []string{"id", "post_id", "text", "user_email"}, cols)
	assert.Empty(t, tableColumns(nil))
}

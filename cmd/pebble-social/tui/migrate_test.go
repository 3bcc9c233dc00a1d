package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-social/pkg/migration"
)

type fakeRunner struct {
	status  []migration.MigrationRecord
	err     error
	applied []migration.Migration
	target  *string
}

func (f *fakeRunner) GetStatus(context.Context, []migration.Migration) ([]migration.MigrationRecord, error) {
	return f.status, nil
}

func (f *fakeRunner) ApplyAll(_ context.Context, migrations []migration.Migration, _ int, _ bool) (int, error) {
	f.applied = migrations
	return len(migrations) - 1, f.err
}

func (f *fakeRunner) RollbackTo(_ context.Context, target string, _ []migration.Migration, _ bool) (int, error) {
	f.target = &target
	return 1, f.err
}

var testMigrations = []migration.Migration{
	{Version: "20240101000000", Name: "initial_schema"},
	{Version: "20240201000000", Name: "add_bio_index"},
	{Version: "20240301000000", Name: "add_caption_index"},
}

func newTestRunner() *fakeRunner {
	return &fakeRunner{status: []migration.MigrationRecord{
		{Version: "20240101000000", Name: "initial_schema", Status: migration.StatusApplied},
		{Version: "20240201000000", Name: "add_bio_index", Status: migration.StatusApplied},
		{Version: "20240301000000", Name: "add_caption_index", Status: migration.StatusPending},
	}}
}

func sendMigrate(t *testing.T, m MigrateModel, msg tea.Msg) (MigrateModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(MigrateModel)
	require.True(t, ok)
	return mm, cmd
}

func loadedMigrateModel(t *testing.T, dir Direction, r *fakeRunner) MigrateModel {
	t.Helper()
	m := NewMigrateModel(context.Background(), dir, r, testMigrations)
	m, _ = sendMigrate(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = sendMigrate(t, m, m.Init()())
	require.Len(t, m.status, 3)
	return m
}

func TestMigrateModel_ApplyUpToSelection(t *testing.T) {
	r := newTestRunner()
	m := loadedMigrateModel(t, MigrateUp, r)

	m, _ = sendMigrate(t, m, keyMsg("enter"))
	assert.Equal(t, ModeList, m.mode, "an applied migration cannot be applied again")

	m, _ = sendMigrate(t, m, keyMsg("down"))
	m, _ = sendMigrate(t, m, keyMsg("down"))
	m, _ = sendMigrate(t, m, keyMsg("enter"))
	require.Equal(t, ModeConfirm, m.mode)
	assert.Contains(t, m.View(), "add_caption_index")

	m, cmd := sendMigrate(t, m, keyMsg("y"))
	m, cmd = sendMigrate(t, m, cmd())
	assert.Equal(t, ModeExecuting, m.mode)

	done, ok := find[migrationsExecutedMsg](run(cmd))
	require.True(t, ok)
	assert.Len(t, r.applied, 3)

	m, _ = sendMigrate(t, m, done)
	assert.Equal(t, ModeComplete, m.mode)
	assert.Contains(t, m.View(), "Migration Complete")
}

func TestMigrateModel_RollbackTarget(t *testing.T) {
	r := newTestRunner()
	m := loadedMigrateModel(t, MigrateDown, r)

	m, _ = sendMigrate(t, m, keyMsg("down"))
	m, _ = sendMigrate(t, m, keyMsg("enter"))
	require.Equal(t, ModeConfirm, m.mode)

	m, cmd := sendMigrate(t, m, keyMsg("y"))
	_, cmd = sendMigrate(t, m, cmd())
	_, ok := find[migrationsExecutedMsg](run(cmd))
	require.True(t, ok)

	require.NotNil(t, r.target)
	assert.Equal(t, "20240101000000", *r.target, "rolls back everything after the previous migration")
}

func TestMigrateModel_Cancel(t *testing.T) {
	m := loadedMigrateModel(t, MigrateDown, newTestRunner())

	m, _ = sendMigrate(t, m, keyMsg("enter"))
	require.Equal(t, ModeConfirm, m.mode)

	m, cmd := sendMigrate(t, m, keyMsg("esc"))
	m, _ = sendMigrate(t, m, cmd())
	assert.Equal(t, ModeList, m.mode)
}

func TestMigrateModel_Failure(t *testing.T) {
	r := newTestRunner()
	r.err = errors.New("relation \"users\" already exists")
	m := loadedMigrateModel(t, MigrateUp, r)

	m.selected = 2
	m, _ = sendMigrate(t, m, m.execute())

	assert.Equal(t, ModeError, m.mode)
	assert.Contains(t, m.View(), "already exists")
}

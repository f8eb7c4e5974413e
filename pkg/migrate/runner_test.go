package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func widgetMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101000000_create_widgets.sql": {Data: []byte(`-- +goose Up
CREATE TABLE widgets (id INTEGER PRIMARY KEY);

-- +goose Down
DROP TABLE widgets;
`)},
		"20260102000000_add_widget_name.sql": {Data: []byte(`-- +goose Up
ALTER TABLE widgets ADD COLUMN name TEXT;

-- +goose Down
ALTER TABLE widgets DROP COLUMN name;
`)},
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	runner, err := newRunner(sqlDB, goose.DialectSQLite3, widgetMigrations(), nil)
	require.NoError(t, err)
	return runner
}

func TestRunnerUpDownAndMigrateTo(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	require.NoError(t, runner.Up(ctx))
	v, err := runner.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20260102000000), v)

	require.NoError(t, runner.Down(ctx))
	v, err = runner.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20260101000000), v)

	require.NoError(t, runner.MigrateTo(ctx, "20260102000000"))
	v, err = runner.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(20260102000000), v)

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		require.Equal(t, goose.StateApplied, st.State)
	}

	require.NoError(t, runner.MigrateTo(ctx, "20260102000000"))
	require.Error(t, runner.MigrateTo(ctx, "latest"))
}

func TestNewRunnerRequiresDB(t *testing.T) {
	_, err := newRunner(nil, goose.DialectSQLite3, widgetMigrations(), nil)
	require.Error(t, err)
}

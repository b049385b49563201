package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tablemigrate/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_CreatesDirectoryAndMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := Open(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	version, err := store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.NoError(t, store.Close())

	// Reopening applies nothing new and keeps data.
	store, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer store.Close()
	version, err = store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.CreateRun(ctx, NewRun{})
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.GetRun(ctx, "x")
	require.ErrorIs(t, err, ErrNotOpen)
	_, err = store.ListRuns(ctx, 10)
	require.ErrorIs(t, err, ErrNotOpen)
	require.ErrorIs(t, store.CompleteRun(ctx, "x", RunStatusFailed, 0, ""), ErrNotOpen)
	require.ErrorIs(t, store.Migrate(ctx), ErrNotOpen)
}

func TestRunLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		status  RunStatus
		rows    int64
		errMsg  string
		wantErr string
	}{
		{name: "completed", status: RunStatusCompleted, rows: 42},
		{name: "failed", status: RunStatusFailed, errMsg: "migration \"users\" -> \"users_migrated\" failed at load stage"},
		{name: "cancelled", status: RunStatusCancelled, errMsg: "context canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := setupTestStore(t)

			run, err := store.CreateRun(ctx, NewRun{
				Project:     "demo",
				Source:      "file(source.db)",
				Target:      "file(target.db)",
				SourceTable: "users",
				TargetTable: "users_migrated",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, RunStatusRunning, run.Status)
			assert.Nil(t, run.CompletedAt)

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.status, tt.rows, tt.errMsg))

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.rows, got.Rows)
			assert.Equal(t, tt.errMsg, got.Error)
			assert.Equal(t, "demo", got.Project)
			assert.Equal(t, "users", got.SourceTable)
			assert.Equal(t, "users_migrated", got.TargetTable)
			assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Microsecond)
			require.NotNil(t, got.CompletedAt)
			assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	err = store.CompleteRun(context.Background(), "missing", RunStatusCompleted, 0, "")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	var ids []string
	for _, table := range []string{"a", "b", "c"} {
		run, err := store.CreateRun(ctx, NewRun{Source: "s", Target: "t", SourceTable: table, TargetTable: table + "_migrated"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	runs, err = store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[0], runs[2].ID)
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	assert.Equal(t, time.Duration(0), (&Run{StartedAt: start}).Duration())
	assert.Equal(t, 1500*time.Millisecond, (&Run{StartedAt: start, CompletedAt: &end}).Duration())
}

func TestTimeFormatOrdersLexically(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 100, time.UTC)
	b := a.Add(time.Nanosecond * 900)
	assert.Less(t, formatTime(a), formatTime(b))

	parsed, err := parseTime(formatTime(b))
	require.NoError(t, err)
	assert.True(t, b.Equal(parsed))
}

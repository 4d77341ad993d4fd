package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsieve/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, 1, v)
}

func TestSeedBuiltinSources(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedBuiltinSources(ctx, db.Pool))
	// Re-seeding never duplicates or clobbers rows.
	require.NoError(t, SeedBuiltinSources(ctx, db.Pool))

	sources, err := ListEnabledSources(ctx, db.Pool)
	require.NoError(t, err)
	require.Len(t, sources, 5)

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
		assert.True(t, s.IsBuiltin)
		assert.True(t, s.Enabled)
	}
	assert.Equal(t, []string{"greenhouse", "indeed", "linkedin", "wellfound", "weworkremotely"}, names)
}

func TestListEnabledSourcesOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, SeedBuiltinSources(ctx, db.Pool))

	_, err := db.Pool.ExecContext(ctx, `
INSERT INTO sources (name, sender_email, is_builtin, enabled) VALUES
  ('aaa-custom', 'alerts@aaa.example', 0, 1),
  ('zzz-disabled', 'alerts@zzz.example', 0, 0);`)
	require.NoError(t, err)

	sources, err := ListEnabledSources(ctx, db.Pool)
	require.NoError(t, err)
	require.Len(t, sources, 6)

	// Built-ins come first; custom sources trail in name order; disabled
	// sources never appear.
	assert.True(t, sources[0].IsBuiltin)
	assert.Equal(t, "aaa-custom", sources[5].Name)
}

func TestInsertJobIfNew(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := domain.JobRecord{
		JobID:     "a1b2c3d4e5f60718",
		Title:     "Senior Go Engineer",
		Company:   "Acme Corp",
		Location:  "Austin, TX",
		URL:       "https://www.linkedin.com/jobs/view/4012345678",
		Source:    "linkedin",
		EmailDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	isNew, err := InsertJobIfNew(ctx, db.Pool, rec)
	require.NoError(t, err)
	assert.True(t, isNew)

	// Same id again: the existing row wins.
	rec.Title = "Different Title"
	isNew, err = InsertJobIfNew(ctx, db.Pool, rec)
	require.NoError(t, err)
	assert.False(t, isNew)

	jobs, err := ListJobs(ctx, db.Pool, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Senior Go Engineer", jobs[0].Title)
	assert.True(t, jobs[0].EmailDate.Equal(rec.EmailDate))

	n, err := CountJobs(ctx, db.Pool)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessedEmails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	done, err := IsProcessed(ctx, db.Pool, "msg-1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, MarkProcessed(ctx, db.Pool, "msg-1", "linkedin"))
	require.NoError(t, MarkProcessed(ctx, db.Pool, "msg-1", "linkedin"))

	done, err = IsProcessed(ctx, db.Pool, "msg-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestApplicationEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ev := ApplicationEvent{
		MessageID: "msg-9",
		Kind:      "rejection",
		Sender:    "recruiting@initech.com",
		Subject:   "Update on your application",
		EventDate: time.Now().UTC(),
	}

	isNew, err := InsertApplicationEvent(ctx, db.Pool, ev)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = InsertApplicationEvent(ctx, db.Pool, ev)
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestScanRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	last, err := LastScanCompletedAt(ctx, db.Pool)
	require.NoError(t, err)
	assert.Nil(t, last)

	completed := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, RecordScanCompleted(ctx, db.Pool, completed.Add(-time.Minute), completed, 10, 4, 3))

	later := completed.Add(time.Hour)
	require.NoError(t, RecordScanCompleted(ctx, db.Pool, later.Add(-time.Minute), later, 2, 0, 0))

	last, err = LastScanCompletedAt(ctx, db.Pool)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(later))
}

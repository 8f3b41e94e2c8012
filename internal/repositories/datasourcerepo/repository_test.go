package datasourcerepo

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postcode-lookup/pipeline/pkg/database"
	"github.com/postcode-lookup/pipeline/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type capturingDB struct {
	database.DB
	query string
	args  []any
}

func (db *capturingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.query = query
	db.args = args
	return fakeResult{}, nil
}

func (db *capturingDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	db.query = query
	if sources, ok := dest.(*[]models.DataSource); ok {
		*sources = []models.DataSource{
			{SourceName: models.SourceCodePoint, Status: models.StatusCompleted},
			{SourceName: models.SourceNSPL, Status: models.StatusPending},
		}
	}
	return nil
}

func strptr(s string) *string { return &s }

func int64ptr(n int64) *int64 { return &n }

func TestSetStatusDownloading(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	err := repo.SetStatus(context.Background(), models.SourceCodePoint, models.StatusDownloading, Update{})
	require.NoError(t, err)

	assert.Contains(t, db.query, "INSERT INTO data_sources")
	assert.Contains(t, db.query, "ON CONFLICT (source_name) DO UPDATE")
	assert.NotContains(t, db.query, "started_at")
	assert.NotContains(t, db.query, "completed_at")
	assert.Equal(t, models.SourceCodePoint, db.args[0])
}

func TestSetStatusIngestingStampsStartedAt(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	err := repo.SetStatus(context.Background(), models.SourceNSPL, models.StatusIngesting, Update{
		FileHash: strptr("abc123"),
	})
	require.NoError(t, err)

	assert.Contains(t, db.query, "file_hash")
	assert.Contains(t, db.query, "started_at")
	assert.NotContains(t, db.query, "completed_at")
	assert.Contains(t, db.args, "abc123")
}

func TestSetStatusCompletedStampsCompletedAt(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	err := repo.SetStatus(context.Background(), models.SourceOSM, models.StatusCompleted, Update{
		RecordCount: int64ptr(1234),
	})
	require.NoError(t, err)

	assert.Contains(t, db.query, "record_count")
	assert.Contains(t, db.query, "completed_at")
	assert.Contains(t, db.args, int64(1234))
}

func TestSetStatusFailedRecordsError(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	err := repo.SetStatus(context.Background(), models.SourceOSM, models.StatusFailed, Update{
		ErrorMessage: strptr("download of osm failed"),
	})
	require.NoError(t, err)

	assert.Contains(t, db.query, "error_message")
	assert.Contains(t, db.args, "download of osm failed")
}

func TestList(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	sources, err := repo.List(context.Background())
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, models.SourceCodePoint, sources[0].SourceName)
	assert.Contains(t, db.query, "ORDER BY source_name")
}

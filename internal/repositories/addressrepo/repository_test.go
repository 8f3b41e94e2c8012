package addressrepo

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

type fakeResult struct {
	rows int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

type capturingTx struct {
	database.Tx
	query string
	args  []any
	rows  int64
}

func (t *capturingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.query = query
	t.args = args
	return fakeResult{rows: t.rows}, nil
}

type capturingDB struct {
	database.DB
	query string
}

func (db *capturingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.query = query
	return fakeResult{}, nil
}

func (db *capturingDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	db.query = query
	if stats, ok := dest.(*models.AddressStats); ok {
		*stats = models.AddressStats{Total: 10, Linked: 8, Complete: 5, Duplicates: 1, AvgConfidence: 0.62}
	}
	return nil
}

func strptr(s string) *string { return &s }

func TestInsertSQL(t *testing.T) {
	tx := &capturingTx{rows: 1}
	repo := New(&capturingDB{}, testLogger())

	batch := []models.OSMAddressRecord{
		{
			OsmID:        12345,
			OsmType:      "node",
			PostcodeRaw:  strptr("sw1a 2aa"),
			PostcodeNorm: strptr("SW1A 2AA"),
			HouseNumber:  strptr("10"),
			Street:       strptr("Downing Street"),
			City:         strptr("London"),
			Latitude:     51.5034,
			Longitude:    -0.1276,
		},
		{
			OsmID:     67890,
			OsmType:   "way",
			Latitude:  51.5,
			Longitude: -0.12,
		},
	}

	inserted, err := repo.Insert(context.Background(), tx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	assert.Contains(t, tx.query, "INSERT INTO addresses")
	assert.Contains(t, tx.query, "ON CONFLICT DO NOTHING")
	assert.NotContains(t, tx.query, "DO UPDATE")
	assert.Len(t, tx.args, 2*13)
	assert.Equal(t, int64(12345), tx.args[0])
	assert.Equal(t, "node", tx.args[1])

	// Missing optional fields pass through as nil pointers for NULL columns.
	assert.Nil(t, tx.args[13+2])
}

func TestInsertEmptyBatch(t *testing.T) {
	tx := &capturingTx{}
	repo := New(&capturingDB{}, testLogger())

	inserted, err := repo.Insert(context.Background(), tx, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, tx.query)
}

func TestStats(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(8), stats.Linked)
	assert.InDelta(t, 0.8, stats.LinkedRate(), 1e-9)
	assert.Contains(t, db.query, "FILTER (WHERE is_complete)")
	assert.Contains(t, db.query, "FILTER (WHERE is_duplicate)")
	assert.Contains(t, db.query, "AVG(confidence)")
}

func TestTruncate(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	require.NoError(t, repo.Truncate(context.Background()))
	assert.Contains(t, db.query, "TRUNCATE addresses")
}

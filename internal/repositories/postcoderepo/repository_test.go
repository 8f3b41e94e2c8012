package postcoderepo

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
}

func (t *capturingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.query = query
	t.args = args
	return fakeResult{rows: int64(len(args))}, nil
}

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

func (db *capturingDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	db.query = query
	if count, ok := dest.(*int64); ok {
		*count = 42
	}
	return nil
}

func strptr(s string) *string { return &s }

func TestUpsertCentroidsSQL(t *testing.T) {
	tx := &capturingTx{}
	repo := New(&capturingDB{}, testLogger())

	batch := []models.CodePointRecord{
		{
			Postcode:          "SW1A 1AA",
			PostcodeNoSpace:   "SW1A1AA",
			Easting:           530047,
			Northing:          179951,
			Latitude:          51.501,
			Longitude:         -0.1416,
			PositionalQuality: 10,
			CountryCode:       "E92000001",
		},
		{
			Postcode:        "M1 1AE",
			PostcodeNoSpace: "M11AE",
			Easting:         383819,
			Northing:        398282,
			Latitude:        53.477,
			Longitude:       -2.245,
		},
	}

	loaded, err := repo.UpsertCentroids(context.Background(), tx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded)

	assert.Contains(t, tx.query, "INSERT INTO postcodes")
	assert.Contains(t, tx.query, "ON CONFLICT (postcode) DO UPDATE")
	assert.Contains(t, tx.query, "EXCLUDED.latitude")
	assert.Contains(t, tx.query, "EXCLUDED.positional_quality")
	assert.Contains(t, tx.query, "codepoint+nspl")
	assert.Len(t, tx.args, 2*9)
	assert.Equal(t, "SW1A 1AA", tx.args[0])
}

func TestUpsertCentroidsEmptyBatch(t *testing.T) {
	tx := &capturingTx{}
	repo := New(&capturingDB{}, testLogger())

	loaded, err := repo.UpsertCentroids(context.Background(), tx, nil)
	require.NoError(t, err)
	assert.Zero(t, loaded)
	assert.Empty(t, tx.query)
}

func TestUpsertHierarchySQL(t *testing.T) {
	tx := &capturingTx{}
	repo := New(&capturingDB{}, testLogger())

	batch := []models.NSPLRecord{
		{
			Postcode:        "SW1A 1AA",
			PostcodeNoSpace: "SW1A1AA",
			CountryCode:     strptr("E92000001"),
			RegionCode:      strptr("E12000007"),
			DateIntroduced:  strptr("198001"),
			IsTerminated:    false,
		},
	}

	loaded, err := repo.UpsertHierarchy(context.Background(), tx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded)

	assert.Contains(t, tx.query, "INSERT INTO postcodes")
	assert.Contains(t, tx.query, "ON CONFLICT (postcode) DO UPDATE")
	assert.Contains(t, tx.query, "EXCLUDED.region_code")
	assert.Contains(t, tx.query, "EXCLUDED.is_terminated")
	assert.NotContains(t, tx.query, "EXCLUDED.latitude")
	assert.Len(t, tx.args, 12)
}

func TestCount(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.Contains(t, db.query, "COUNT(*) FROM postcodes")
}

func TestTruncate(t *testing.T) {
	db := &capturingDB{}
	repo := New(db, testLogger())

	require.NoError(t, repo.Truncate(context.Background()))
	assert.Contains(t, db.query, "TRUNCATE postcodes CASCADE")
}

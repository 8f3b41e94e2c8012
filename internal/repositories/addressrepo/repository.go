// Package addressrepo persists OSM address rows.
package addressrepo

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/postcode-lookup/pipeline/pkg/database"
	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/models"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

const table = "addresses"

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func New(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert writes a batch of address records. Re-ingesting the same extract is
// a no-op: the (osm_id, osm_type) pair is unique and conflicts are dropped.
// Returns the number of rows actually inserted.
func (r *Repository) Insert(ctx context.Context, tx database.Tx, batch []models.OSMAddressRecord) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "addressrepo.Repository.Insert")
	defer span.End()

	if len(batch) == 0 {
		return 0, nil
	}

	ib := database.NewInsertBuilder().
		InsertInto(table).
		Cols(
			"osm_id", "osm_type",
			"postcode_raw", "postcode_norm",
			"house_number", "house_name", "flat",
			"street", "suburb", "city", "county",
			"latitude", "longitude",
		)
	for _, rec := range batch {
		ib.Values(
			rec.OsmID, rec.OsmType,
			rec.PostcodeRaw, rec.PostcodeNorm,
			rec.HouseNumber, rec.HouseName, rec.Flat,
			rec.Street, rec.Suburb, rec.City, rec.County,
			rec.Latitude, rec.Longitude,
		)
	}
	ib.OnConflictDoNothing()

	query, args := ib.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert address batch")
		return 0, pipeerrors.NewStoreError("insert addresses", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return int64(len(batch)), nil
	}
	return inserted, nil
}

// Stats aggregates the addresses table for status reporting.
func (r *Repository) Stats(ctx context.Context) (*models.AddressStats, error) {
	ctx, span := tracing.StartSpan(ctx, "addressrepo.Repository.Stats")
	defer span.End()

	const query = `
		SELECT
			COUNT(*) AS total,
			COUNT(postcode_id) AS linked,
			COUNT(*) FILTER (WHERE is_complete) AS complete,
			COUNT(*) FILTER (WHERE is_duplicate) AS duplicates,
			COALESCE(AVG(confidence), 0) AS avg_confidence
		FROM addresses`

	var stats models.AddressStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, pipeerrors.NewStoreError("address stats", err)
	}
	return &stats, nil
}

// Count returns the number of address rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "addressrepo.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM addresses"); err != nil {
		return 0, pipeerrors.NewStoreError("count addresses", err)
	}
	return count, nil
}

// Truncate removes all address rows.
func (r *Repository) Truncate(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "addressrepo.Repository.Truncate")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, "TRUNCATE addresses"); err != nil {
		return pipeerrors.NewStoreError("truncate addresses", err)
	}
	return nil
}

// Package postcoderepo persists postcode centroid and hierarchy rows.
package postcoderepo

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/postcode-lookup/pipeline/pkg/database"
	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/models"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

const table = "postcodes"

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

// UpsertCentroids writes a batch of Code-Point records. Conflicting
// postcodes keep their row but take the new centroid fields; a row that
// already carries hierarchy data keeps its combined provenance tag.
func (r *Repository) UpsertCentroids(ctx context.Context, tx database.Tx, batch []models.CodePointRecord) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "postcoderepo.Repository.UpsertCentroids")
	defer span.End()

	if len(batch) == 0 {
		return 0, nil
	}

	ib := database.NewInsertBuilder().
		InsertInto(table).
		Cols(
			"postcode", "postcode_no_space",
			"latitude", "longitude", "easting", "northing",
			"positional_quality", "country_code", "source",
		)
	for _, rec := range batch {
		ib.Values(
			rec.Postcode, rec.PostcodeNoSpace,
			rec.Latitude, rec.Longitude, rec.Easting, rec.Northing,
			rec.PositionalQuality, rec.CountryCode, models.SourceCodePoint,
		)
	}

	ub := ib.OnConflict("postcode")
	ub.Set(
		ub.Assign("latitude", database.Excluded("latitude")),
		ub.Assign("longitude", database.Excluded("longitude")),
		ub.Assign("easting", database.Excluded("easting")),
		ub.Assign("northing", database.Excluded("northing")),
		ub.Assign("positional_quality", database.Excluded("positional_quality")),
		ub.Assign("country_code", database.Excluded("country_code")),
		ub.Assign("source", database.Raw("CASE WHEN postcodes.source IN ('nspl', 'codepoint+nspl') THEN 'codepoint+nspl' ELSE 'codepoint' END")),
	)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert centroid batch")
		return 0, pipeerrors.NewStoreError("upsert centroids", err)
	}

	// Rows affected is unreliable for DO UPDATE, every record lands.
	return int64(len(batch)), nil
}

// UpsertHierarchy writes a batch of NSPL records. Conflicting postcodes keep
// their centroid and take the new administrative fields.
func (r *Repository) UpsertHierarchy(ctx context.Context, tx database.Tx, batch []models.NSPLRecord) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "postcoderepo.Repository.UpsertHierarchy")
	defer span.End()

	if len(batch) == 0 {
		return 0, nil
	}

	ib := database.NewInsertBuilder().
		InsertInto(table).
		Cols(
			"postcode", "postcode_no_space",
			"country_code", "region_code", "local_authority",
			"parliamentary_const", "ward_code", "parish_code",
			"date_introduced", "date_terminated", "is_terminated", "source",
		)
	for _, rec := range batch {
		ib.Values(
			rec.Postcode, rec.PostcodeNoSpace,
			rec.CountryCode, rec.RegionCode, rec.LocalAuthority,
			rec.ParliamentaryConst, rec.WardCode, rec.ParishCode,
			rec.DateIntroduced, rec.DateTerminated, rec.IsTerminated, models.SourceNSPL,
		)
	}

	ub := ib.OnConflict("postcode")
	ub.Set(
		ub.Assign("country_code", database.Excluded("country_code")),
		ub.Assign("region_code", database.Excluded("region_code")),
		ub.Assign("local_authority", database.Excluded("local_authority")),
		ub.Assign("parliamentary_const", database.Excluded("parliamentary_const")),
		ub.Assign("ward_code", database.Excluded("ward_code")),
		ub.Assign("parish_code", database.Excluded("parish_code")),
		ub.Assign("date_introduced", database.Excluded("date_introduced")),
		ub.Assign("date_terminated", database.Excluded("date_terminated")),
		ub.Assign("is_terminated", database.Excluded("is_terminated")),
		ub.Assign("source", database.Raw("CASE WHEN postcodes.source IN ('codepoint', 'codepoint+nspl') THEN 'codepoint+nspl' ELSE 'nspl' END")),
	)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert hierarchy batch")
		return 0, pipeerrors.NewStoreError("upsert hierarchy", err)
	}

	return int64(len(batch)), nil
}

// Count returns the number of postcode rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "postcoderepo.Repository.Count")
	defer span.End()

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM postcodes"); err != nil {
		return 0, pipeerrors.NewStoreError("count postcodes", err)
	}
	return count, nil
}

// Truncate removes all postcode rows. Address links go with them.
func (r *Repository) Truncate(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "postcoderepo.Repository.Truncate")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, "TRUNCATE postcodes CASCADE"); err != nil {
		return pipeerrors.NewStoreError("truncate postcodes", err)
	}
	return nil
}

// Package datasourcerepo tracks per-source download and ingestion state.
package datasourcerepo

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/postcode-lookup/pipeline/pkg/database"
	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/models"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

const table = "data_sources"

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

// Update carries the optional fields recorded alongside a status change.
type Update struct {
	FileHash     *string
	RecordCount  *int64
	ErrorMessage *string
}

// SetStatus upserts the tracking row for a source. Entering "ingesting"
// stamps started_at; entering "completed" stamps completed_at.
func (r *Repository) SetStatus(ctx context.Context, sourceName, status string, upd Update) error {
	ctx, span := tracing.StartSpan(ctx, "datasourcerepo.Repository.SetStatus")
	defer span.End()

	now := time.Now().UTC()

	cols := []string{"source_name", "status", "updated_at"}
	values := []any{sourceName, status, now}

	if upd.FileHash != nil {
		cols = append(cols, "file_hash")
		values = append(values, *upd.FileHash)
	}
	if upd.RecordCount != nil {
		cols = append(cols, "record_count")
		values = append(values, *upd.RecordCount)
	}
	if upd.ErrorMessage != nil {
		cols = append(cols, "error_message")
		values = append(values, *upd.ErrorMessage)
	}
	switch status {
	case models.StatusIngesting:
		cols = append(cols, "started_at")
		values = append(values, now)
	case models.StatusCompleted:
		cols = append(cols, "completed_at")
		values = append(values, now)
	}

	ib := database.NewInsertBuilder().InsertInto(table).Cols(cols...).Values(values...)

	ub := ib.OnConflict("source_name")
	assigns := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		if col == "source_name" {
			continue
		}
		assigns = append(assigns, ub.Assign(col, values[i]))
	}
	ub.Set(assigns...)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("source", sourceName).Error("Failed to update data source status")
		return pipeerrors.NewStoreError("update data source", err)
	}
	return nil
}

// List returns all tracking rows ordered by source name.
func (r *Repository) List(ctx context.Context) ([]models.DataSource, error) {
	ctx, span := tracing.StartSpan(ctx, "datasourcerepo.Repository.List")
	defer span.End()

	var sources []models.DataSource
	err := r.db.SelectContext(ctx, &sources,
		`SELECT id, source_name, file_hash, record_count, started_at, completed_at,
			status, error_message, created_at, updated_at
		FROM data_sources ORDER BY source_name`)
	if err != nil {
		return nil, pipeerrors.NewStoreError("list data sources", err)
	}
	return sources, nil
}

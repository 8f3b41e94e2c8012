// Package loader drives record batches from a parser into the database, one
// transaction per batch.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/postcode-lookup/pipeline/pkg/database"
	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/ingest"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

// errInterrupted stops the stream at a batch boundary after cancellation.
var errInterrupted = errors.New("load interrupted")

// UpsertFunc writes one batch inside the given transaction and returns the
// number of rows actually written (conflicts resolved by skipping reduce it).
type UpsertFunc[T any] func(ctx context.Context, tx database.Tx, batch []T) (int64, error)

type Options struct {
	Source string
}

// Result summarizes one load run. A batch that fails is rolled back, counted
// in FailedBatches, and does not stop later batches.
type Result struct {
	Source        string
	Total         int64
	Loaded        int64
	Skipped       int64
	FailedBatches int
	Duration      time.Duration
	Errors        []string
	Interrupted   bool
}

// BatchLoad consumes the source batch by batch, committing each batch in its
// own transaction. Cancellation is honored only between batches: the batch
// in flight always commits or rolls back, so database ops run on a context
// detached from the caller's cancellation.
func BatchLoad[T any](ctx context.Context, db database.DB, source ingest.BatchFunc[T], upsert UpsertFunc[T], opts Options, logger ectologger.Logger) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "loader.BatchLoad")
	defer span.End()

	log := logger.WithContext(ctx).WithField("source", opts.Source)
	result := &Result{Source: opts.Source}
	start := time.Now()

	dbCtx := context.WithoutCancel(ctx)
	batchNum := 0

	err := source(ctx, func(batch []T) error {
		if ctx.Err() != nil {
			result.Interrupted = true
			return errInterrupted
		}

		batchNum++
		result.Total += int64(len(batch))

		tx, err := db.GetTx(dbCtx, nil)
		if err != nil {
			return pipeerrors.NewStoreError("begin transaction", err)
		}

		loaded, err := upsert(dbCtx, tx, batch)
		if err != nil {
			_ = tx.Rollback(dbCtx)
			result.FailedBatches++
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d: %v", batchNum, err))
			log.WithError(err).Warnf("Batch %d failed, continuing", batchNum)
			return nil
		}

		if err := tx.Commit(dbCtx); err != nil {
			result.FailedBatches++
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d commit: %v", batchNum, err))
			log.WithError(err).Warnf("Batch %d commit failed, continuing", batchNum)
			return nil
		}

		result.Loaded += loaded
		result.Skipped += int64(len(batch)) - loaded
		return nil
	})

	result.Duration = time.Since(start)

	if errors.Is(err, errInterrupted) {
		log.WithField("loaded", result.Loaded).Warn("Load interrupted, committed batches retained")
		return result, nil
	}
	if err != nil {
		return result, err
	}

	log.WithFields(map[string]any{
		"total":          result.Total,
		"loaded":         result.Loaded,
		"skipped":        result.Skipped,
		"failed_batches": result.FailedBatches,
		"duration":       result.Duration.String(),
	}).Info("Load complete")
	return result, nil
}

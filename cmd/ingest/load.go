package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/postcode-lookup/pipeline/pkg/ingest"
	"github.com/postcode-lookup/pipeline/pkg/loader"
	"github.com/postcode-lookup/pipeline/pkg/models"
)

func newLoadPostcodesCmd(a *app) *cobra.Command {
	var truncate bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "load-postcodes",
		Short: "Parse and load the centroid and hierarchy sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLoadPostcodes(cmd.Context(), truncate, batchSize)
		},
	}

	cmd.Flags().BoolVar(&truncate, "truncate", false, "empty the postcodes table first")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per transaction (config default when 0)")
	return cmd
}

func newLoadOSMCmd(a *app) *cobra.Command {
	var truncate bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "load-osm",
		Short: "Parse and load the OSM address source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLoadOSM(cmd.Context(), truncate, batchSize)
		},
	}

	cmd.Flags().BoolVar(&truncate, "truncate", false, "empty the addresses table first")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per transaction (config default when 0)")
	return cmd
}

func (a *app) batchSize(override int) int {
	if override > 0 {
		return override
	}
	return a.cfg.BatchSize
}

func (a *app) runLoadPostcodes(ctx context.Context, truncate bool, batchSizeOverride int) error {
	if truncate {
		if err := a.postcodes.Truncate(ctx); err != nil {
			return err
		}
		a.logger.WithContext(ctx).Warn("Postcodes table truncated")
	}

	batchSize := a.batchSize(batchSizeOverride)

	centroids, err := loadSourceImpl(a, ctx, models.SourceCodePoint,
		ingest.CodePoint(a.cfg.CodePointFile(), batchSize, a.transformer, a.logger),
		a.postcodes.UpsertCentroids)
	if err != nil {
		return err
	}

	hierarchy, err := loadSourceImpl(a, ctx, models.SourceNSPL,
		ingest.NSPL(a.cfg.NSPLFile(), batchSize, a.logger),
		a.postcodes.UpsertHierarchy)
	if err != nil {
		return err
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"centroids": centroids.Loaded,
		"hierarchy": hierarchy.Loaded,
	}).Info("Postcode load complete")
	return nil
}

func (a *app) runLoadOSM(ctx context.Context, truncate bool, batchSizeOverride int) error {
	if truncate {
		if err := a.addresses.Truncate(ctx); err != nil {
			return err
		}
		a.logger.WithContext(ctx).Warn("Addresses table truncated")
	}

	result, err := loadSourceImpl(a, ctx, models.SourceOSM,
		ingest.OSM(a.cfg.OSMFile(), a.batchSize(batchSizeOverride), a.logger),
		a.addresses.Insert)
	if err != nil {
		return err
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"loaded":  result.Loaded,
		"skipped": result.Skipped,
	}).Info("Address load complete")
	return nil
}

// loadSourceImpl runs one parser through the batch loader with data_sources
// tracking around it.
func loadSourceImpl[T any](a *app, ctx context.Context, name string, source ingest.BatchFunc[T], upsert loader.UpsertFunc[T]) (*loader.Result, error) {
	if err := a.sources.SetStatus(ctx, name, models.StatusIngesting, datasourceUpdate()); err != nil {
		return nil, err
	}

	result, err := loader.BatchLoad(ctx, a.db, source, upsert, loader.Options{Source: name}, a.logger)
	if err != nil {
		_ = a.sources.SetStatus(context.WithoutCancel(ctx), name, models.StatusFailed, datasourceError(err.Error()))
		return nil, err
	}

	// An interrupted run loaded only part of the source, so the row goes back
	// to pending with the partial count rather than claiming a full ingest.
	if result.Interrupted {
		if err := a.sources.SetStatus(context.WithoutCancel(ctx), name, models.StatusPending, datasourceCount(result.Loaded)); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := a.sources.SetStatus(context.WithoutCancel(ctx), name, models.StatusCompleted, datasourceCount(result.Loaded)); err != nil {
		return nil, err
	}

	_ = a.emitter.EmitSourceLoaded(ctx, a.runID, result)
	return result, nil
}

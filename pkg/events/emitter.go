// Package events emits lifecycle events as pipeline stages finish.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/postcode-lookup/pipeline/pkg/kafka"
	"github.com/postcode-lookup/pipeline/pkg/loader"
	"github.com/postcode-lookup/pipeline/pkg/merge"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

// Emitter publishes pipeline lifecycle events. A nil Emitter is valid and
// drops everything, so callers never guard emission behind config checks.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitSourceLoaded emits a source.loaded event with the load counts.
func (e *Emitter) EmitSourceLoaded(ctx context.Context, runID string, result *loader.Result) error {
	if e == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSourceLoaded")
	defer span.End()

	event := &kafka.PipelineEvent{
		EventID:   uuid.NewString(),
		EventType: "source.loaded",
		RunID:     runID,
		Source:    result.Source,
		Counts: map[string]int64{
			"total":          result.Total,
			"loaded":         result.Loaded,
			"skipped":        result.Skipped,
			"failed_batches": int64(result.FailedBatches),
		},
	}

	if err := e.producer.PublishPipelineEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit source.loaded event")
		return err
	}

	return nil
}

// EmitMergeCompleted emits a merge.completed event with the pass counts.
func (e *Emitter) EmitMergeCompleted(ctx context.Context, runID string, summary *merge.Summary) error {
	if e == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMergeCompleted")
	defer span.End()

	event := &kafka.PipelineEvent{
		EventID:   uuid.NewString(),
		EventType: "merge.completed",
		RunID:     runID,
		Counts: map[string]int64{
			"linked":     summary.Linked,
			"scored":     summary.Scored,
			"duplicates": summary.Duplicates,
		},
	}

	if err := e.producer.PublishPipelineEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit merge.completed event")
		return err
	}

	return nil
}

// Package merge runs the post-ingestion passes that connect addresses to
// postcodes: FK linking, confidence scoring, and duplicate marking.
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/postcode-lookup/pipeline/pkg/database"
	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/tracing"
)

// Signal is one confidence contribution with its SQL presence predicate.
type Signal struct {
	Name      string
	Predicate string
	Weight    float64
}

// Signals weight each presence check; the weights sum to 1.0 so a fully
// populated linked address scores exactly 1.0.
var Signals = []Signal{
	{Name: "postcode", Predicate: "postcode_id IS NOT NULL", Weight: 0.3},
	{Name: "street", Predicate: "street IS NOT NULL AND street != ''", Weight: 0.2},
	{Name: "house", Predicate: "(house_number IS NOT NULL AND house_number != '') OR (house_name IS NOT NULL AND house_name != '')", Weight: 0.2},
	{Name: "city", Predicate: "city IS NOT NULL AND city != ''", Weight: 0.15},
	{Name: "coordinates", Predicate: "latitude IS NOT NULL AND longitude IS NOT NULL", Weight: 0.1},
	{Name: "suburb", Predicate: "suburb IS NOT NULL AND suburb != ''", Weight: 0.05},
}

// Presence indicates which signals an address satisfies.
type Presence struct {
	Postcode    bool
	Street      bool
	House       bool
	City        bool
	Coordinates bool
	Suburb      bool
}

// Score computes the confidence an address with the given signals receives.
// It mirrors the SQL expression built from Signals.
func Score(p Presence) float64 {
	present := map[string]bool{
		"postcode":    p.Postcode,
		"street":      p.Street,
		"house":       p.House,
		"city":        p.City,
		"coordinates": p.Coordinates,
		"suburb":      p.Suburb,
	}

	var score float64
	for _, s := range Signals {
		if present[s.Name] {
			score += s.Weight
		}
	}
	return score
}

// confidenceExpr renders the weighted CASE sum applied to every address row.
func confidenceExpr() string {
	terms := make([]string, len(Signals))
	for i, s := range Signals {
		terms[i] = fmt.Sprintf("CASE WHEN %s THEN %g ELSE 0.0 END", s.Predicate, s.Weight)
	}
	return strings.Join(terms, "\n\t\t\t+ ")
}

// Summary reports the row counts touched by one merge run.
type Summary struct {
	Linked     int64
	Scored     int64
	Duplicates int64
}

type Engine struct {
	db     database.DB
	logger ectologger.Logger
}

func NewEngine(db database.DB, logger ectologger.Logger) *Engine {
	return &Engine{
		db:     db,
		logger: logger,
	}
}

// Run executes all three passes in order. Both tables must hold rows first.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.Run")
	defer span.End()

	if err := e.CheckPrerequisites(ctx); err != nil {
		return nil, err
	}

	summary := &Summary{}
	var err error

	if summary.Linked, err = e.LinkPostcodes(ctx); err != nil {
		return summary, err
	}
	if summary.Scored, err = e.ScoreConfidence(ctx); err != nil {
		return summary, err
	}
	if summary.Duplicates, err = e.MarkDuplicates(ctx); err != nil {
		return summary, err
	}

	return summary, nil
}

// CheckPrerequisites rejects a merge over an empty postcodes or addresses
// table, which would only produce unlinked, zero-scored rows.
func (e *Engine) CheckPrerequisites(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.CheckPrerequisites")
	defer span.End()

	var postcodes, addresses int64
	if err := e.db.GetContext(ctx, &postcodes, "SELECT COUNT(*) FROM postcodes"); err != nil {
		return pipeerrors.NewStoreError("count postcodes", err)
	}
	if err := e.db.GetContext(ctx, &addresses, "SELECT COUNT(*) FROM addresses"); err != nil {
		return pipeerrors.NewStoreError("count addresses", err)
	}

	if postcodes == 0 {
		return pipeerrors.NewPipelineError("no postcodes loaded, run load-postcodes before merge")
	}
	if addresses == 0 {
		return pipeerrors.NewPipelineError("no addresses loaded, run load-osm before merge")
	}
	return nil
}

// LinkPostcodes sets addresses.postcode_id where the normalized postcode
// matches. Only unlinked rows are touched so the pass is idempotent.
func (e *Engine) LinkPostcodes(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.LinkPostcodes")
	defer span.End()

	const query = `
		UPDATE addresses a
		SET postcode_id = p.id
		FROM postcodes p
		WHERE a.postcode_norm = p.postcode
		  AND a.postcode_id IS NULL
		  AND a.postcode_norm IS NOT NULL`

	res, err := e.db.ExecContext(ctx, query)
	if err != nil {
		return 0, pipeerrors.NewStoreError("link postcodes", err)
	}

	linked, _ := res.RowsAffected()
	e.logger.WithContext(ctx).WithField("linked", linked).Info("Postcodes linked")
	return linked, nil
}

// ScoreConfidence recomputes confidence and is_complete for every address.
func (e *Engine) ScoreConfidence(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.ScoreConfidence")
	defer span.End()

	query := fmt.Sprintf(`
		UPDATE addresses SET
			confidence = (%s),
			is_complete = (
				postcode_norm IS NOT NULL
				AND street IS NOT NULL AND street != ''
				AND (
					(house_number IS NOT NULL AND house_number != '')
					OR (house_name IS NOT NULL AND house_name != '')
				)
			)`, confidenceExpr())

	res, err := e.db.ExecContext(ctx, query)
	if err != nil {
		return 0, pipeerrors.NewStoreError("score confidence", err)
	}

	scored, _ := res.RowsAffected()
	e.logger.WithContext(ctx).WithField("scored", scored).Info("Confidence scores computed")
	return scored, nil
}

// MarkDuplicates flags every address that loses to a higher-confidence row
// sharing the same postcode link, street, and house identifier. Rows are
// marked, never deleted, and a former duplicate that becomes a winner is
// unmarked on the next run.
func (e *Engine) MarkDuplicates(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "merge.Engine.MarkDuplicates")
	defer span.End()

	const query = `
		UPDATE addresses a
		SET is_duplicate = (ranked.rn > 1)
		FROM (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY postcode_id,
					COALESCE(street, ''),
					COALESCE(house_number, ''),
					COALESCE(house_name, '')
				ORDER BY confidence DESC NULLS LAST, id ASC
			) AS rn
			FROM addresses
			WHERE postcode_id IS NOT NULL
		) ranked
		WHERE a.id = ranked.id
		  AND a.is_duplicate IS DISTINCT FROM (ranked.rn > 1)`

	res, err := e.db.ExecContext(ctx, query)
	if err != nil {
		return 0, pipeerrors.NewStoreError("mark duplicates", err)
	}

	marked, _ := res.RowsAffected()
	e.logger.WithContext(ctx).WithField("changed", marked).Info("Duplicate marking complete")
	return marked, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postcode-lookup/pipeline/pkg/merge"
)

func newMergeCmd(a *app) *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Link addresses to postcodes, score confidence, mark duplicates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMerge(cmd.Context(), pass)
		},
	}

	cmd.Flags().StringVar(&pass, "pass", "all", "run a single pass: link, score, or dedupe")
	return cmd
}

func (a *app) runMerge(ctx context.Context, pass string) error {
	engine := merge.NewEngine(a.db, a.logger)

	if pass == "all" {
		summary, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		_ = a.emitter.EmitMergeCompleted(ctx, a.runID, summary)

		a.logger.WithContext(ctx).WithFields(map[string]any{
			"linked":     summary.Linked,
			"scored":     summary.Scored,
			"duplicates": summary.Duplicates,
		}).Info("Merge complete")
		return nil
	}

	if err := engine.CheckPrerequisites(ctx); err != nil {
		return err
	}

	switch pass {
	case "link":
		_, err := engine.LinkPostcodes(ctx)
		return err
	case "score":
		_, err := engine.ScoreConfidence(ctx)
		return err
	case "dedupe":
		_, err := engine.MarkDuplicates(ctx)
		return err
	default:
		return fmt.Errorf("unknown merge pass %q (expected link, score, dedupe, or all)", pass)
	}
}

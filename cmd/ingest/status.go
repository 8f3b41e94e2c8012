package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show table counts, link rate, and per-source state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd.Context())
		},
	}
}

func (a *app) runStatus(ctx context.Context) error {
	postcodeCount, err := a.postcodes.Count(ctx)
	if err != nil {
		return err
	}

	stats, err := a.addresses.Stats(ctx)
	if err != nil {
		return err
	}

	sources, err := a.sources.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Postcodes\t%d\n", postcodeCount)
	fmt.Fprintf(w, "Addresses\t%d\n", stats.Total)
	fmt.Fprintf(w, "Linked\t%d (%.1f%%)\n", stats.Linked, stats.LinkedRate()*100)
	fmt.Fprintf(w, "Complete\t%d\n", stats.Complete)
	fmt.Fprintf(w, "Duplicates\t%d\n", stats.Duplicates)
	fmt.Fprintf(w, "Avg confidence\t%.3f\n", stats.AvgConfidence)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SOURCE\tSTATUS\tRECORDS\tHASH\tERROR")
	for _, src := range sources {
		records := "-"
		if src.RecordCount.Valid {
			records = fmt.Sprintf("%d", src.RecordCount.Int64)
		}
		hash := "-"
		if src.FileHash.Valid && src.FileHash.String != "" {
			hash = src.FileHash.String
			if len(hash) > 12 {
				hash = hash[:12]
			}
		}
		errMsg := "-"
		if src.ErrorMessage.Valid && src.ErrorMessage.String != "" {
			errMsg = src.ErrorMessage.String
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", src.SourceName, src.Status, records, hash, errMsg)
	}

	return w.Flush()
}

package main

import (
	"github.com/spf13/cobra"
)

func newAllCmd(a *app) *cobra.Command {
	var forceDownload bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run the full pipeline: download, load, merge, status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := a.runInitDB(ctx); err != nil {
				return err
			}
			if err := a.runDownload(ctx, "", forceDownload); err != nil {
				return err
			}
			if err := a.runLoadPostcodes(ctx, false, 0); err != nil {
				return err
			}
			if err := a.runLoadOSM(ctx, false, 0); err != nil {
				return err
			}
			if err := a.runMerge(ctx, "all"); err != nil {
				return err
			}
			return a.runStatus(ctx)
		},
	}

	cmd.Flags().BoolVar(&forceDownload, "force-download", false, "re-download archives even when present")
	return cmd
}

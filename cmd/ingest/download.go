package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/postcode-lookup/pipeline/pkg/download"
	"github.com/postcode-lookup/pipeline/pkg/models"
)

func newDownloadCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "download [source]",
		Short: "Download source archives (codepoint, nspl, osm; all when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return a.runDownload(cmd.Context(), name, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-download even when the file exists")
	return cmd
}

func (a *app) downloadSources(name string) ([]download.Source, error) {
	all := []download.Source{
		{Name: models.SourceCodePoint, URL: a.cfg.CodePointURL, Dest: a.cfg.CodePointFile()},
		{Name: models.SourceNSPL, URL: a.cfg.NSPLURL, Dest: a.cfg.NSPLFile()},
		{Name: models.SourceOSM, URL: a.cfg.OSMURL, Dest: a.cfg.OSMFile()},
	}

	if name == "" {
		return all, nil
	}
	for _, src := range all {
		if src.Name == name {
			return []download.Source{src}, nil
		}
	}
	return nil, fmt.Errorf("unknown source %q (expected codepoint, nspl, or osm)", name)
}

func (a *app) runDownload(ctx context.Context, name string, force bool) error {
	sources, err := a.downloadSources(name)
	if err != nil {
		return err
	}

	for _, src := range sources {
		if err := a.sources.SetStatus(ctx, src.Name, models.StatusDownloading, datasourceUpdate()); err != nil {
			return err
		}
	}

	client := &http.Client{Timeout: a.cfg.DownloadTimeout}
	d := download.New(client, a.cfg.DownloadConcurrency, a.logger)

	digests, err := d.FetchAll(ctx, sources, force)
	if err != nil {
		msg := err.Error()
		for _, src := range sources {
			_ = a.sources.SetStatus(ctx, src.Name, models.StatusFailed, datasourceError(msg))
		}
		return err
	}

	for _, src := range sources {
		digest := digests[src.Name]
		if err := a.sources.SetStatus(ctx, src.Name, models.StatusPending, datasourceHash(digest)); err != nil {
			return err
		}
	}

	a.logger.WithContext(ctx).WithField("sources", len(sources)).Info("Downloads complete")
	return nil
}

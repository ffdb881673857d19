// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/archive-fetch/internal/fetch"
	"github.com/pdiddy/archive-fetch/internal/httputil"
	"github.com/pdiddy/archive-fetch/internal/ledger"
	"github.com/pdiddy/archive-fetch/internal/listing"
	"github.com/pdiddy/archive-fetch/internal/metrics"
	"github.com/pdiddy/archive-fetch/internal/secrets"
	"github.com/pdiddy/archive-fetch/pkg/types"
)

const defaultDelaySeconds = 3

func addFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("delay", defaultDelaySeconds, "seconds to sleep after each download attempt")
	f.String("output-dir", ".", "directory the PDFs are written to")
	f.String("cache-dir", ".", "directory holding <collection>.json listing caches")
	f.Int("min-year", types.DefaultMinYear, "skip identifiers embedding a YYYY-MM-DD date before this year")
	f.Duration("timeout", 0, "HTTP request timeout (0 = none)")
	f.Bool("atomic", false, "write downloads to a temp file and rename on success, so failures leave no partial PDF")
	f.Bool("no-progress", false, "hide the download progress bar")
	f.String("metrics-file", "", "write Prometheus textfile metrics here at the end of the run")
	f.String("user-agent", types.DefaultUserAgent, "User-Agent header for HTTP requests")
	f.String("search-url", types.DefaultSearchURL, "archive.org advanced search endpoint")
	f.String("download-url", types.DefaultDownloadURL, "base URL for item downloads")
}

// runConfig resolves the merged flag/env/file settings into a RunConfig.
func (a *app) runConfig(collection string) (types.RunConfig, error) {
	delay := a.v.GetInt("delay")
	if delay < 0 {
		return types.RunConfig{}, fmt.Errorf("--delay must not be negative, got %d", delay)
	}

	access, secret := secrets.ArchiveKeys(a.secrets)
	httpCfg := types.HTTPConfig{
		Timeout:   a.v.GetDuration("timeout"),
		UserAgent: a.v.GetString("user-agent"),
		AccessKey: access,
		SecretKey: secret,
	}

	cfg := types.RunConfig{
		Collection: collection,
		Listing: types.ListingConfig{
			HTTPConfig: httpCfg,
			SearchURL:  a.v.GetString("search-url"),
			CacheDir:   a.v.GetString("cache-dir"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig:   httpCfg,
			DownloadURL:  a.v.GetString("download-url"),
			OutputDir:    a.v.GetString("output-dir"),
			Delay:        time.Duration(delay) * time.Second,
			MinYear:      a.v.GetInt("min-year"),
			Atomic:       a.v.GetBool("atomic"),
			HideProgress: a.v.GetBool("no-progress"),
		},
		LedgerPath:  a.v.GetString("ledger"),
		MetricsFile: a.v.GetString("metrics-file"),
	}
	return cfg, nil
}

func (a *app) runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := a.runConfig(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client := httputil.NewClient(cfg.Fetch.HTTPConfig)

	lister := listing.New(client, cfg.Listing, a.out)
	identifiers, err := lister.List(ctx, cfg.Collection)
	if err != nil {
		return fmt.Errorf("fetching index for %s: %w", cfg.Collection, err)
	}

	fetcher := fetch.New(client, cfg.Fetch, a.out)
	fetcher.Collection = cfg.Collection
	fetcher.Progress = a.errOut

	if cfg.LedgerPath != "" {
		store, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer store.Close()
		fetcher.Recorders = append(fetcher.Recorders, store)
	}

	var collector *metrics.Collector
	if cfg.MetricsFile != "" {
		collector = metrics.NewCollector(cfg.Collection)
		fetcher.Recorders = append(fetcher.Recorders, collector)
	}

	_, runErr := fetcher.Run(ctx, identifiers)

	if collector != nil {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			fmt.Fprintf(a.errOut, "warning: %v\n", err)
		}
	}
	return runErr
}

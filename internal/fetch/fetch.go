// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads the PDF of each collection item to local disk.
//
// Items are processed one at a time in listing order. An item is skipped
// without any network traffic when its identifier embeds a date older than
// the configured cutoff year, or when <identifier>.pdf already exists in the
// output directory. Every real download attempt, successful or not, is
// followed by the configured delay; skips are not.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/archive-fetch/pkg/types"
)

// Recorder receives the result of every processed item. The ledger and the
// metrics collector implement it.
type Recorder interface {
	Record(ctx context.Context, item types.ItemResult) error
}

// BatchResult holds the outcome of a run over a list of identifiers.
type BatchResult struct {
	Downloaded    int
	SkippedOld    int
	SkippedExists int
	Failed        int
	Items         []types.ItemResult
}

// Skipped returns the number of items skipped by either filter.
func (r BatchResult) Skipped() int {
	return r.SkippedOld + r.SkippedExists
}

// Attempts returns the number of items for which a download was issued.
func (r BatchResult) Attempts() int {
	return r.Downloaded + r.Failed
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped() + r.Failed
}

// HasFailures reports whether any download failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(item types.ItemResult) {
	switch item.Outcome {
	case types.OutcomeDownloaded:
		r.Downloaded++
	case types.OutcomeSkippedOld:
		r.SkippedOld++
	case types.OutcomeSkippedExists:
		r.SkippedExists++
	case types.OutcomeFailed:
		r.Failed++
	}
	r.Items = append(r.Items, item)
}

// Fetcher runs the download loop.
type Fetcher struct {
	Client *http.Client
	Config types.FetchConfig

	// Collection is stamped on every ItemResult.
	Collection string

	// Out receives the per-item status lines. Nil discards them.
	Out io.Writer

	// Progress receives the progress bar. Nil hides it.
	Progress io.Writer

	Recorders []Recorder

	// sleep and newProgress are swapped out by tests.
	sleep       func(ctx context.Context, d time.Duration) error
	newProgress func(total int64, desc string) progress
	now         func() time.Time
}

// New returns a Fetcher with cfg's defaults applied.
func New(client *http.Client, cfg types.FetchConfig, out io.Writer) *Fetcher {
	return &Fetcher{
		Client: client,
		Config: cfg.WithDefaults(),
		Out:    out,
	}
}

// Run processes identifiers in order and returns the per-item outcomes.
// Download failures are reported and do not stop the run. The returned
// error is non-nil only when the output directory cannot be created or ctx
// is cancelled; the partial BatchResult is returned alongside it.
func (f *Fetcher) Run(ctx context.Context, identifiers []string) (BatchResult, error) {
	var result BatchResult

	if err := os.MkdirAll(f.Config.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("creating output directory %s: %w", f.Config.OutputDir, err)
	}

	for _, id := range identifiers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := f.FetchItem(ctx, id)
		result.add(item)
		f.record(ctx, item)

		if item.Outcome.Skipped() {
			continue
		}
		if err := f.sleepFor(ctx, f.Config.Delay); err != nil {
			return result, err
		}
	}

	f.printf("\nSummary: %d downloaded, %d skipped (%d too old, %d already exist), %d failed (total: %d)\n",
		result.Downloaded, result.Skipped(), result.SkippedOld, result.SkippedExists, result.Failed, result.Total())
	return result, nil
}

// FetchItem applies the skip filters to identifier and downloads its PDF
// when neither applies.
func (f *Fetcher) FetchItem(ctx context.Context, identifier string) types.ItemResult {
	filename := Filename(identifier)
	url := ItemURL(f.Config.DownloadURL, identifier)
	item := types.ItemResult{
		Collection: f.Collection,
		Identifier: identifier,
		Filename:   filename,
		URL:        url,
		At:         f.clock(),
	}

	if TooOld(filename, f.Config.MinYear) {
		f.printf("Skipping %s: too old!\n", url)
		item.Outcome = types.OutcomeSkippedOld
		return item
	}

	dest := filepath.Join(f.Config.OutputDir, filename)
	if exists(dest) {
		f.printf("Skipping %s: already exists!\n", url)
		item.Outcome = types.OutcomeSkippedExists
		return item
	}

	f.printf("Downloading: %s\n", url)
	n, err := f.download(ctx, url, dest)
	item.Bytes = n
	item.Duration = f.clock().Sub(item.At)
	if err != nil {
		f.printf("Error fetching %s: %v\n", url, err)
		item.Outcome = types.OutcomeFailed
		item.Error = err.Error()
		return item
	}

	f.printf("Saved %s to %s\n", url, dest)
	item.Outcome = types.OutcomeDownloaded
	return item
}

func (f *Fetcher) record(ctx context.Context, item types.ItemResult) {
	for _, r := range f.Recorders {
		if err := r.Record(ctx, item); err != nil {
			f.printf("  warning: recording %s: %v\n", item.Identifier, err)
		}
	}
}

func (f *Fetcher) sleepFor(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now().UTC()
}

func (f *Fetcher) printf(format string, args ...any) {
	if f.Out == nil {
		return
	}
	fmt.Fprintf(f.Out, format, args...)
}

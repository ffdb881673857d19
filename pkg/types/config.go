// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Defaults for the archive.org endpoints and the fetch loop.
const (
	DefaultSearchURL   = "https://archive.org/advancedsearch.php"
	DefaultDownloadURL = "https://archive.org/download"
	DefaultUserAgent   = "archive-fetch/0.1"

	// DefaultRows is the result cap sent with a listing query. archive.org
	// has no "unbounded" value, so a very large number stands in for one.
	DefaultRows = 1000000000

	DefaultDelay     = 3 * time.Second
	DefaultMinYear   = 1920
	DefaultChunkSize = 32 * 1024
)

// HTTPConfig holds shared HTTP settings used by every stage that makes
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// AccessKey and SecretKey are archive.org S3-style keys. When both are
	// set, requests carry an "Authorization: LOW access:secret" header.
	AccessKey string `json:"-" yaml:"-"`
	SecretKey string `json:"-" yaml:"-"`
}

// ListingConfig holds settings for the identifier listing stage.
type ListingConfig struct {
	HTTPConfig `yaml:",inline"`

	// SearchURL is the advanced search endpoint.
	SearchURL string `json:"search_url" yaml:"search_url"`

	// Rows is the result cap requested from the search endpoint.
	Rows int `json:"rows" yaml:"rows"`

	// CacheDir holds the <collection>.json listing snapshots.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// FetchConfig holds settings for the download loop.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadURL is the base for item downloads; the item URL is
	// <DownloadURL>/<identifier>/<identifier>.pdf.
	DownloadURL string `json:"download_url" yaml:"download_url"`

	// OutputDir is where <identifier>.pdf files are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Delay is the pause after each download attempt. Skipped items do
	// not incur it.
	Delay time.Duration `json:"delay" yaml:"delay"`

	// MinYear is the cutoff for the age filter. Identifiers embedding a
	// YYYY-MM-DD date with YYYY < MinYear are skipped.
	MinYear int `json:"min_year" yaml:"min_year"`

	// ChunkSize is the read size used while streaming a download.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// Atomic writes each download to a temporary file and renames it on
	// success, so a failed transfer never leaves a partial <identifier>.pdf.
	Atomic bool `json:"atomic" yaml:"atomic"`

	// HideProgress disables the progress bar.
	HideProgress bool `json:"hide_progress" yaml:"hide_progress"`
}

// RunConfig groups everything one invocation of the CLI needs.
type RunConfig struct {
	Collection string        `json:"collection" yaml:"collection"`
	Listing    ListingConfig `json:"listing" yaml:"listing"`
	Fetch      FetchConfig   `json:"fetch" yaml:"fetch"`

	// LedgerPath is the SQLite ledger file. Empty disables the ledger.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`

	// MetricsFile is a Prometheus textfile written at the end of the run.
	// Empty disables it.
	MetricsFile string `json:"metrics_file" yaml:"metrics_file"`
}

// WithDefaults returns a copy of c with zero fields filled from the
// package defaults.
func (c FetchConfig) WithDefaults() FetchConfig {
	if c.DownloadURL == "" {
		c.DownloadURL = DefaultDownloadURL
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.MinYear == 0 {
		c.MinYear = DefaultMinYear
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// WithDefaults returns a copy of c with zero fields filled from the
// package defaults.
func (c ListingConfig) WithDefaults() ListingConfig {
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.Rows <= 0 {
		c.Rows = DefaultRows
	}
	if c.CacheDir == "" {
		c.CacheDir = "."
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

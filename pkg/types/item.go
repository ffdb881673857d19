// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the archive-fetch pipeline:
// the per-stage configuration and the records describing what happened to
// each collection item.
package types

import "time"

// Outcome describes what the download loop did with one identifier.
type Outcome string

const (
	OutcomeDownloaded    Outcome = "downloaded"
	OutcomeSkippedOld    Outcome = "skipped-too-old"
	OutcomeSkippedExists Outcome = "skipped-exists"
	OutcomeFailed        Outcome = "failed"
)

// Skipped reports whether the outcome is one of the filter skips.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedOld || o == OutcomeSkippedExists
}

// ItemResult records the handling of a single collection item.
type ItemResult struct {
	// Collection is the archive.org collection the item was listed from.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`

	// Identifier is the archive.org item identifier.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Filename is the derived "<identifier>.pdf".
	Filename string `json:"filename" yaml:"filename"`

	// URL is the download URL for the item's PDF.
	URL string `json:"url" yaml:"url"`

	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Bytes is the number of bytes written to disk. It can be non-zero
	// for a failed item when the stream broke mid-transfer.
	Bytes int64 `json:"bytes" yaml:"bytes"`

	// Error is the failure message for OutcomeFailed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	At       time.Time     `json:"at" yaml:"at"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/archive-fetch/internal/httputil"
)

// progress is the part of a progress bar the download loop drives.
type progress interface {
	Add64(n int64) error
	Finish() error
}

// download streams url into dest and returns the number of bytes written.
//
// Without Atomic the body is written straight to dest, so a broken stream
// leaves a truncated file that a later run will treat as complete. With
// Atomic it goes to a temp file in the same directory that is renamed over
// dest only after the whole body has arrived.
func (f *Fetcher) download(ctx context.Context, url, dest string) (int64, error) {
	resp, err := httputil.Get(ctx, f.Client, url, f.Config.HTTPConfig)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Content-Length is -1 when absent.
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	if !f.Config.Atomic {
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return 0, fmt.Errorf("creating %s: %w", dest, err)
		}
		n, copyErr := f.stream(out, resp.Body, total, filepath.Base(dest))
		closeErr := out.Close()
		if copyErr != nil {
			return n, copyErr
		}
		if closeErr != nil {
			return n, fmt.Errorf("closing %s: %w", dest, closeErr)
		}
		return n, nil
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".archive-fetch-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := f.stream(tmpFile, resp.Body, total, filepath.Base(dest))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return n, copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

// stream copies body to w in ChunkSize reads, advancing a progress bar by
// the length of every chunk written.
func (f *Fetcher) stream(w io.Writer, body io.Reader, total int64, desc string) (int64, error) {
	bar := f.progressBar(total, desc)
	defer bar.Finish()

	buf := make([]byte, f.Config.ChunkSize)
	var written int64
	for {
		nr, readErr := body.Read(buf)
		if nr > 0 {
			nw, writeErr := w.Write(buf[:nr])
			written += int64(nw)
			bar.Add64(int64(nw))
			if writeErr != nil {
				return written, fmt.Errorf("writing download: %w", writeErr)
			}
			if nw != nr {
				return written, fmt.Errorf("writing download: %w", io.ErrShortWrite)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading response body: %w", readErr)
		}
	}
}

func (f *Fetcher) progressBar(total int64, desc string) progress {
	if f.newProgress != nil {
		return f.newProgress(total, desc)
	}

	w := f.Progress
	if w == nil || f.Config.HideProgress {
		w = io.Discard
	}

	// An unknown size renders as a spinner.
	limit := total
	if limit <= 0 {
		limit = -1
	}
	return progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

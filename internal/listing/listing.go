// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package listing resolves an archive.org collection to the ordered list of
// item identifiers it contains. The raw search response is snapshotted to
// <cache-dir>/<collection>.json on the first successful fetch and that file
// is trusted on every later run; delete it to force a re-fetch.
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/archive-fetch/internal/httputil"
	"github.com/pdiddy/archive-fetch/pkg/types"
)

// ErrMalformedListing is returned when a search response (fetched or cached)
// does not have the {"response":{"docs":[{"identifier":...}]}} shape.
var ErrMalformedListing = errors.New("malformed listing")

// SearchResponse is the subset of the advanced search JSON the lister reads.
// Pointer fields distinguish a missing key from an empty value.
type SearchResponse struct {
	Response *struct {
		Docs *[]SearchDoc `json:"docs"`
	} `json:"response"`
}

// SearchDoc is one item in the search response.
type SearchDoc struct {
	Identifier *string `json:"identifier"`
}

// Lister fetches and caches collection listings.
type Lister struct {
	Client *http.Client
	Config types.ListingConfig

	// Out receives human-readable progress notices. Nil discards them.
	Out io.Writer
}

// New returns a Lister with cfg's defaults applied.
func New(client *http.Client, cfg types.ListingConfig, out io.Writer) *Lister {
	return &Lister{Client: client, Config: cfg.WithDefaults(), Out: out}
}

// CachePath returns the cache file path for collection.
func (l *Lister) CachePath(collection string) string {
	return filepath.Join(l.Config.CacheDir, collection+".json")
}

// List returns the identifiers of every item in collection, in the order
// the search endpoint produced them. A present cache file short-circuits
// the network entirely.
func (l *Lister) List(ctx context.Context, collection string) ([]string, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is empty")
	}

	cached := l.CachePath(collection)
	if info, err := os.Stat(cached); err == nil && info.Mode().IsRegular() {
		l.printf("Using cached index: %s\n", cached)
		l.printf("Delete %s if you want to force a re-fetch of the index.\n", cached)
		data, err := os.ReadFile(cached)
		if err != nil {
			return nil, fmt.Errorf("reading cache file %s: %w", cached, err)
		}
		ids, err := ParseIdentifiers(data)
		if err != nil {
			return nil, fmt.Errorf("parsing cache file %s: %w", cached, err)
		}
		return ids, nil
	}

	l.printf("Request index for collection: %s\n", collection)
	body, err := l.fetch(ctx, collection)
	if err != nil {
		return nil, err
	}

	ids, err := ParseIdentifiers(body)
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	l.printf("Writing index to cache file: %s\n", cached)
	if err := writeCache(cached, body); err != nil {
		return nil, err
	}
	return ids, nil
}

// SearchURL builds the advanced search request URL for collection.
func (l *Lister) SearchURL(collection string) string {
	params := url.Values{
		"q":      {"collection:" + collection},
		"fl[]":   {"identifier"},
		"rows":   {strconv.Itoa(l.Config.Rows)},
		"output": {"json"},
	}
	return l.Config.SearchURL + "?" + params.Encode()
}

func (l *Lister) fetch(ctx context.Context, collection string) ([]byte, error) {
	resp, err := httputil.Get(ctx, l.Client, l.SearchURL(collection), l.Config.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	return body, nil
}

// ParseIdentifiers decodes a search response body and returns the
// identifier of every doc in order. Every doc must carry a non-empty
// identifier.
func ParseIdentifiers(data []byte) ([]string, error) {
	var sr SearchResponse
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedListing, err)
	}
	if sr.Response == nil {
		return nil, fmt.Errorf("%w: missing \"response\"", ErrMalformedListing)
	}
	if sr.Response.Docs == nil {
		return nil, fmt.Errorf("%w: missing \"response.docs\"", ErrMalformedListing)
	}

	docs := *sr.Response.Docs
	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		if doc.Identifier == nil || *doc.Identifier == "" {
			return nil, fmt.Errorf("%w: doc %d has no identifier", ErrMalformedListing, i)
		}
		ids = append(ids, *doc.Identifier)
	}
	return ids, nil
}

// writeCache stores body at path. It refuses to replace an existing file:
// the cache is only ever removed by the user.
func writeCache(path string, body []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return fmt.Errorf("writing cache file %s: %w", path, err)
	}
	return f.Close()
}

func (l *Lister) printf(format string, args ...any) {
	if l.Out == nil {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}

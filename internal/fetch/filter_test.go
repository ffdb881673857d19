// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedYear(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantYear int
		wantOK   bool
	}{
		{"dated item", "item-1999-01-01.pdf", 1999, true},
		{"old item", "pub_chicago-daily-tribune-1893-05-12.pdf", 1893, true},
		{"no date", "some-book.pdf", 0, false},
		{"year only", "annual-report-1905.pdf", 0, false},
		{"year and month only", "issue-1905-03.pdf", 0, false},
		{"first match wins", "1850-01-01-reprint-2001-02-03.pdf", 1850, true},
		{"digits run into date", "x12345-06-07.pdf", 2345, true},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, ok := EmbeddedYear(tt.input)
			if year != tt.wantYear || ok != tt.wantOK {
				t.Errorf("EmbeddedYear(%q) = (%d, %v), want (%d, %v)", tt.input, year, ok, tt.wantYear, tt.wantOK)
			}
		})
	}
}

func TestTooOld(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		minYear int
		want    bool
	}{
		{"before cutoff", "item-1900-01-01.pdf", 1920, true},
		{"one year before", "item-1919-12-31.pdf", 1920, true},
		{"at cutoff", "item-1920-01-01.pdf", 1920, false},
		{"after cutoff", "item-2020-05-05.pdf", 1920, false},
		{"no date never too old", "item.pdf", 1920, false},
		{"custom cutoff", "item-1950-01-01.pdf", 1960, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TooOld(tt.input, tt.minYear); got != tt.want {
				t.Errorf("TooOld(%q, %d) = %v, want %v", tt.input, tt.minYear, got, tt.want)
			}
		})
	}
}

func TestItemURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   string
		want string
	}{
		{"archive.org", "https://archive.org/download", "item-1", "https://archive.org/download/item-1/item-1.pdf"},
		{"trailing slash", "https://archive.org/download/", "item-1", "https://archive.org/download/item-1/item-1.pdf"},
		{"verbatim identifier", "http://h/d", "chicago_1920-01-01", "http://h/d/chicago_1920-01-01/chicago_1920-01-01.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ItemURL(tt.base, tt.id); got != tt.want {
				t.Errorf("ItemURL(%q, %q) = %q, want %q", tt.base, tt.id, got, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("item-1"); got != "item-1.pdf" {
		t.Errorf("Filename = %q, want %q", got, "item-1.pdf")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if exists(path) {
		t.Fatal("exists reported a missing file")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !exists(path) {
		t.Error("exists missed an empty file")
	}
}

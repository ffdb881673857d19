// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// datePattern matches a YYYY-MM-DD date embedded anywhere in a filename.
var datePattern = regexp.MustCompile(`(\d{4})-\d{2}-\d{2}`)

// Filename returns the local file name for identifier.
func Filename(identifier string) string {
	return identifier + ".pdf"
}

// ItemURL returns the PDF download URL for identifier under base.
// The identifier is used verbatim.
func ItemURL(base, identifier string) string {
	return strings.TrimSuffix(base, "/") + "/" + identifier + "/" + Filename(identifier)
}

// EmbeddedYear returns the year of the first YYYY-MM-DD date found in name.
func EmbeddedYear(name string) (int, bool) {
	m := datePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// TooOld reports whether name embeds a date whose year is before minYear.
// Names without a date are never too old.
func TooOld(name string, minYear int) bool {
	year, ok := EmbeddedYear(name)
	return ok && year < minYear
}

// exists reports whether anything is present at path. A partial file from
// an interrupted run counts as present.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

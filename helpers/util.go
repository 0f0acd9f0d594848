package helpers

import (
	"errors"
	"strings"
)

// LastPathSegment returns the trailing path segment of a URL, ignoring any
// query string, fragment or trailing slash. Listing identifiers on the
// scraped site live in this segment.
func LastPathSegment(rawURL string) (string, error) {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimRight(trimmed, "/")

	parts := strings.Split(trimmed, "/")
	segment := parts[len(parts)-1]
	if segment == "" {
		return "", errors.New("no path segment in url")
	}
	return segment, nil
}

// Package util holds the logger, the shared HTTP plumbing and small
// generic helpers used across the service.
package util

import (
	"regexp"
	"strings"
)

// IsDebug mirrors the --debug flag.
var IsDebug bool

// SetDebugMode toggles debug logging.
func SetDebugMode(debug bool) {
	IsDebug = debug
}

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeTitle lowercases a title and collapses whitespace so that titles
// from different providers can be compared.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(strings.ToLower(title), " "))
}

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

package fileutils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
)

// SanitizeFilename removes characters that are not safe in file names and
// collapses whitespace.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'").Replace(name)
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, " ")

	// Trim spaces and dots from the ends (Windows doesn't like trailing dots)
	name = strings.Trim(name, " .")

	if len(name) > 200 {
		name = strings.Trim(name[:200], " .")
	}

	return name
}

// UploadName builds the stored name of an uploaded import file:
// <kind>_<YYYYmmdd_HHMMSS>_<short uuid>_<original name>.
func UploadName(kind, original string, now time.Time) string {
	base := SanitizeFilename(filepath.Base(original))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s_%s_%s_%s", kind, now.Format("20060102_150405"), uuid.NewString()[:8], base)
}

// SplitNames splits a string of names by common delimiters (comma and semicolon),
// trims whitespace from each name, and returns non-empty names.
func SplitNames(s string) []string {
	if s == "" {
		return nil
	}

	// Split by both comma and semicolon
	var parts []string
	for _, segment := range strings.Split(s, ";") {
		for _, part := range strings.Split(segment, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	return parts
}

package ir

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FilenameTimeLayout is the UTC timestamp layout used in export filenames.
const FilenameTimeLayout = "20060102T150405Z"

// ExportFilename returns the conventional artifact name for doc:
// config-<model ids joined by '-'>-<UTC timestamp>.json. Cosmetic only.
func ExportFilename(doc Document, now time.Time) string {
	parts := []string{"config"}
	for _, id := range doc.ModelIDs() {
		if s := sanitizeFilename(id); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, now.UTC().Format(FilenameTimeLayout))
	return strings.Join(parts, "-") + ".json"
}

// sanitizeFilename folds accented letters to their base letter, keeps
// filename-safe characters, and maps the rest to '_'.
func sanitizeFilename(id string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(fold, id)
	if err != nil {
		folded = id
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, folded)
}

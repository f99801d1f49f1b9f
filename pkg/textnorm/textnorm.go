// Package textnorm cleans raw extracted document text before it is
// embedded or included in a prompt.
package textnorm

import (
	"regexp"
	"strings"
)

// Bullet glyphs commonly produced by document extractors.
var bulletReplacer = strings.NewReplacer(
	"•", "-", // •
	"◦", "-", // ◦
	"▪", "-", // ▪
	"●", "-", // ●
	"·", "-", // ·
	"‣", "-", // ‣
	"⁃", "-", // ⁃
	"∙", "-", // ∙
)

var (
	ordinalSpacing = regexp.MustCompile(`(\d)[ \t]+(st|nd|rd|th)\b`)
	manyNewlines   = regexp.MustCompile(`\n{3,}`)
	spaceRuns      = regexp.MustCompile(`[ \t]+`)
)

// Normalize applies the cleanup rules in a fixed order: bullet glyphs to a
// plain dash, ordinal-suffix spacing collapsed ("1 st" -> "1st"), line
// endings unified to \n, runs of 3+ newlines collapsed to 2, runs of
// spaces/tabs collapsed to one space, and surrounding whitespace trimmed.
// It is pure and idempotent; an empty string comes back unchanged.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = bulletReplacer.Replace(s)
	s = ordinalSpacing.ReplaceAllString(s, "$1$2")

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")

	s = spaceRuns.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

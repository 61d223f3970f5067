// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation and the identifier
// normalization helpers used by the category engine.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches anything that isn't a lowercase letter, digit,
	// whitespace, or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespaceRun collapses any run of whitespace into a single separator.
	whitespaceRun = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// folder decomposes to NFD, removes combining marks, and recomposes,
// turning "Téléphonie" into "Telephonie".
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns s with diacritics stripped. On transform failure the input
// is returned unchanged.
func Fold(s string) string {
	out, _, err := transform.String(folder, s)
	if err != nil {
		return s
	}
	return out
}

// Generate creates a URL-friendly slug from the given string.
// Example: "Téléphones & Tablettes" → "telephones-tablettes"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(Fold(s)))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespaceRun.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// NormalizeCountry canonicalizes a country code scope: trimmed and uppercased.
// The empty string stays empty and means "global".
func NormalizeCountry(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeLabel canonicalizes a legacy free-text category label for
// matching: trimmed, lowercased, inner whitespace collapsed.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

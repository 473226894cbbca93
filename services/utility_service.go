package services

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	marketTagRegex  = regexp.MustCompile(`\s*\((유가|코스닥|코넥스|KOSPI|KOSDAQ|KONEX)\)\s*$`)
)

// NormalizeTextContent trims text and collapses runs of whitespace (including
// non-breaking spaces left by table markup) into single spaces.
func NormalizeTextContent(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// NormalizeCompanyName produces the dedup key used across sources.
// Matching stays case-sensitive; only whitespace and a trailing market tag are normalized.
func NormalizeCompanyName(name string) string {
	name = NormalizeTextContent(name)
	name = marketTagRegex.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// IsNotAvailable checks if a cell holds a placeholder instead of a value
func IsNotAvailable(text string) bool {
	text = strings.ToLower(NormalizeTextContent(text))

	notAvailableValues := []string{
		"",
		"-",
		"--",
		"미정",
		"추후공고",
		"tba",
		"tbd",
		"n/a",
		"na",
	}

	for _, na := range notAvailableValues {
		if text == na {
			return true
		}
	}

	return false
}

// OptionalString returns nil for placeholder cells and the normalized text otherwise
func OptionalString(text string) *string {
	if IsNotAvailable(text) {
		return nil
	}
	normalized := NormalizeTextContent(text)
	return &normalized
}

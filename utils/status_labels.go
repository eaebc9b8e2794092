package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// statusDisplayOverrides covers codes whose title-cased form reads poorly.
var statusDisplayOverrides = map[string]string{
	"final_submitted": "Final Submission Received",
}

func normalizeStatusCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// StatusDisplayName turns a status code such as "under_review" into "Under Review".
func StatusDisplayName(code string) string {
	normalized := normalizeStatusCode(code)
	if normalized == "" {
		return ""
	}
	if label, ok := statusDisplayOverrides[normalized]; ok {
		return label
	}
	return cases.Title(language.English).String(strings.ReplaceAll(normalized, "_", " "))
}

// StatusHeadline is the upper-case label used in email subjects, e.g. "APPROVED".
// Casers are stateful, so each call builds its own.
func StatusHeadline(code string) string {
	return cases.Upper(language.English).String(strings.ReplaceAll(normalizeStatusCode(code), "_", " "))
}

package normalizer

import (
	"strings"
	"unicode"

	"fjacquet/fintrack/internal/models"
)

// IsValid reports whether a candidate row may enter the preview: it needs a
// date, a description and a strictly positive amount.
func IsValid(p models.ParsedTransaction) bool {
	return strings.TrimSpace(p.Date) != "" &&
		strings.TrimSpace(p.Description) != "" &&
		p.Amount > 0
}

// InvalidReason describes why IsValid rejected p.
func InvalidReason(p models.ParsedTransaction) string {
	switch {
	case strings.TrimSpace(p.Date) == "":
		return "missing date"
	case strings.TrimSpace(p.Description) == "":
		return "missing description"
	case p.Amount <= 0:
		return "amount not positive"
	}
	return ""
}

// SanitizeDescription strips control characters, collapses whitespace and
// truncates to the persisted description limit.
func SanitizeDescription(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	runes := []rune(cleaned)
	if len(runes) > models.MaxDescriptionLength {
		cleaned = strings.TrimSpace(string(runes[:models.MaxDescriptionLength]))
	}
	return cleaned
}

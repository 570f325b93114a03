package ocr

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
	"fjacquet/fintrack/internal/validation"
)

// Receipt holds what could be read off a receipt. Amount and Date are the
// best guesses; the candidate lists keep every alternative in reading order.
type Receipt struct {
	Merchant         string            `json:"merchant"`
	Amount           decimal.Decimal   `json:"amount"`
	AmountCandidates []decimal.Decimal `json:"amount_candidates"`
	Date             string            `json:"date"`
	DateCandidates   []string          `json:"date_candidates"`
	Text             string            `json:"text"`
}

var (
	moneyPattern = regexp.MustCompile(`\d{1,3}(?:[,']\d{3})*[.,]\d{2}\b|\d+[.,]\d{2}\b`)
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}[ \-](?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[ \-]\d{2,4}\b`),
	}
	totalPattern = regexp.MustCompile(`(?i)\b(?:grand total|total|amount due|balance due|montant|summe)\b`)
)

// ParseReceipt extracts merchant, amount and date candidates from OCR text.
// The amount is the largest figure on a total line, or the largest figure
// overall when no total line exists.
func ParseReceipt(text string) Receipt {
	r := Receipt{Text: text}
	var totals []decimal.Decimal

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		lineDates := findDates(line)
		r.DateCandidates = append(r.DateCandidates, lineDates...)

		// keep date digits out of the money scan
		scan := line
		for _, re := range datePatterns {
			scan = re.ReplaceAllString(scan, " ")
		}
		var amounts []decimal.Decimal
		for _, m := range moneyPattern.FindAllString(scan, -1) {
			if a, err := normalizer.ParseAmount(strings.ReplaceAll(m, " ", "")); err == nil && a.IsPositive() {
				amounts = append(amounts, a)
			}
		}
		r.AmountCandidates = append(r.AmountCandidates, amounts...)
		if totalPattern.MatchString(line) && !strings.Contains(strings.ToLower(line), "subtotal") {
			totals = append(totals, amounts...)
		}

		if r.Merchant == "" && len(lineDates) == 0 && len(amounts) == 0 && isName(line) {
			r.Merchant = line
		}
	}

	switch {
	case len(totals) > 0:
		r.Amount = maxOf(totals)
	case len(r.AmountCandidates) > 0:
		r.Amount = maxOf(r.AmountCandidates)
	}
	if len(r.DateCandidates) > 0 {
		r.Date = r.DateCandidates[0]
	}
	return r
}

// Draft prefills a transaction form from the receipt.
func (r Receipt) Draft() validation.TransactionInput {
	in := validation.TransactionInput{
		Date:        r.Date,
		Description: validation.Description(r.Merchant),
		Type:        string(models.TransactionTypeExpense),
	}
	if r.Amount.IsPositive() {
		in.Amount = r.Amount.StringFixed(2)
	}
	return in
}

func findDates(line string) []string {
	var out []string
	for _, re := range datePatterns {
		for _, m := range re.FindAllString(line, -1) {
			if iso, err := normalizer.ToISODate(m); err == nil {
				out = append(out, iso)
			}
		}
	}
	return out
}

// isName reports whether line reads like a shop name rather than a number
// or a receipt heading.
func isName(line string) bool {
	letters, digits := 0, 0
	for _, r := range line {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if letters < 2 || digits > letters {
		return false
	}
	lower := strings.ToLower(line)
	for _, skip := range []string{"receipt", "invoice", "tax invoice", "welcome"} {
		if lower == skip {
			return false
		}
	}
	return true
}

func maxOf(values []decimal.Decimal) decimal.Decimal {
	best := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(best) {
			best = v
		}
	}
	return best
}

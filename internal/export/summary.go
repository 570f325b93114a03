package export

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/fintrack/internal/models"
)

// CategoryTotal is the money moved in one category.
type CategoryTotal struct {
	Category string
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Count    int
}

// Summary aggregates a set of transactions.
type Summary struct {
	From, To   string
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Count      int
	Categories []CategoryTotal
}

// Net is income minus expense.
func (s Summary) Net() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}

// Summarize totals txs overall and per category. Categories are ordered by
// expense, largest first, then by name.
func Summarize(txs []models.Transaction) Summary {
	var s Summary
	byCategory := map[string]*CategoryTotal{}

	for _, tx := range txs {
		s.Count++
		if s.From == "" || tx.Date < s.From {
			s.From = tx.Date
		}
		if tx.Date > s.To {
			s.To = tx.Date
		}

		name := tx.Category
		if name == "" {
			name = models.CategoryOther
		}
		ct, ok := byCategory[name]
		if !ok {
			ct = &CategoryTotal{Category: name}
			byCategory[name] = ct
		}
		ct.Count++

		amount := tx.Amount.Abs()
		if tx.IsExpense() {
			s.Expense = s.Expense.Add(amount)
			ct.Expense = ct.Expense.Add(amount)
		} else {
			s.Income = s.Income.Add(amount)
			ct.Income = ct.Income.Add(amount)
		}
	}

	for _, ct := range byCategory {
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := s.Categories[i], s.Categories[j]
		if c := a.Expense.Cmp(b.Expense); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})
	return s
}

// FormatAmount renders amount with two decimals and a currency marker.
// Returns strings like "CHF 1234.56" or "EUR 1234.56".
func FormatAmount(amount decimal.Decimal, currency string) string {
	formatted := amount.StringFixed(2)
	if currency == "" {
		return formatted
	}
	// the core PDF fonts are Latin-1, so symbols outside it are spelled out
	switch strings.ToUpper(currency) {
	case "USD":
		return "$" + formatted
	case "GBP":
		return "£" + formatted
	default:
		return strings.ToUpper(currency) + " " + formatted
	}
}

package categorizer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/store"
)

// DefaultBuckets is the built-in fallback heuristic, checked in order.
var DefaultBuckets = []models.CategoryConfig{
	{
		Name: models.CategoryFood,
		Keywords: []string{
			"restaurant", "cafe", "coffee", "food", "swiggy", "zomato", "uber eats",
			"doordash", "grubhub", "deliveroo", "just eat", "pizza", "burger",
			"mcdonald", "starbucks", "kfc", "domino", "subway", "bakery",
			"grocery", "groceries", "supermarket", "dining", "lunch", "dinner",
		},
	},
	{
		Name: models.CategoryTransportation,
		Keywords: []string{
			"uber", "lyft", "ola cabs", "taxi", "rapido", "fuel", "petrol", "diesel",
			"gas station", "shell", "metro", "railway", "train", "bus fare",
			"parking", "toll", "transport", "airline", "flight",
		},
	},
	{
		Name: models.CategoryShopping,
		Keywords: []string{
			"amazon", "flipkart", "myntra", "ebay", "walmart", "target", "aliexpress",
			"ikea", "shopping", "shop", "store", "mall", "zara", "h&m",
		},
	},
	{
		Name: models.CategoryIncome,
		Keywords: []string{
			"salary", "bonus", "income", "payroll", "wages", "dividend", "stipend",
		},
	},
	{
		Name: models.CategoryHousing,
		Keywords: []string{
			"rent", "maintenance", "mortgage", "landlord", "housing", "society",
		},
	},
	{
		Name: models.CategoryUtilities,
		Keywords: []string{
			"electricity", "water bill", "gas bill", "internet", "broadband", "wifi",
			"mobile", "phone", "recharge", "utility", "utilities", "airtel",
			"verizon", "comcast", "power bill",
		},
	},
}

// MatchBucket returns the first bucket with a keyword that starts a word in
// description.
func MatchBucket(description string, buckets []models.CategoryConfig) (string, bool) {
	lower := strings.ToLower(description)
	for _, b := range buckets {
		for _, kw := range b.Keywords {
			if containsWordPrefix(lower, strings.ToLower(kw)) {
				return b.Name, true
			}
		}
	}
	return "", false
}

// containsWordPrefix reports whether kw occurs in s at a word start, so
// "rent" matches "Rent March" and "rental" but not "current".
func containsWordPrefix(s, kw string) bool {
	if kw == "" {
		return false
	}
	for from := 0; from <= len(s)-len(kw); {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		at := from + i
		if prev, _ := utf8.DecodeLastRuneInString(s[:at]); at == 0 || !isWordRune(prev) {
			return true
		}
		from = at + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// KeywordStrategy implements the fallback buckets, loading custom buckets
// from the categories file when one exists.
type KeywordStrategy struct {
	buckets []models.CategoryConfig
	logger  logging.Logger
}

// NewKeywordStrategy creates a new KeywordStrategy. Buckets loaded from
// loader are checked before the defaults.
func NewKeywordStrategy(loader store.CategoryLoader, logger logging.Logger) *KeywordStrategy {
	s := &KeywordStrategy{
		buckets: DefaultBuckets,
		logger:  logging.OrDefault(logger),
	}
	if loader == nil {
		return s
	}
	custom, err := loader.LoadCategories()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load categories, using built-in buckets")
		return s
	}
	if len(custom) > 0 {
		s.buckets = append(append([]models.CategoryConfig{}, custom...), DefaultBuckets...)
	}
	return s
}

// Name returns the name of this strategy for logging and debugging.
func (s *KeywordStrategy) Name() string {
	return "Keyword"
}

// Categorize implements CategorizationStrategy.
func (s *KeywordStrategy) Categorize(_ context.Context, description string) (string, bool, error) {
	c, ok := MatchBucket(description, s.buckets)
	return c, ok, nil
}

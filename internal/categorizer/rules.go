package categorizer

import (
	"context"
	"sort"
	"strings"

	"fjacquet/fintrack/internal/models"
)

// ActiveByPriority returns the active rules ordered by priority, highest
// first. Equal priorities keep their input order.
func ActiveByPriority(rules []models.CategorizationRule) []models.CategorizationRule {
	active := make([]models.CategorizationRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive && strings.TrimSpace(r.Keyword) != "" {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	return active
}

// MatchRule returns the first rule whose keyword is a case-insensitive
// substring of description. rules must already be ordered.
func MatchRule(description string, rules []models.CategorizationRule) (models.CategorizationRule, bool) {
	lower := strings.ToLower(description)
	for _, r := range rules {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(r.Keyword))) {
			return r, true
		}
	}
	return models.CategorizationRule{}, false
}

// Categorize labels description with the user's rules, falling back to the
// built-in buckets and finally to "Other". It is a pure function.
func Categorize(description string, rules []models.CategorizationRule) string {
	if r, ok := MatchRule(description, ActiveByPriority(rules)); ok {
		return r.Category
	}
	if c, ok := MatchBucket(description, DefaultBuckets); ok {
		return c
	}
	return models.CategoryOther
}

// RuleStrategy applies user-defined keyword rules.
type RuleStrategy struct {
	rules []models.CategorizationRule
}

// NewRuleStrategy orders rules once for repeated use.
func NewRuleStrategy(rules []models.CategorizationRule) *RuleStrategy {
	return &RuleStrategy{rules: ActiveByPriority(rules)}
}

// Name returns the name of this strategy for logging and debugging.
func (s *RuleStrategy) Name() string {
	return "Rule"
}

// Categorize implements CategorizationStrategy.
func (s *RuleStrategy) Categorize(_ context.Context, description string) (string, bool, error) {
	if r, ok := MatchRule(description, s.rules); ok {
		return r.Category, true, nil
	}
	return "", false, nil
}

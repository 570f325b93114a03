// Package categorizer assigns categories to imported transactions. User
// rules are tried first in priority order, then the keyword buckets; anything
// left is "Other". AI suggestions are a separate, rate limited call.
package categorizer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"fjacquet/fintrack/internal/cache"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
)

// SuggestEndpoint is the rate limit key suffix of AI suggestions.
const SuggestEndpoint = "categorize"

// ErrRateLimited is returned by Suggest when the user asked too often.
var ErrRateLimited = &parsererror.ValidationError{Field: "suggestions", Reason: "too many requests, wait a minute and try again"}

// Limiter gates AI suggestions per user.
type Limiter interface {
	Allow(ctx context.Context, userID, endpoint string, maxRequests, windowMinutes int) bool
}

// Categorizer runs the strategies over import batches.
type Categorizer struct {
	ds       store.DataStore
	keywords *KeywordStrategy
	ai       *AIStrategy
	logger   logging.Logger

	rules    *cache.Cache
	rulesTTL time.Duration

	limiter     Limiter
	maxRequests int
	window      int
}

// NewCategorizer creates a Categorizer. loader and ai may be nil.
func NewCategorizer(ds store.DataStore, loader store.CategoryLoader, ai AIClient, logger logging.Logger) *Categorizer {
	logger = logging.OrDefault(logger)
	c := &Categorizer{
		ds:       ds,
		keywords: NewKeywordStrategy(loader, logger),
		logger:   logger,
	}
	if ai != nil {
		c.ai = NewAIStrategy(ai, logger)
	}
	return c
}

// RulesQuery selects a user's active rules, highest priority first.
func RulesQuery(userID string) store.Query {
	return store.Query{UserID: userID}.
		Where("is_active", true).
		OrderBy("priority", true)
}

// RulesKey is the cache key of a user's rule list.
func RulesKey(userID string) cache.Key {
	return cache.NewKey(models.TableCategorizationRules, userID)
}

// CacheRules serves FetchRules from rc, treating the rules as reference data
// that stays fresh for ttl.
func (c *Categorizer) CacheRules(rc *cache.Cache, ttl time.Duration) *Categorizer {
	if ttl <= 0 {
		ttl = cache.DefaultStaticTTL
	}
	c.rules, c.rulesTTL = rc, ttl
	return c
}

// FetchRules loads the user's active rules.
func (c *Categorizer) FetchRules(ctx context.Context, userID string) ([]models.CategorizationRule, error) {
	if c.rules == nil {
		return c.selectRules(ctx, userID)
	}
	v, err := c.rules.Fetch(ctx, RulesKey(userID), c.rulesTTL, func(ctx context.Context) (any, error) {
		return c.selectRules(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	rules, _ := v.([]models.CategorizationRule)
	return slices.Clone(rules), nil
}

func (c *Categorizer) selectRules(ctx context.Context, userID string) ([]models.CategorizationRule, error) {
	var rules []models.CategorizationRule
	if err := c.ds.Select(ctx, models.TableCategorizationRules, RulesQuery(userID), &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (c *Categorizer) invalidateRules(userID string) {
	if c.rules != nil {
		c.rules.Invalidate(RulesKey(userID))
	}
}

// LimitSuggestions gates Suggest with limiter, maxRequests calls per
// window minutes. A nil limiter leaves suggestions unlimited.
func (c *Categorizer) LimitSuggestions(limiter Limiter, maxRequests, windowMinutes int) *Categorizer {
	if maxRequests <= 0 {
		maxRequests = 20
	}
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	c.limiter, c.maxRequests, c.window = limiter, maxRequests, windowMinutes
	return c
}

// SuggestionsEnabled reports whether an AI client is configured.
func (c *Categorizer) SuggestionsEnabled() bool {
	return c.ai != nil
}

// strategies is the local chain: no I/O beyond the rules already fetched.
func (c *Categorizer) strategies(rules []models.CategorizationRule) []CategorizationStrategy {
	return []CategorizationStrategy{NewRuleStrategy(rules), c.keywords}
}

// Explain runs every local strategy on description and reports each outcome.
func (c *Categorizer) Explain(ctx context.Context, description string, rules []models.CategorizationRule) StrategyResults {
	var results StrategyResults
	for _, s := range c.strategies(rules) {
		category, found, err := s.Categorize(ctx, description)
		if err != nil {
			err = &parsererror.CategorizationError{Transaction: description, Strategy: s.Name(), Err: err}
		}
		results.Results = append(results.Results, StrategyResult{
			Strategy: s.Name(),
			Category: category,
			Found:    found,
			Error:    err,
		})
	}
	return results
}

// Suggest labels description like CategorizeOne and, when nothing local
// matched, asks the AI model. Each AI call counts against the user's
// suggestion limit. Without an AI client the local result is returned.
func (c *Categorizer) Suggest(ctx context.Context, userID, description string, rules []models.CategorizationRule) (string, string, error) {
	category, strategy := c.CategorizeOne(ctx, description, rules)
	if strategy != "" || c.ai == nil {
		return category, strategy, nil
	}
	if c.limiter != nil && !c.limiter.Allow(ctx, userID, SuggestEndpoint, c.maxRequests, c.window) {
		return "", "", ErrRateLimited
	}

	suggested, found, err := c.ai.Categorize(ctx, description)
	if err != nil {
		return "", "", &parsererror.CategorizationError{Transaction: description, Strategy: c.ai.Name(), Err: err}
	}
	if !found {
		return models.CategoryOther, "", nil
	}
	return suggested, c.ai.Name(), nil
}

// CategorizeOne labels one description with pre-fetched rules. It returns
// the category and the strategy that produced it.
func (c *Categorizer) CategorizeOne(ctx context.Context, description string, rules []models.CategorizationRule) (string, string) {
	return c.categorizeWith(ctx, description, c.strategies(rules))
}

func (c *Categorizer) categorizeWith(ctx context.Context, description string, strategies []CategorizationStrategy) (string, string) {
	for _, s := range strategies {
		category, found, err := s.Categorize(ctx, description)
		if err != nil {
			c.logger.WithError(&parsererror.CategorizationError{Transaction: description, Strategy: s.Name(), Err: err}).
				Debug("Strategy failed", logging.F("strategy", s.Name()))
			continue
		}
		if found {
			return category, s.Name()
		}
	}
	return models.CategoryOther, ""
}

// CategorizeBatch labels txs in place. The rules are fetched once for the
// whole batch and no other remote call is made; when the fetch fails the
// batch is still labelled using the fallback buckets. Only context
// cancellation is reported.
func (c *Categorizer) CategorizeBatch(ctx context.Context, userID string, txs []models.ParsedTransaction) error {
	rules, err := c.FetchRules(ctx, userID)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to fetch categorization rules, using fallback buckets",
			logging.F(logging.FieldUserID, userID))
		rules = nil
	}

	strategies := c.strategies(rules)
	counts := make(map[string]int)
	for i := range txs {
		category, strategy := c.categorizeWith(ctx, txs[i].Description, strategies)
		txs[i].Category = category
		counts[strategy]++
	}

	c.logger.Info("Categorized batch",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, len(txs)),
		logging.F("by_rule", counts["Rule"]),
		logging.F("by_keyword", counts["Keyword"]),
		logging.F("uncategorized", counts[""]))
	return ctx.Err()
}

// SaveRule validates and stores a new rule for userID.
func (c *Categorizer) SaveRule(ctx context.Context, userID string, rule *models.CategorizationRule) error {
	rule.Keyword = strings.TrimSpace(rule.Keyword)
	rule.Category = strings.TrimSpace(rule.Category)
	if rule.Keyword == "" {
		return &parsererror.ValidationError{Field: "keyword", Reason: "is required"}
	}
	if rule.Category == "" || len([]rune(rule.Category)) > models.MaxCategoryLength {
		return &parsererror.ValidationError{Field: "category", Value: rule.Category,
			Reason: fmt.Sprintf("must be 1-%d characters", models.MaxCategoryLength)}
	}
	rule.UserID = userID
	if err := c.ds.Insert(ctx, models.TableCategorizationRules, rule); err != nil {
		return err
	}
	c.invalidateRules(userID)
	return nil
}

// DeleteRule removes one of the user's rules.
func (c *Categorizer) DeleteRule(ctx context.Context, userID, id string) error {
	if err := c.ds.Delete(ctx, models.TableCategorizationRules, userID, id); err != nil {
		return err
	}
	c.invalidateRules(userID)
	return nil
}

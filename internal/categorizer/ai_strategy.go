package categorizer

import (
	"context"
	"strings"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
)

// AIClient suggests a category for a description among candidates.
type AIClient interface {
	SuggestCategory(ctx context.Context, description string, candidates []string) (string, error)
}

// AIStrategy asks a remote model when neither rules nor buckets matched.
type AIStrategy struct {
	client     AIClient
	candidates []string
	logger     logging.Logger
}

// NewAIStrategy creates a new AIStrategy instance.
func NewAIStrategy(client AIClient, logger logging.Logger) *AIStrategy {
	candidates := make([]string, 0, len(DefaultBuckets)+1)
	for _, b := range DefaultBuckets {
		candidates = append(candidates, b.Name)
	}
	candidates = append(candidates, models.CategoryOther)

	return &AIStrategy{
		client:     client,
		candidates: candidates,
		logger:     logging.OrDefault(logger),
	}
}

// Name returns the name of this strategy for logging and debugging.
func (s *AIStrategy) Name() string {
	return "AI"
}

// Categorize implements CategorizationStrategy. Answers outside the
// candidate list are ignored.
func (s *AIStrategy) Categorize(ctx context.Context, description string) (string, bool, error) {
	if s.client == nil || strings.TrimSpace(description) == "" {
		return "", false, nil
	}

	suggestion, err := s.client.SuggestCategory(ctx, description, s.candidates)
	if err != nil {
		s.logger.WithError(err).Debug("AI categorization failed")
		return "", false, err
	}

	suggestion = strings.TrimSpace(suggestion)
	for _, c := range s.candidates {
		if strings.EqualFold(c, suggestion) && c != models.CategoryOther {
			return c, true, nil
		}
	}
	return "", false, nil
}

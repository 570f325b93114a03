package categorizer

import (
	"context"
)

// CategorizationStrategy defines one way of labelling a description.
type CategorizationStrategy interface {
	// Categorize returns the category and whether this strategy matched.
	Categorize(ctx context.Context, description string) (string, bool, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}

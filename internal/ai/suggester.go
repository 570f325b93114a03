package ai

import (
	"context"
	"fmt"
	"strings"
)

// CategorySuggester asks the assistant to pick a category for a
// transaction description. It satisfies categorizer.AIClient.
type CategorySuggester struct {
	client Client
}

// NewCategorySuggester creates a CategorySuggester.
func NewCategorySuggester(client Client) *CategorySuggester {
	return &CategorySuggester{client: client}
}

// SuggestCategory returns the category named in the reply, or "" when the
// reply names none of the candidates.
func (s *CategorySuggester) SuggestCategory(ctx context.Context, description string, candidates []string) (string, error) {
	prompt := fmt.Sprintf(`Categorize the following financial transaction:
Description: %s

Please assign this transaction to exactly one of the following categories:
%s

Respond in this format:
Category: [Selected Category Name]`, description, strings.Join(candidates, ", "))

	resp, err := s.client.Chat(ctx, Request{Message: prompt})
	if err != nil {
		return "", err
	}
	return ExtractCategory(resp.Response, candidates), nil
}

// ExtractCategory reads a "Category:" line from reply, falling back to the
// first candidate mentioned anywhere in it.
func ExtractCategory(reply string, candidates []string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Category:"); ok {
			name := strings.Trim(strings.TrimSpace(rest), "[]*.")
			for _, c := range candidates {
				if strings.EqualFold(c, name) {
					return c
				}
			}
		}
	}
	lower := strings.ToLower(reply)
	for _, c := range candidates {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

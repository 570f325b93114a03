package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/models"
)

type categorizeRequest struct {
	Description  string   `json:"description"`
	Descriptions []string `json:"descriptions"`
	Suggest      bool     `json:"suggest"`
}

type categorizeResult struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Strategy    string `json:"strategy,omitempty"`
}

// categorize labels one or many descriptions with the user's rules fetched
// once for the request. With suggest set, descriptions nothing local matched
// are sent to the AI model, each call counting against the rate limit.
func (s *Server) categorize(c *gin.Context) {
	var req categorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	descriptions := req.Descriptions
	if strings.TrimSpace(req.Description) != "" {
		descriptions = append([]string{req.Description}, descriptions...)
	}
	if len(descriptions) == 0 {
		badRequest(c, "description required")
		return
	}

	ctx := c.Request.Context()
	rules, err := s.deps.Categorizer.FetchRules(ctx, userID(c))
	if err != nil {
		s.logger.WithError(err).Warn("Categorizing without user rules")
		rules = nil
	}

	results := make([]categorizeResult, len(descriptions))
	for i, d := range descriptions {
		category, strategy := s.deps.Categorizer.CategorizeOne(ctx, d, rules)
		if req.Suggest {
			category, strategy, err = s.deps.Categorizer.Suggest(ctx, userID(c), d, rules)
			if err != nil {
				s.writeError(c, err)
				return
			}
		}
		if category == "" {
			category = models.CategoryOther
		}
		results[i] = categorizeResult{Description: d, Category: category, Strategy: strategy}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

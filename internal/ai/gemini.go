package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// ProviderGemini names the Gemini provider in responses.
const ProviderGemini = "gemini"

const systemPrompt = `You are a personal finance assistant. Answer briefly and concretely,
using only the financial data provided. Amounts are in the user's currency.`

// GeminiProvider answers chat requests with a Gemini model.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

// Chat implements Client. The conversation history is replayed as chat
// history and the financial data is prepended to the new message.
func (g *GeminiProvider) Chat(ctx context.Context, req Request) (Response, error) {
	cs := g.client.GenerativeModel(g.model).StartChat()
	cs.History = append(cs.History, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(systemPrompt)}})
	for _, m := range req.ConversationHistory {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return Response{}, classifyGeminiError(err)
	}
	text := responseText(resp)
	if text == "" {
		return Response{}, fmt.Errorf("no response from Gemini API")
	}
	return Response{Response: text, Provider: ProviderGemini}, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	if req.UserProfile != nil && req.UserProfile.Currency != "" {
		fmt.Fprintf(&b, "Currency: %s\n", req.UserProfile.Currency)
	}
	if len(req.FinancialData) > 0 {
		fmt.Fprintf(&b, "Financial data (JSON): %s\n\n", req.FinancialData)
	}
	b.WriteString(req.Message)
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

// transientError marks provider failures worth retrying.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }
func (e transientError) Transient() bool { return true }

func classifyGeminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) &&
		(gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError) {
		return transientError{err}
	}
	msg := err.Error()
	if strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "UNAVAILABLE") {
		return transientError{err}
	}
	return err
}

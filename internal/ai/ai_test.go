package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/rpc"
	"fjacquet/fintrack/internal/store"
)

type scriptedClient struct {
	errs     []error
	reply    string
	calls    int
	requests []Request
}

func (s *scriptedClient) Chat(_ context.Context, req Request) (Response, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return Response{}, err
		}
	}
	return Response{Response: s.reply, Provider: "test"}, nil
}

func newRetrying(next Client) (*RetryingClient, *[]time.Duration) {
	var waits []time.Duration
	r := NewRetryingClient(next, 3, time.Second, logging.NewMockLogger())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

var rateLimited = &rpc.StatusError{Function: "ai-chat", Code: http.StatusTooManyRequests}

func TestRetryingClient_RecoversFromTransientFailures(t *testing.T) {
	next := &scriptedClient{errs: []error{rateLimited, rateLimited}, reply: "ok"}
	r, waits := newRetrying(next)

	resp, err := r.Chat(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestRetryingClient_BoundedAttempts(t *testing.T) {
	next := &scriptedClient{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited, nil}}
	r, waits := newRetrying(next)

	_, err := r.Chat(context.Background(), Request{Message: "hi"})
	var remote *parsererror.RemoteCallError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "ai.chat", remote.Op)
	assert.Contains(t, err.Error(), "AI call failed")
	assert.ErrorIs(t, err, rateLimited)
	assert.Equal(t, 4, next.calls, "first call plus three retries")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *waits)
}

func TestRetryingClient_ThirdRetrySucceeds(t *testing.T) {
	next := &scriptedClient{errs: []error{rateLimited, rateLimited, rateLimited}, reply: "late"}
	r, _ := newRetrying(next)

	resp, err := r.Chat(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "late", resp.Response)
	assert.Equal(t, 4, next.calls)
}

func TestRetryingClient_DoesNotRetryPermanentErrors(t *testing.T) {
	next := &scriptedClient{errs: []error{&rpc.StatusError{Code: http.StatusBadRequest}}}
	r, waits := newRetrying(next)

	_, err := r.Chat(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, *waits)
}

func TestRetryingClient_StopsOnCancel(t *testing.T) {
	next := &scriptedClient{errs: []error{rateLimited, rateLimited, rateLimited}}
	r, _ := newRetrying(next)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Chat(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}

func TestBackoff(t *testing.T) {
	r := NewRetryingClient(nil, 0, 0, nil)
	assert.Equal(t, time.Second, r.Backoff(1))
	assert.Equal(t, 2*time.Second, r.Backoff(2))
	assert.Equal(t, 4*time.Second, r.Backoff(3))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(rateLimited))
	assert.True(t, IsRetryable(classifyGeminiError(&googleapi.Error{Code: 503})))
	assert.True(t, IsRetryable(classifyGeminiError(errors.New("rpc error: code = RESOURCE_EXHAUSTED"))))
	assert.False(t, IsRetryable(classifyGeminiError(&googleapi.Error{Code: 400})))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestFunctionClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai-chat", r.URL.Path)
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.ConversationHistory, 1)
		_ = json.NewEncoder(w).Encode(Response{Response: "echo: " + req.Message, Provider: "gemini"})
	}))
	defer srv.Close()

	c := NewFunctionClient(rpc.NewClient(srv.URL, "", time.Second), "")
	resp, err := c.Chat(context.Background(), Request{
		Message:             "hello",
		ConversationHistory: []Message{{Role: RoleUser, Content: "earlier"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Response)
	assert.Equal(t, "gemini", resp.Provider)
}

func TestRequestWireFormat(t *testing.T) {
	raw, err := json.Marshal(Request{Message: "m", FinancialData: json.RawMessage(`{"total":1}`), Provider: "gemini"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"m","financialData":{"total":1},"provider":"gemini"}`, string(raw))
}

func TestGeminiHelpers(t *testing.T) {
	prompt := buildPrompt(Request{
		Message:       "How much on food?",
		FinancialData: json.RawMessage(`{"food":120}`),
		UserProfile:   &models.Profile{Currency: "CHF"},
	})
	assert.Contains(t, prompt, "Currency: CHF")
	assert.Contains(t, prompt, `{"food":120}`)
	assert.True(t, strings.HasSuffix(prompt, "How much on food?"))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(" You spent "), genai.Text("120.")}},
	}}}
	assert.Equal(t, "You spent 120.", responseText(resp))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	_, err := NewGeminiProvider(context.Background(), "", "")
	assert.Error(t, err)
}

func TestExtractCategory(t *testing.T) {
	candidates := []string{"Food", "Transportation", "Utilities", "Other"}
	tests := []struct {
		reply    string
		expected string
	}{
		{"Category: Utilities\nDescription: power company", "Utilities"},
		{"Category: [food]", "Food"},
		{"I think this is Transportation.", "Transportation"},
		{"Category: Crypto", ""},
		{"no idea", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExtractCategory(tt.reply, candidates), tt.reply)
	}
}

func TestCategorySuggester(t *testing.T) {
	next := &scriptedClient{reply: "Category: Utilities"}
	got, err := NewCategorySuggester(next).SuggestCategory(context.Background(), "ACME POWER", []string{"Food", "Utilities"})
	require.NoError(t, err)
	assert.Equal(t, "Utilities", got)
	assert.Contains(t, next.requests[0].Message, "ACME POWER")
	assert.Contains(t, next.requests[0].Message, "Food, Utilities")
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, string, int, int) bool { return false }

func TestAssistant_Conversation(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	ctx := context.Background()
	profile := models.Profile{UserID: "u1", Currency: "EUR"}
	require.NoError(t, ds.Insert(ctx, models.TableProfiles, &profile))

	next := &scriptedClient{reply: "Spend less on coffee."}
	a := NewAssistant(next, ds, AssistantOptions{}, nil)

	resp, id, err := a.Ask(ctx, "u1", "", "How do I save?", map[string]int{"food": 120})
	require.NoError(t, err)
	assert.Equal(t, "Spend less on coffee.", resp.Response)
	require.NotEmpty(t, id)
	require.NotNil(t, next.requests[0].UserProfile)
	assert.Equal(t, "EUR", next.requests[0].UserProfile.Currency)
	assert.JSONEq(t, `{"food":120}`, string(next.requests[0].FinancialData))

	_, id2, err := a.Ask(ctx, "u1", id, "And rent?", nil)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "How do I save?"},
		{Role: RoleAssistant, Content: "Spend less on coffee."},
	}, next.requests[1].ConversationHistory)

	var rows []models.ChatConversation
	require.NoError(t, ds.Select(ctx, models.TableChatConversations, store.Query{UserID: "u1"}, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "How do I save?", rows[0].Title)
	var stored []Message
	require.NoError(t, json.Unmarshal(rows[0].Messages, &stored))
	assert.Len(t, stored, 4)
}

func TestAssistant_Guards(t *testing.T) {
	ds := store.NewMemoryStore(nil)
	next := &scriptedClient{reply: "x"}
	ctx := context.Background()

	_, _, err := NewAssistant(next, ds, AssistantOptions{}, nil).Ask(ctx, "u1", "", "  ", nil)
	var verr *parsererror.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, err = NewAssistant(next, ds, AssistantOptions{Limiter: denyAll{}}, nil).Ask(ctx, "u1", "", "hi", nil)
	assert.ErrorIs(t, err, ErrRateLimited)

	_, _, err = NewAssistant(next, ds, AssistantOptions{}, nil).Ask(ctx, "u1", "missing", "hi", nil)
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, next.calls)
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/store"
)

// MaxHistory bounds the turns replayed to the model.
const MaxHistory = 20

// Limiter gates chat calls per user and endpoint.
type Limiter interface {
	Allow(ctx context.Context, userID, endpoint string, maxRequests, windowMinutes int) bool
}

// ErrRateLimited is returned when the user sent too many messages.
var ErrRateLimited = &parsererror.ValidationError{Field: "chat", Reason: "too many messages, wait a minute and try again"}

// Assistant runs conversations and stores them as chat_conversations rows.
type Assistant struct {
	client      Client
	ds          store.DataStore
	limiter     Limiter
	maxRequests int
	window      int
	provider    string
	logger      logging.Logger
}

// AssistantOptions configures an Assistant.
type AssistantOptions struct {
	Limiter       Limiter
	MaxRequests   int
	WindowMinutes int
	Provider      string
}

// NewAssistant creates an Assistant.
func NewAssistant(client Client, ds store.DataStore, opts AssistantOptions, logger logging.Logger) *Assistant {
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = 20
	}
	if opts.WindowMinutes <= 0 {
		opts.WindowMinutes = 1
	}
	return &Assistant{
		client:      client,
		ds:          ds,
		limiter:     opts.Limiter,
		maxRequests: opts.MaxRequests,
		window:      opts.WindowMinutes,
		provider:    opts.Provider,
		logger:      logging.OrDefault(logger),
	}
}

// Ask sends message within conversationID (a new conversation when empty)
// and returns the reply with the conversation id.
func (a *Assistant) Ask(ctx context.Context, userID, conversationID, message string, financialData any) (Response, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Response{}, "", &parsererror.ValidationError{Field: "message", Reason: "is required"}
	}
	if a.limiter != nil && !a.limiter.Allow(ctx, userID, "chat", a.maxRequests, a.window) {
		return Response{}, "", ErrRateLimited
	}

	conv, history, err := a.load(ctx, userID, conversationID)
	if err != nil {
		return Response{}, "", err
	}

	req := Request{Message: message, ConversationHistory: tail(history, MaxHistory), Provider: a.provider}
	if financialData != nil {
		raw, err := json.Marshal(financialData)
		if err != nil {
			return Response{}, "", fmt.Errorf("encode financial data: %w", err)
		}
		req.FinancialData = raw
	}
	var profiles []models.Profile
	if err := a.ds.Select(ctx, models.TableProfiles, store.Query{UserID: userID, Limit: 1}, &profiles); err == nil && len(profiles) == 1 {
		req.UserProfile = &profiles[0]
	}

	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return Response{}, conv.ID, err
	}

	history = append(history, Message{Role: RoleUser, Content: message}, Message{Role: RoleAssistant, Content: resp.Response})
	if err := a.save(ctx, userID, &conv, history); err != nil {
		a.logger.WithError(err).Warn("Failed to store conversation",
			logging.F(logging.FieldUserID, userID))
	}
	return resp, conv.ID, nil
}

func (a *Assistant) load(ctx context.Context, userID, id string) (models.ChatConversation, []Message, error) {
	if id == "" {
		return models.ChatConversation{}, nil, nil
	}
	var rows []models.ChatConversation
	if err := a.ds.Select(ctx, models.TableChatConversations, store.Query{UserID: userID}.Where("id", id), &rows); err != nil {
		return models.ChatConversation{}, nil, err
	}
	if len(rows) == 0 {
		return models.ChatConversation{}, nil, &parsererror.ValidationError{Field: "conversation", Value: id, Reason: "does not exist"}
	}
	var history []Message
	if len(rows[0].Messages) > 0 {
		if err := json.Unmarshal(rows[0].Messages, &history); err != nil {
			return models.ChatConversation{}, nil, fmt.Errorf("decode conversation %s: %w", id, err)
		}
	}
	return rows[0], history, nil
}

func (a *Assistant) save(ctx context.Context, userID string, conv *models.ChatConversation, history []Message) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	if conv.ID != "" {
		return a.ds.Update(ctx, models.TableChatConversations, userID, conv.ID, map[string]any{
			"messages": datatypes.JSON(raw),
		})
	}
	conv.UserID = userID
	conv.Title = title(history[0].Content)
	conv.Messages = datatypes.JSON(raw)
	return a.ds.Insert(ctx, models.TableChatConversations, conv)
}

func tail(history []Message, n int) []Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func title(first string) string {
	r := []rune(first)
	if len(r) > 60 {
		return strings.TrimSpace(string(r[:60])) + "..."
	}
	return first
}

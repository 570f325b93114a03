// Package ai talks to the financial assistant: a hosted chat function or a
// direct Gemini model, wrapped in a bounded retry loop.
package ai

import (
	"context"
	"encoding/json"

	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/rpc"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat function payload.
type Request struct {
	Message             string          `json:"message"`
	FinancialData       json.RawMessage `json:"financialData,omitempty"`
	UserProfile         *models.Profile `json:"userProfile,omitempty"`
	ConversationHistory []Message       `json:"conversationHistory,omitempty"`
	Provider            string          `json:"provider,omitempty"`
}

// Response is the chat function reply.
type Response struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
}

// Client answers chat requests.
type Client interface {
	Chat(ctx context.Context, req Request) (Response, error)
}

// FunctionClient calls the hosted ai-chat function.
type FunctionClient struct {
	rpc      *rpc.Client
	function string
}

// NewFunctionClient creates a FunctionClient. An empty function name uses
// "ai-chat".
func NewFunctionClient(c *rpc.Client, function string) *FunctionClient {
	if function == "" {
		function = "ai-chat"
	}
	return &FunctionClient{rpc: c, function: function}
}

// Chat implements Client.
func (f *FunctionClient) Chat(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if err := f.rpc.Call(ctx, f.function, req, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

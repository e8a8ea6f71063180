package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a completion is requested before
	// Initialize has succeeded.
	ErrNotInitialized = errors.New("provider is not initialized")

	// ErrNoChoices is returned when the server answers without any choices.
	ErrNoChoices = errors.New("completion returned no choices")
)

// Provider adapts a concrete backend to the generic chat-completion surface
// the assistant framework consumes.
type Provider interface {
	// Name reports the registry name of the backend, e.g. "tabby".
	Name() string

	// Initialize resolves credentials and builds the underlying client.
	// It is idempotent and safe for concurrent use. No other method may be
	// called before it returns nil.
	Initialize(ctx context.Context) error

	// Chat performs a blocking chat completion.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatStream performs a streaming chat completion. The returned Stream's
	// channels are always closed when the exchange ends.
	ChatStream(ctx context.Context, req ChatRequest) Stream

	// CountTokens estimates the token count of arbitrary text.
	CountTokens(text string) int
}

// ChatRequest carries one chat-completion exchange.
type ChatRequest struct {
	Messages []Message

	// Model overrides the configured default when non-empty.
	Model string

	// MaxTokens caps the completion length when > 0.
	MaxTokens int64

	// Temperature overrides the configured default when non-nil.
	Temperature *float64

	// User is an opaque end-user identifier forwarded to the server.
	User string
}

// Validate rejects requests that would fail on the wire anyway, before any
// network call is made.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("chat request has no messages")
	}
	for i, msg := range r.Messages {
		if msg.Role == "" {
			return fmt.Errorf("chat request message %d has no role", i)
		}
	}
	return nil
}

// Usage reports token counts for one exchange. Estimated is true when the
// numbers came from the length/4 heuristic instead of the server.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	Estimated        bool  `json:"estimated,omitempty"`
}

// ChatResponse is the terminal result of a chat completion, streamed or not.
type ChatResponse struct {
	Message      Message `json:"message"`
	Model        string  `json:"model,omitempty"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Usage        Usage   `json:"usage"`
}

// Text returns the assistant content of the response.
func (r ChatResponse) Text() string {
	return r.Message.Content
}

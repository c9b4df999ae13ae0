package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Roles for history turns forwarded to the backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrBackendUnavailable wraps transport or API failures from the model
	// backend. Callers treat it as retriable.
	ErrBackendUnavailable = errors.New("model backend unavailable")
	// ErrMalformedResponse marks a reply with no usable candidate text.
	ErrMalformedResponse = errors.New("malformed model response")
)

// Turn is one prior exchange forwarded as conversation history.
type Turn struct {
	Role    string
	Content string
}

// Request is a fully assembled generation request: system instructions,
// prior history and the annotated live turn.
type Request struct {
	System   string
	History  []Turn
	UserTurn string
}

// Backend generates a reply for an assembled request.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// ClientConfig configures the OpenAI-compatible chat completions client.
// BaseURL may point at any compatible endpoint, including Gemini's.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int64
	Timeout     time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	api openai.Client
	cfg ClientConfig
}

// NewClient builds a backend client from configuration.
func NewClient(cfg ClientConfig) *Client {
	// No retries: a failed turn rolls back as a whole and the visitor
	// simply resends, so fail fast instead of stacking backoff on top of
	// the request timeout.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{api: openai.NewClient(opts...), cfg: cfg}
}

// Model returns the configured model identifier, recorded on every bot
// message for later analysis.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Generate sends the request and returns the first candidate's text. The
// call is bounded by the configured timeout regardless of the caller's
// context.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.UserTurn))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.cfg.Model),
		Messages: messages,
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}
	if c.cfg.TopP > 0 {
		params.TopP = openai.Float(c.cfg.TopP)
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.cfg.MaxTokens)
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformedResponse)
	}
	return text, nil
}

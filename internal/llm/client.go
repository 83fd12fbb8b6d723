package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role identifies the speaker of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the ordered prompt sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client produces one completion for an ordered message sequence. The call
// is synchronous and bounded by the context deadline; retries, if any,
// belong to the transport behind the client, not to callers.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Config controls client construction. MaxTokens and Temperature are
// per-deployment constants, never user-controlled. A nil Temperature means
// "use the default"; an explicit zero is a legal setting and is kept.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

func NewClient(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("llm API key is required for openai provider")
		}
		return NewOpenAIClient(cfg), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no model is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, messages []Message) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if len(messages) == 0 {
		return "I am listening.", nil
	}

	last := strings.TrimSpace(messages[len(messages)-1].Content)
	if last == "" {
		return "I am listening.", nil
	}
	return fmt.Sprintf("I hear you. Tell me more about this: %s", last), nil
}

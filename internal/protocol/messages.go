// Package protocol defines the websocket chat message variants.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatRequest MessageType = "chat_request"
	TypeChatReply   MessageType = "chat_reply"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatRequest carries one burst of user text over the chat channel. It is
// the websocket form of the process_text operation.
type ChatRequest struct {
	Type   MessageType `json:"type"`
	UserID int64       `json:"user_id"`
	Text   string      `json:"text"`
}

type ChatReply struct {
	Type     MessageType `json:"type"`
	UserID   int64       `json:"user_id"`
	Response string      `json:"response"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatRequest:
		// Any int64 is a legal external id, zero included, so only a
		// missing field is rejected.
		var fields struct {
			UserID *int64 `json:"user_id"`
			Text   string `json:"text"`
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		if fields.UserID == nil || fields.Text == "" {
			return nil, errors.New("invalid chat_request")
		}
		return ChatRequest{Type: env.Type, UserID: *fields.UserID, Text: fields.Text}, nil
	default:
		return nil, ErrUnsupportedType
	}
}

package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageChatRequest(t *testing.T) {
	raw := []byte(`{"type":"chat_request","user_id":42,"text":"Hello there"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	req, ok := msg.(ChatRequest)
	if !ok {
		t.Fatalf("message type = %T, want ChatRequest", msg)
	}
	if req.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", req.UserID)
	}
	if req.Text != "Hello there" {
		t.Fatalf("Text = %q, want %q", req.Text, "Hello there")
	}
}

func TestParseClientMessageAllowsZeroUserID(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"chat_request","user_id":0,"text":"Hello"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	req, ok := msg.(ChatRequest)
	if !ok {
		t.Fatalf("message type = %T, want ChatRequest", msg)
	}
	if req.UserID != 0 {
		t.Fatalf("UserID = %d, want 0", req.UserID)
	}
}

func TestParseClientMessageRejectsIncompleteRequest(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing user", `{"type":"chat_request","text":"Hello"}`},
		{"missing text", `{"type":"chat_request","user_id":42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseClientMessage([]byte(tc.raw)); err == nil {
				t.Fatalf("ParseClientMessage() expected error")
			}
		})
	}
}

func TestParseClientMessageUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"mystery"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageBadJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("ParseClientMessage() expected error for malformed JSON")
	}
}

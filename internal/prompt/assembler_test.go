package prompt

import (
	"reflect"
	"testing"

	"solace/internal/llm"
	"solace/internal/store"
)

const testInstruction = "As a caring companion, address {name} warmly."

func TestAssembleAppendsExactlyOneUserMessage(t *testing.T) {
	history := []store.Turn{
		{Role: store.RoleUser, Content: "I had a rough week."},
		{Role: store.RoleAssistant, Content: "What made it rough?"},
	}

	messages := Assemble(testInstruction, "friend", history, "Work mostly")
	if len(messages) != len(history)+1 {
		t.Fatalf("message count = %d, want %d", len(messages), len(history)+1)
	}
	for i, turn := range history {
		if messages[i].Role != llm.Role(turn.Role) || messages[i].Content != turn.Content {
			t.Fatalf("message[%d] = %+v, want verbatim turn %+v", i, messages[i], turn)
		}
	}

	last := messages[len(messages)-1]
	if last.Role != llm.RoleUser {
		t.Fatalf("final role = %q, want %q", last.Role, llm.RoleUser)
	}
	want := "As a caring companion, address friend warmly. 'Work mostly'"
	if last.Content != want {
		t.Fatalf("final content = %q, want %q", last.Content, want)
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	history := []store.Turn{{Role: store.RoleUser, Content: "hello"}}

	first := Assemble(testInstruction, "friend", history, "Alex. I feel tired")
	second := Assemble(testInstruction, "friend", history, "Alex. I feel tired")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs produced different sequences:\n%+v\n%+v", first, second)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		input    string
		wantName string
		wantBody string
	}{
		{"Alex. I feel tired", "Alex", "I feel tired"},
		{"I feel tired", "", "I feel tired"},
		{"Alex. One. Two", "Alex", "One. Two"},
		{"", "", ""},
	}

	for _, tc := range cases {
		name, body := SplitName(tc.input)
		if name != tc.wantName || body != tc.wantBody {
			t.Fatalf("SplitName(%q) = (%q, %q), want (%q, %q)",
				tc.input, name, body, tc.wantName, tc.wantBody)
		}
	}
}

func TestAssembleUsesNamePrefix(t *testing.T) {
	messages := Assemble(testInstruction, "friend", nil, "Alex. I feel tired")
	if len(messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(messages))
	}
	want := "As a caring companion, address Alex warmly. 'I feel tired'"
	if messages[0].Content != want {
		t.Fatalf("content = %q, want %q", messages[0].Content, want)
	}
}

func TestAssembleFallsBackToPlaceholderName(t *testing.T) {
	messages := Assemble(testInstruction, "", nil, "I feel tired")
	want := "As a caring companion, address " + DefaultPlaceholderName + " warmly. 'I feel tired'"
	if messages[0].Content != want {
		t.Fatalf("content = %q, want %q", messages[0].Content, want)
	}
}

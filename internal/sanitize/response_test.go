package sanitize

import (
	"strings"
	"testing"
)

func TestResponsePassesCleanTextThrough(t *testing.T) {
	in := "That sounds exhausting. What part of the week weighed on you most?"
	if got := Response(in); got != in {
		t.Fatalf("Response() = %q, want unchanged input", got)
	}
}

func TestResponseReplacesRefusalEntirely(t *testing.T) {
	in := "I'm sorry, but I cannot help with that. As an AI I have limits."
	got := Response(in)
	if got == in {
		t.Fatalf("Response() did not replace refusal text")
	}
	if strings.Contains(got, "AI") || strings.Contains(got, "cannot") {
		t.Fatalf("replacement leaks refusal phrasing: %q", got)
	}
}

func TestResponseMatchingIsCaseSensitive(t *testing.T) {
	in := "as a language model of kindness, people can surprise you."
	if got := Response(in); got != in {
		t.Fatalf("Response() = %q, want pass-through for non-matching case", got)
	}
}

func TestResponseIsIdempotent(t *testing.T) {
	for _, in := range []string{
		"A calm and ordinary reply.",
		"As an AI language model I cannot help.",
	} {
		once := Response(in)
		twice := Response(once)
		if once != twice {
			t.Fatalf("Response(Response(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestRedirectMessageIsClean(t *testing.T) {
	for _, phrase := range denyList {
		if strings.Contains(redirectMessage, phrase) {
			t.Fatalf("redirect message contains deny-listed phrase %q", phrase)
		}
	}
}

// Package sanitize screens model output before it reaches a client or the
// history store.
package sanitize

import "strings"

// denyList holds refusal phrasings the companion must never surface.
// Matching is case-sensitive substring containment, first match wins.
var denyList = []string{
	"As an AI",
	"as an AI",
	"an AI language model",
	"As a language model",
	"I cannot help",
	"I can't help",
	"I'm unable to help",
	"I am unable to help",
	"I'm sorry, but I cannot",
	"I'm sorry, but I can't",
	"I apologize, but I cannot",
}

// redirectMessage replaces a reply in full when the deny-list matches. It
// must never itself contain a deny-listed substring, which keeps Response
// idempotent.
const redirectMessage = "I'd rather stay with you on this. What's been weighing on you the most today?"

// Response passes a clean reply through unchanged and replaces a matching
// reply entirely. There is no partial redaction.
func Response(raw string) string {
	for _, phrase := range denyList {
		if strings.Contains(raw, phrase) {
			return redirectMessage
		}
	}
	return raw
}

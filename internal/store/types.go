package store

import (
	"context"
	"errors"
	"time"
)

// Role is the closed set of speakers recorded in conversation history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxContentLen bounds stored turn and journal content.
const MaxContentLen = 2000

// DefaultWindow is the number of retained turns per user.
const DefaultWindow = 25

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrMoodAlreadyLogged = errors.New("mood already logged for this date")
)

// User maps an externally supplied stable identifier to an internal key.
type User struct {
	ID         int64 `json:"id"`
	ExternalID int64 `json:"external_id"`
}

// Turn is one message in a user's conversation history. The row id doubles
// as the sequence position: insertion order, not wall-clock time.
type Turn struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MoodEntry records the labels a user logged for one calendar date.
type MoodEntry struct {
	UserID int64     `json:"user_id"`
	Mood   string    `json:"mood"`
	Date   time.Time `json:"date"`
}

// JournalEntry is one free-form journal record.
type JournalEntry struct {
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

// Exchange is one request-scoped conversation transaction: the history read
// and the paired turn append share it, so a failure before Commit leaves the
// store untouched.
type Exchange interface {
	// History returns the user's retained turns, oldest first.
	History(ctx context.Context) ([]Turn, error)
	// Commit appends the user and assistant turns as one unit, evicts the
	// oldest turn once per turn over the window cap, and commits.
	Commit(ctx context.Context, userContent, assistantContent string) error
	// Rollback discards the exchange. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Store persists users, conversation history, and the auxiliary logs.
type Store interface {
	// ResolveUser finds the user owning externalID, creating it on first
	// sight. A racing create resolves to a lookup, never an error.
	ResolveUser(ctx context.Context, externalID int64) (User, error)
	// LookupUser finds an existing user or returns ErrUserNotFound.
	LookupUser(ctx context.Context, externalID int64) (User, error)

	BeginExchange(ctx context.Context, userID int64, window int) (Exchange, error)

	// SaveMood stores all labels atomically as one entry for the date.
	// A second save for the same (user, date) returns ErrMoodAlreadyLogged.
	SaveMood(ctx context.Context, userID int64, date time.Time, labels []string) error
	HasLoggedMood(ctx context.Context, userID int64, date time.Time) (bool, error)

	AddJournalEntry(ctx context.Context, userID int64, content string, date time.Time) error
	// ListJournalEntries returns the user's entries sorted by date, then
	// insertion order.
	ListJournalEntries(ctx context.Context, userID int64) ([]JournalEntry, error)

	Close() error
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

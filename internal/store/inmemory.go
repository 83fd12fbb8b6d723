package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextTurnID int64
	users      map[int64]User // keyed by external id
	turns      map[int64][]Turn
	moods      map[int64]map[string]string // user id -> date -> labels
	journal    map[int64][]JournalEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[int64]User),
		turns:   make(map[int64][]Turn),
		moods:   make(map[int64]map[string]string),
		journal: make(map[int64][]JournalEntry),
	}
}

func (s *InMemoryStore) ResolveUser(_ context.Context, externalID int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[externalID]; ok {
		return u, nil
	}
	s.nextUserID++
	u := User{ID: s.nextUserID, ExternalID: externalID}
	s.users[externalID] = u
	return u, nil
}

func (s *InMemoryStore) LookupUser(_ context.Context, externalID int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[externalID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryStore) BeginExchange(_ context.Context, userID int64, window int) (Exchange, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	return &memExchange{store: s, userID: userID, window: window}, nil
}

func (s *InMemoryStore) SaveMood(_ context.Context, userID int64, date time.Time, labels []string) error {
	key := DateOnly(date).Format(time.DateOnly)
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate, ok := s.moods[userID]
	if !ok {
		byDate = make(map[string]string)
		s.moods[userID] = byDate
	}
	if _, ok := byDate[key]; ok {
		return ErrMoodAlreadyLogged
	}
	byDate[key] = strings.Join(labels, ", ")
	return nil
}

func (s *InMemoryStore) HasLoggedMood(_ context.Context, userID int64, date time.Time) (bool, error) {
	key := DateOnly(date).Format(time.DateOnly)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.moods[userID][key]
	return ok, nil
}

func (s *InMemoryStore) AddJournalEntry(_ context.Context, userID int64, content string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[userID] = append(s.journal[userID], JournalEntry{
		Content: content,
		Date:    DateOnly(date),
	})
	return nil
}

func (s *InMemoryStore) ListJournalEntries(_ context.Context, userID int64) ([]JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]JournalEntry, len(s.journal[userID]))
	copy(entries, s.journal[userID])
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

func (s *InMemoryStore) Close() error { return nil }

// memExchange mirrors the transactional exchange: nothing is written until
// Commit, which appends both turns and evicts under one lock section.
type memExchange struct {
	store  *InMemoryStore
	userID int64
	window int
	done   bool
}

func (e *memExchange) History(ctx context.Context) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	turns := make([]Turn, len(e.store.turns[e.userID]))
	copy(turns, e.store.turns[e.userID])
	return turns, nil
}

func (e *memExchange) Commit(ctx context.Context, userContent, assistantContent string) error {
	// Matches the transactional backend, which fails a commit on a dead
	// context.
	if err := ctx.Err(); err != nil {
		return err
	}
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if e.done {
		return nil
	}
	e.done = true

	for _, pair := range []struct {
		role    Role
		content string
	}{
		{RoleUser, userContent},
		{RoleAssistant, assistantContent},
	} {
		e.store.nextTurnID++
		e.store.turns[e.userID] = append(e.store.turns[e.userID], Turn{
			ID:      e.store.nextTurnID,
			UserID:  e.userID,
			Role:    pair.role,
			Content: pair.content,
		})
	}

	for len(e.store.turns[e.userID]) > e.window {
		e.store.turns[e.userID] = e.store.turns[e.userID][1:]
	}
	return nil
}

func (e *memExchange) Rollback(_ context.Context) error {
	e.done = true
	return nil
}

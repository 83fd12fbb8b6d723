package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore persists users, history, and the auxiliary logs in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			uuid_hash BIGINT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			role TEXT NOT NULL,
			content VARCHAR(2000) NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_user_id ON chat_turns (user_id, id);`,
		`CREATE TABLE IF NOT EXISTS mood_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			mood TEXT NOT NULL,
			entry_date DATE NOT NULL,
			UNIQUE (user_id, entry_date)
		);`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			content VARCHAR(2000) NOT NULL,
			entry_date DATE NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_entries_user_date ON journal_entries (user_id, entry_date);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) ResolveUser(ctx context.Context, externalID int64) (User, error) {
	user, err := s.LookupUser(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (uuid_hash) VALUES ($1) RETURNING id`, externalID)
	if err := row.Scan(&user.ID); err != nil {
		// A concurrent first-contact request may have created the row between
		// the lookup and the insert; resolve the race as a second lookup.
		if isUniqueViolation(err) {
			return s.LookupUser(ctx, externalID)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	user.ExternalID = externalID
	return user, nil
}

func (s *PostgresStore) LookupUser(ctx context.Context, externalID int64) (User, error) {
	var user User
	row := s.pool.QueryRow(ctx,
		`SELECT id, uuid_hash FROM users WHERE uuid_hash=$1`, externalID)
	if err := row.Scan(&user.ID, &user.ExternalID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) BeginExchange(ctx context.Context, userID int64, window int) (Exchange, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin exchange: %w", err)
	}
	return &pgExchange{tx: tx, userID: userID, window: window}, nil
}

func (s *PostgresStore) SaveMood(ctx context.Context, userID int64, date time.Time, labels []string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO mood_entries (user_id, mood, entry_date) VALUES ($1, $2, $3)`,
		userID, strings.Join(labels, ", "), DateOnly(date))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMoodAlreadyLogged
		}
		return fmt.Errorf("save mood: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasLoggedMood(ctx context.Context, userID int64, date time.Time) (bool, error) {
	var logged bool
	row := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mood_entries WHERE user_id=$1 AND entry_date=$2)`,
		userID, DateOnly(date))
	if err := row.Scan(&logged); err != nil {
		return false, fmt.Errorf("check mood: %w", err)
	}
	return logged, nil
}

func (s *PostgresStore) AddJournalEntry(ctx context.Context, userID int64, content string, date time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO journal_entries (user_id, content, entry_date) VALUES ($1, $2, $3)`,
		userID, content, DateOnly(date))
	if err != nil {
		return fmt.Errorf("add journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListJournalEntries(ctx context.Context, userID int64) ([]JournalEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content, entry_date FROM journal_entries WHERE user_id=$1 ORDER BY entry_date, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.Content, &e.Date); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgExchange scopes one conversation request to a single transaction.
type pgExchange struct {
	tx     pgx.Tx
	userID int64
	window int
}

func (e *pgExchange) History(ctx context.Context) ([]Turn, error) {
	rows, err := e.tx.Query(ctx,
		`SELECT id, user_id, role, content FROM chat_turns WHERE user_id=$1 ORDER BY id`,
		e.userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return turns, nil
}

func (e *pgExchange) Commit(ctx context.Context, userContent, assistantContent string) error {
	for _, turn := range []Turn{
		{UserID: e.userID, Role: RoleUser, Content: userContent},
		{UserID: e.userID, Role: RoleAssistant, Content: assistantContent},
	} {
		_, err := e.tx.Exec(ctx,
			`INSERT INTO chat_turns (user_id, role, content) VALUES ($1, $2, $3)`,
			turn.UserID, turn.Role, turn.Content)
		if err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
	}

	if err := e.enforceWindow(ctx); err != nil {
		return err
	}

	if err := e.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit exchange: %w", err)
	}
	return nil
}

// enforceWindow deletes the single oldest turn once per turn over the cap.
// Eviction always removes the smallest id, never the newest.
func (e *pgExchange) enforceWindow(ctx context.Context) error {
	var count int
	row := e.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_turns WHERE user_id=$1`, e.userID)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("count turns: %w", err)
	}

	for ; count > e.window; count-- {
		_, err := e.tx.Exec(ctx,
			`DELETE FROM chat_turns WHERE id = (
				SELECT min(id) FROM chat_turns WHERE user_id=$1
			)`, e.userID)
		if err != nil {
			return fmt.Errorf("evict oldest turn: %w", err)
		}
	}
	return nil
}

func (e *pgExchange) Rollback(ctx context.Context) error {
	err := e.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback exchange: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

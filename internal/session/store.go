// Package session persists chat sessions in a local SQLite database.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/marvinh/rag-assistant/internal/core"
)

// Message is one chat turn inside a session.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a stored conversation.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	messages   TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id);
`

// Store persists sessions in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the database file, creating it and the schema when
// missing.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Create starts a new empty session for a user and returns it.
func (s *Store) Create(ctx context.Context, userID, title string) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, user_id, title, messages, created_at, updated_at)
		 VALUES (?, ?, ?, '[]', ?, ?)`,
		sess.ID, sess.UserID, sess.Title, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// ListByUser returns a user's sessions, newest first, without message
// bodies.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, title, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Get returns one session with its messages.
func (s *Store) Get(ctx context.Context, sessionID string) (Session, error) {
	var sess Session
	var messages string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, title, messages, created_at, updated_at
		 FROM chat_sessions WHERE session_id = ?`,
		sessionID).Scan(&sess.ID, &sess.UserID, &sess.Title, &messages, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, core.ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(messages), &sess.Messages); err != nil {
		return Session{}, fmt.Errorf("failed to decode messages for %s: %w", sessionID, err)
	}
	return sess, nil
}

// SaveMessages replaces the message history of a session and bumps its
// updated timestamp, optionally retitling it.
func (s *Store) SaveMessages(ctx context.Context, sessionID, title string, messages []Message) error {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	var result sql.Result
	if title != "" {
		result, err = s.db.ExecContext(ctx,
			`UPDATE chat_sessions SET messages = ?, title = ?, updated_at = ? WHERE session_id = ?`,
			string(encoded), title, time.Now().UTC(), sessionID)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE chat_sessions SET messages = ?, updated_at = ? WHERE session_id = ?`,
			string(encoded), time.Now().UTC(), sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

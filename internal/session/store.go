package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// ErrTerminal is returned for writes against a completed or errored session.
var ErrTerminal = errors.New("session already finished")

// Store provides SQLite-backed persistence for sessions and their messages.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and creates tables if they
// don't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession creates an active session seeded with the query as its first
// user message. Both rows land in one transaction so no session is ever
// observable without its opening message.
func (s *Store) CreateSession(query string) (*Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, query, status, created_at)
		 VALUES (?, ?, ?, ?)`,
		id, query, StatusActive, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO messages (id, session_id, role, content, timestamp)
		 VALUES (?, ?, 'user', ?, ?)`,
		uuid.New().String(), id, query, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert opening message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &Session{
		ID:        id,
		Query:     query,
		Status:    StatusActive,
		CreatedAt: now,
	}, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, query, status, created_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	var sess Session
	err := row.Scan(&sess.ID, &sess.Query, &sess.Status, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &sess, nil
}

// AppendMessage appends a message to an active session and returns it.
// Appending to a finished session fails with ErrTerminal. The status check
// and the insert share one transaction so an append racing SetStatus can
// never land a message on a just-finished session.
func (s *Store) AppendMessage(sessionID, role, content string) (*Message, error) {
	msg := &Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRow(`SELECT status FROM sessions WHERE id = ?`, sessionID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan status: %w", err)
	}
	if Terminal(status) {
		return nil, fmt.Errorf("append to session %s: %w", sessionID, ErrTerminal)
	}

	_, err = tx.Exec(
		`INSERT INTO messages (id, session_id, role, content, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return msg, nil
}

// GetMessages retrieves all messages for a session in append order.
func (s *Store) GetMessages(sessionID string) ([]Message, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, timestamp
		 FROM messages
		 WHERE session_id = ?
		 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return messages, nil
}

// SetStatus moves a session to a new status. The transition is one way:
// once a session is completed or errored its status never changes again,
// and moving any session back to active is rejected.
func (s *Store) SetStatus(sessionID, status string) error {
	if status == StatusActive {
		return fmt.Errorf("session %s: cannot re-activate", sessionID)
	}
	if !Terminal(status) {
		return fmt.Errorf("session %s: unknown status %q", sessionID, status)
	}

	sess, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	if Terminal(sess.Status) {
		return fmt.Errorf("set status of session %s: %w", sessionID, ErrTerminal)
	}

	_, err = s.db.Exec(
		`UPDATE sessions SET status = ? WHERE id = ?`,
		status, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	return nil
}

// ListSessions returns summaries of all sessions, newest first.
func (s *Store) ListSessions() ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.query, s.status, s.created_at, COUNT(m.seq)
		 FROM sessions s
		 LEFT JOIN messages m ON s.id = m.session_id
		 GROUP BY s.id
		 ORDER BY s.created_at DESC, s.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Query, &sum.Status, &sum.CreatedAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}

// DeleteSession removes a session and its messages. Deleting an id that does
// not exist is a no-op.
func (s *Store) DeleteSession(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Package session provides SQLite-backed persistence for query sessions.
package session

import "time"

// Session statuses. A session starts active and ends in exactly one of the
// terminal statuses; terminal sessions are never modified again.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Session is one query conversation with the tool server.
type Session struct {
	ID        string
	Query     string
	Status    string // active, completed, error
	CreatedAt time.Time
}

// Message is one entry in a session's conversation history.
type Message struct {
	ID        string
	SessionID string
	Role      string // user, assistant, system
	Content   string
	Timestamp time.Time
}

// Summary is the listing view of a session.
type Summary struct {
	ID           string
	Query        string
	Status       string
	MessageCount int
	CreatedAt    time.Time
}

// Terminal reports whether status is one of the final statuses.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

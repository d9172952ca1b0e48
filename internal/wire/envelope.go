// Package wire defines the JSON envelope exchanged over the gateway socket.
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope types.
const (
	TypeQuery    = "query"
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
	TypePing     = "ping"
	TypePong     = "pong"
)

// Envelope is a single message on the gateway socket. Messages are
// newline-delimited JSON objects. The ID correlates every progress, result
// and error event with the query that produced it; the gateway echoes the
// client-supplied ID, or assigns one when the client omits it.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Query     string          `json:"query,omitempty"`      // present for "query"
	SessionID string          `json:"session_id,omitempty"` // optional on "query" to continue a session
	Data      json.RawMessage `json:"data,omitempty"`
}

// Progress is the data payload of a "progress" envelope.
type Progress struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Progress int    `json:"progress"` // 0-100
}

// Result is the data payload of a "result" envelope.
type Result struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// Message is one transcript entry inside a Result payload.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Error is the data payload of an "error" envelope.
type Error struct {
	Error string `json:"error"`
}

// Exit codes shared by the CLI and daemon.
const (
	ExitOK       = 0
	ExitToolErr  = 1
	ExitUsageErr = 2
	ExitInternal = 3
)

// NewProgress builds a progress envelope for the given query ID.
func NewProgress(id string, p Progress) *Envelope {
	data, _ := json.Marshal(p)
	return &Envelope{Type: TypeProgress, ID: id, Data: data}
}

// NewResult builds a result envelope for the given query ID.
func NewResult(id string, r Result) *Envelope {
	data, _ := json.Marshal(r)
	return &Envelope{Type: TypeResult, ID: id, Data: data}
}

// NewError builds an error envelope for the given query ID.
func NewError(id, msg string) *Envelope {
	data, _ := json.Marshal(Error{Error: msg})
	return &Envelope{Type: TypeError, ID: id, Data: data}
}

// DecodeProgress unmarshals a progress payload.
func DecodeProgress(env *Envelope) (Progress, error) {
	var p Progress
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return Progress{}, fmt.Errorf("decoding progress payload: %w", err)
	}
	return p, nil
}

// DecodeResult unmarshals a result payload.
func DecodeResult(env *Envelope) (Result, error) {
	var r Result
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return Result{}, fmt.Errorf("decoding result payload: %w", err)
	}
	return r, nil
}

// DecodeError unmarshals an error payload. A payload that cannot be parsed
// still yields a non-empty message so callers always see a diagnostic.
func DecodeError(env *Envelope) string {
	var e Error
	if err := json.Unmarshal(env.Data, &e); err != nil || e.Error == "" {
		return "unknown error"
	}
	return e.Error
}

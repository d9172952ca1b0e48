package wire

import (
	"encoding/json"
	"testing"
)

func TestDecodeErrorFallsBackOnBadPayload(t *testing.T) {
	tests := []struct {
		name string
		env  *Envelope
		want string
	}{
		{"well formed", NewError("q1", "boom"), "boom"},
		{"empty message", &Envelope{Type: TypeError, Data: json.RawMessage(`{"error":""}`)}, "unknown error"},
		{"garbage payload", &Envelope{Type: TypeError, Data: json.RawMessage(`not json`)}, "unknown error"},
		{"missing payload", &Envelope{Type: TypeError}, "unknown error"},
	}
	for _, tt := range tests {
		if got := DecodeError(tt.env); got != tt.want {
			t.Errorf("%s: DecodeError() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestProgressEnvelopeCarriesID(t *testing.T) {
	env := NewProgress("q7", Progress{Status: "executing_tool", Message: "working", Progress: 60})
	if env.ID != "q7" || env.Type != TypeProgress {
		t.Fatalf("envelope = %s/%s", env.Type, env.ID)
	}

	p, err := DecodeProgress(env)
	if err != nil {
		t.Fatalf("DecodeProgress() error = %v", err)
	}
	if p.Progress != 60 || p.Status != "executing_tool" {
		t.Errorf("payload = %+v", p)
	}
}

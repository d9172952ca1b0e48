package eventlog

import (
	"path/filepath"
	"testing"
)

func TestAppendAndReadAll(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "state", "events.jsonl"))
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	events := []LogEvent{
		{Event: EventQueryStarted, QueryID: "q1", SessionID: "s1"},
		{Event: EventToolCalled, QueryID: "q1", Tool: "create_rectangle"},
		{Event: EventQueryFinished, QueryID: "q1", Status: "completed"},
	}
	for _, ev := range events {
		if err := logger.Append(ev); err != nil {
			t.Fatalf("Append(%s) error = %v", ev.Event, err)
		}
	}

	got, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(events))
	}
	for i, ev := range events {
		if got[i].Event != ev.Event || got[i].QueryID != ev.QueryID {
			t.Errorf("got[%d] = %+v, want event %s", i, got[i], ev.Event)
		}
		if got[i].Time.IsZero() {
			t.Errorf("got[%d].Time is zero", i)
		}
	}
}

func TestReadAllMissingFile(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	got, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}

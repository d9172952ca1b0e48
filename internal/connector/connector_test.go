package connector

import (
	"errors"
	"testing"
)

func TestClientWhenDisconnected(t *testing.T) {
	c := New()

	if c.IsConnected() {
		t.Error("IsConnected() = true for fresh connector")
	}
	if _, err := c.Client(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Client() error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := New()

	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect() on fresh connector error = %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
}

func TestConnectErrorUnwraps(t *testing.T) {
	inner := errors.New("spawn failed")
	err := &ConnectError{Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ConnectError does not unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("ConnectError has empty message")
	}
}

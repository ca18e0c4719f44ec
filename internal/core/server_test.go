package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"dttools/internal/config"
)

func TestNewServer_NilConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewServer(nil, logger); err == nil {
		t.Error("NewServer should fail with nil config")
	}
}

func TestNewServer_NilLogger(t *testing.T) {
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("NewServer should fail with nil logger")
	}
}

func TestNewServer_InitializesDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := NewServer(&config.Config{}, logger)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}

	if srv.Validator == nil {
		t.Error("NewServer should initialize the validator")
	}
	if srv.Router() == nil {
		t.Error("NewServer should initialize the router")
	}
	if srv.Handler() == nil {
		t.Error("Handler should return the router")
	}
	if srv.clock() == nil {
		t.Error("clock should never be nil")
	}
}

func TestServer_ClockFallback(t *testing.T) {
	srv := newTestServerForMiddleware(t)
	srv.Clock = nil

	if srv.clock() == nil {
		t.Error("clock should fall back to the real clock")
	}
	if srv.clock().Now().IsZero() {
		t.Error("fallback clock should report the current time")
	}
}

func TestServer_Shutdown(t *testing.T) {
	srv := newTestServerForMiddleware(t)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

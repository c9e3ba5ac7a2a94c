package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFCtxAddsRegisteredContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	log.InfoFCtx(ctx, "dispatching %s", "GET")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "dispatching GET" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core)).With("component", "interceptor")
	log.WarnF("pending=%d", 3)

	if got := logs.FilterField(zap.String("component", "interceptor")).Len(); got != 1 {
		t.Fatalf("expected field on entry, got %d matches", got)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	l, err := NewLogger(LoggerOptions{Level: "not-a-level", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if err := l.SetLogLevel("debug"); err != nil {
		t.Errorf("SetLogLevel() error = %v", err)
	}
	if err := l.SetLogLevel("bogus"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.ErrorF("ignored %d", 1)
	l.With("k", "v").Info("ignored")
}

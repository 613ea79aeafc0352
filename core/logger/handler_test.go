package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   newSyncWriter(buf),
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "app")
	LogEvent(ctx, log, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	if len(tokens) < 6 {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   newSyncWriter(buf),
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithUpdateMeta(Background(), 1, 100, 200)

	log := slog.New(handler).With("component", "dispatch")
	LogEvent(ctx, log, slog.LevelWarn, "action.failed",
		slog.String("err", "boom"),
		slog.Duration("duration", 0),
	)

	line := strings.TrimSpace(buf.String())
	var parsed map[string]any
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		t.Fatalf("invalid JSON line %q: %v", line, err)
	}
	if parsed["component"] != "dispatch" {
		t.Fatalf("component = %v", parsed["component"])
	}
	if parsed["event"] != "action.failed" {
		t.Fatalf("event = %v", parsed["event"])
	}
	if parsed["level"] != "WARN" {
		t.Fatalf("level = %v", parsed["level"])
	}
	if parsed["user_id"] != float64(100) {
		t.Fatalf("user_id = %v", parsed["user_id"])
	}
	// ordered prefix: ts first, level second
	if !strings.HasPrefix(line, `{"ts":`) {
		t.Fatalf("expected ts-first ordering, got %q", line)
	}
}

func TestDebugBelowLevelSuppressed(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: newSyncWriter(buf),
		format: formatKV,
	})
	log := slog.New(handler)
	LogEvent(Background(), log, slog.LevelDebug, "noisy.event")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestSanitizeLimit(t *testing.T) {
	in := "ab\x00cd\x1bef"
	if got := Sanitize(in); got != "abcdef" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("abcdef", 3); got != "abc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("abc", 0); got != "" {
		t.Fatalf("SanitizeLimit zero max = %q", got)
	}
}

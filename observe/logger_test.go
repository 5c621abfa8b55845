package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_WritesJSONWithBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("component", "gate"))

	logger.Info(context.Background(), "access denied", F("permission", "create:actors"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "access denied" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["component"] != "gate" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["permission"] != "create:actors" {
		t.Errorf("permission = %v", entry["permission"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	ctx := context.Background()
	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).With(F("dsn", "postgres://user:pw@db/app"))

	logger.Info(context.Background(), "request",
		F("token", "eyJhbGciOi..."),
		F("Authorization", "Bearer abc"),
		F("route", "/actors"),
	)

	out := buf.String()
	for _, secret := range []string{"eyJhbGciOi", "Bearer abc", "user:pw"} {
		if strings.Contains(out, secret) {
			t.Errorf("log output leaked %q: %s", secret, out)
		}
	}
	entry := decodeLines(t, &buf)[0]
	if entry["route"] != "/actors" {
		t.Errorf("route = %v, want /actors", entry["route"])
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entry["token"])
	}
}

func TestLogger_ErrorValuesAreStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "load failed", F("error", errors.New("fetch JWKS: timeout")))

	entry := decodeLines(t, &buf)[0]
	if entry["error"] != "fetch JWKS: timeout" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.With(F("child", true))

	parent.Info(context.Background(), "parent")

	entry := decodeLines(t, &buf)[0]
	if _, ok := entry["child"]; ok {
		t.Error("parent logger should not carry child fields")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"WARN":  LevelWarn,
		"bogus": LevelInfo,
		"":      LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_SiblingsDoNotShareFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf).With(F("service", "castgate"))
	a := base.With(F("child", "a"))
	b := base.With(F("child", "b"))

	a.Info(context.Background(), "from a")
	b.Info(context.Background(), "from b")

	entries := decodeLines(t, &buf)
	if entries[0]["child"] != "a" || entries[1]["child"] != "b" {
		t.Errorf("children = %v, %v", entries[0]["child"], entries[1]["child"])
	}
	if entries[1]["service"] != "castgate" {
		t.Errorf("service = %v", entries[1]["service"])
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored")
	if l.With(F("a", 1)) == nil {
		t.Error("With() returned nil")
	}
}

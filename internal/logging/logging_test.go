package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clipcast/backend/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestHandlerWritesAttributesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(zerolog.New(&buf)))

	logger.With("request_id", "abc").WithGroup("http").Info("served", "status", 200, slog.Group("peer", "ip", "10.0.0.1"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["message"] != "served" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
	if entry["request_id"] != "abc" {
		t.Fatalf("attributes bound before the group should stay top-level, got %v", entry)
	}
	if entry["http.status"] != float64(200) {
		t.Fatalf("expected http.status 200, got %v", entry["http.status"])
	}
	if entry["http.peer.ip"] != "10.0.0.1" {
		t.Fatalf("expected nested group key, got %v", entry)
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(zerolog.New(&buf).Level(zerolog.WarnLevel)))

	logger.Info("dropped")
	logger.Warn("kept", "error", errors.New("boom"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["message"] != "kept" {
		t.Fatalf("expected only warn entry, got %v", lines)
	}
	if lines[0]["error"] != "boom" {
		t.Fatalf("expected error string, got %v", lines[0]["error"])
	}
}

func TestNewUsesConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled")
	}

	logger = New(config.LogConfig{Level: "bogus"}, &buf)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
	logger := slog.New(NewHandler(zerolog.Nop()))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger")
	}
}

func TestStartSpanPropagatesIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	ctx := WithLogger(context.Background(), logger)

	ctx, parent := StartSpan(ctx, "parent")
	traceID := TraceIDFromContext(ctx)
	parentID := SpanIDFromContext(ctx)
	if traceID == "" || parentID == "" {
		t.Fatal("expected trace and span ids on context")
	}

	childCtx, child := StartSpan(ctx, "child", "collection", "videos")
	if TraceIDFromContext(childCtx) != traceID {
		t.Fatal("child span should share the trace id")
	}
	child.EndErr(errors.New("failed"))
	parent.End()

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected two span lines, got %d", len(lines))
	}
	if lines[0]["parent_span_id"] != parentID || lines[0]["collection"] != "videos" {
		t.Fatalf("unexpected child span entry %v", lines[0])
	}
	if lines[0]["level"] != "warn" || lines[1]["level"] != "debug" {
		t.Fatalf("unexpected levels: %v / %v", lines[0]["level"], lines[1]["level"])
	}
}

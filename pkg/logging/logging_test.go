package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsServiceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "carts", "v1.2.3", "info")

	logger.Debug("hidden")
	logger.Info("cart updated", "cart", "c1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if record["service"] != "carts" || record["version"] != "v1.2.3" {
		t.Errorf("missing service context: %v", record)
	}
	if record["cart"] != "c1" {
		t.Errorf("cart = %v", record["cart"])
	}
	if _, ok := record["source"]; ok {
		t.Error("info logger should not record source")
	}
}

func TestDebugLoggerRecordsSource(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "orders", "dev", "debug").Debug("placing order")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := record["source"]; !ok {
		t.Error("debug logger should record source")
	}
}

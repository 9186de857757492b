package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentScheduler, Output: &buf})

	fields := NewFields().WithJob("recurring-transactions", "run-1").
		WithError(errors.New("boom"), ErrorTypeDatabase).
		WithDuration(1500 * time.Millisecond)
	logger.WithFields(fields).WithComponent(ComponentRecurring).InfoContext(context.Background(), "Batch finished")

	out := buf.String()
	for _, want := range []string{"component=recurring", "job=recurring-transactions", "run_id=run-1",
		"error=boom", "error_type=database_error", "duration_ms=1500"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestLogFields_WithErrorNil(t *testing.T) {
	f := NewFields().WithError(nil, ErrorTypeInternal)
	if len(f) != 0 {
		t.Errorf("nil error should add nothing, got %v", f)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Error("fallback logger should use the app component")
	}
	logger := New(Config{Component: ComponentReports, Output: &bytes.Buffer{}})
	ctx := IntoContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("FromContext should return the stored logger")
	}
}

package logging

import (
	"bytes"
	"strings"
	"testing"

	"log/slog"

	"github.com/devpulse/devpulse/internal/config"
)

func TestNewConfiguresSupportedFormats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			logger, err := New(config.LoggingConfig{Level: slog.LevelInfo, Format: format})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestNewWithUnsupportedFormat(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: slog.LevelInfo, Format: "pretty"})
	if err == nil {
		t.Fatal("expected error for unsupported format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported log format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSplitHandlerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer

	handler, err := newSplitHandler(&out, &errOut, config.LoggingConfig{Level: slog.LevelDebug, Format: "text"})
	if err != nil {
		t.Fatalf("newSplitHandler returned error: %v", err)
	}
	logger := slog.New(handler)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	stdout := out.String()
	stderr := errOut.String()

	for _, msg := range []string{"debug line", "info line"} {
		if !strings.Contains(stdout, msg) {
			t.Errorf("stdout missing %q", msg)
		}
		if strings.Contains(stderr, msg) {
			t.Errorf("stderr must not contain %q", msg)
		}
	}
	for _, msg := range []string{"warn line", "error line"} {
		if !strings.Contains(stderr, msg) {
			t.Errorf("stderr missing %q", msg)
		}
		if strings.Contains(stdout, msg) {
			t.Errorf("stdout must not contain %q", msg)
		}
	}
}

func TestSplitHandlerWithAttrs(t *testing.T) {
	var out, errOut bytes.Buffer

	handler, err := newSplitHandler(&out, &errOut, config.LoggingConfig{Level: slog.LevelInfo, Format: "json"})
	if err != nil {
		t.Fatalf("newSplitHandler returned error: %v", err)
	}

	logger := slog.New(handler).With("run_id", "abc-123")
	logger.Info("started")
	logger.Warn("careful")

	if !strings.Contains(out.String(), "abc-123") {
		t.Error("stdout record missing attached attribute")
	}
	if !strings.Contains(errOut.String(), "abc-123") {
		t.Error("stderr record missing attached attribute")
	}
}

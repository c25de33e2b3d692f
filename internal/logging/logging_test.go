package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelRouterSplitsOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(NewHandler(Config{}, &stdout, &stderr))

	logger.Info("listing approved")
	logger.Warn("slow query")
	logger.Error("commit failed")
	logger.Debug("hidden")

	if !strings.Contains(stdout.String(), "listing approved") || !strings.Contains(stdout.String(), "slow query") {
		t.Errorf("expected info and warn on stdout, got %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "commit failed") {
		t.Error("error should not go to stdout")
	}
	if !strings.Contains(stderr.String(), "commit failed") {
		t.Errorf("expected error on stderr, got %q", stderr.String())
	}
	if strings.Contains(stdout.String()+stderr.String(), "hidden") {
		t.Error("debug should be filtered at info level")
	}
}

func TestJSONFormatAndLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(NewHandler(Config{Level: "debug", Format: "json"}, &stdout, &stderr))

	logger.Debug("visible", "listing", 7)

	if !strings.Contains(stdout.String(), `"msg":"visible"`) || !strings.Contains(stdout.String(), `"listing":7`) {
		t.Errorf("expected JSON debug line, got %q", stdout.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var stdout bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewHandler(Config{}, &stdout, &stdout)))
	defer slog.SetDefault(prev)

	ctx := WithUser(WithRequestID(context.Background(), "req-1"), "olga")
	FromContext(ctx).Info("offer accepted")

	out := stdout.String()
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "user=olga") {
		t.Errorf("expected request_id and user attrs, got %q", out)
	}
	if RequestID(ctx) != "req-1" {
		t.Errorf("RequestID = %q", RequestID(ctx))
	}
}

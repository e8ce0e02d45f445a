package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNewParsesLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "error", level: "error", want: zerolog.ErrorLevel},
		{name: "empty falls back", level: "", want: zerolog.InfoLevel},
		{name: "unknown falls back", level: "loud", want: zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger := New(Config{Level: tc.level, Output: &bytes.Buffer{}})
			if got := logger.GetLevel(); got != tc.want {
				t.Fatalf("expected level %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFromContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	defer func() { log.Logger = previous }()

	SetGlobal(New(Config{Level: "info", Format: "json", Output: &buf}))

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), 42)
	FromContext(ctx).Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", entry["request_id"])
	}
	if entry["user_id"] != float64(42) {
		t.Fatalf("expected user_id 42, got %v", entry["user_id"])
	}
	if entry["message"] != "hello" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"unknown": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q)=%v want=%v", input, got, want)
		}
	}
}

func TestNewJSONWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	log.Info().Int("generation", 3).Float64("best_fitness", 412.5).Msg("generation complete")
	log.Debug().Msg("suppressed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["message"] != "generation complete" {
		t.Fatalf("unexpected message: %+v", entry)
	}
	if entry["generation"] != float64(3) {
		t.Fatalf("unexpected generation field: %+v", entry)
	}
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "console")
	log.Debug().Str("vehicle", "vehicle-0").Msg("episode complete")
	out := buf.String()
	if !strings.Contains(out, "episode complete") || !strings.Contains(out, "vehicle=vehicle-0") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

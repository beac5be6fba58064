package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		name      string
		cfg       Config
		wantLevel zerolog.Level
	}{
		{"debug", Config{Level: "debug", Format: "json"}, zerolog.DebugLevel},
		{"error", Config{Level: "error", Format: "json"}, zerolog.ErrorLevel},
		{"invalid falls back to warn", Config{Level: "loud", Format: "json"}, zerolog.WarnLevel},
		{"empty falls back to warn", Config{Format: "json"}, zerolog.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Out = &buf
			Init(tt.cfg)
			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("global level = %v, want %v", zerolog.GlobalLevel(), tt.wantLevel)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Out: &buf})
	logger := WithComponent("engine")
	logger.Info().Str("document", "feed.xml").Msg("validation finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	for key, want := range map[string]string{"component": "engine", "document": "feed.xml", "message": "validation finished", "level": "info"} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
	if _, ok := entry["caller"]; !ok {
		t.Error("caller missing")
	}
}

func TestInitConsole(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	logger := Init(Config{Level: "warn", Format: "console", Out: &buf})
	logger.Info().Msg("hidden")
	logger.Warn().Msg("schema bind failed")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level:\n%s", out)
	}
	if !strings.Contains(out, "schema bind failed") || strings.HasPrefix(out, "{") {
		t.Errorf("unexpected console output:\n%s", out)
	}
}

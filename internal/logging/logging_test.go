package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", false)

	log.Info().Str("style", "short-bob").Msg("generation finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["style"] != "short-bob" {
		t.Errorf("style field = %v", entry["style"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "error", false)

	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at error level, got %q", buf.String())
	}

	log.Error().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("error entry missing")
	}
}

func TestNew_DefaultLevelIsWarn(t *testing.T) {
	for _, level := range []string{"", "bogus"} {
		var buf bytes.Buffer
		log := New(&buf, level, false)
		log.Info().Msg("hidden")
		log.Warn().Msg("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
			t.Errorf("level %q: unexpected output %q", level, out)
		}
	}
}

func TestNew_DevelopmentConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", true)
	log.Debug().Msg("console line")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("development output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "console line") {
		t.Errorf("missing message: %q", out)
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error().Msg("discarded")
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "DEBUG", "disabled"} {
		if !ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = false, want true", lvl)
		}
	}
	for _, lvl := range []string{"", "verbose", "loud"} {
		if ValidLevel(lvl) {
			t.Errorf("ValidLevel(%q) = true, want false", lvl)
		}
	}
}

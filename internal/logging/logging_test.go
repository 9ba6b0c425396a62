package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: "trace", Format: "json", Output: buf})
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stderr {
		t.Errorf("Output = %v, want os.Stderr", config.Output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := New(Config{Level: "warn", Format: "json", Output: buf})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("info event written at warn level: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("warn event missing: %s", buf.String())
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		field    Field
		expected string
	}{
		{"stage", Stage("template_loaded"), `"stage":"template_loaded"`},
		{"role", Role("source"), `"document":"source"`},
		{"page index", PageIndex(16), `"page_index":16`},
		{"page count", PageCount(20), `"page_count":20`},
		{"size", Size("output_bytes", 1024), `"output_bytes":1024`},
		{"duration", Duration(100 * time.Millisecond), `"duration_ms":100`},
		{"request id", RequestID("req-1"), `"request_id":"req-1"`},
		{"filename", Filename("cover_a.pdf"), `"filename":"cover_a.pdf"`},
		{"states", States([]string{"idle", "failed"}), `"states":"idle>failed"`},
		{"error", ErrorField(errors.New("boom")), `boom`},
		{"str", Str("key", "value"), `"key":"value"`},
		{"int", Int("status", 422), `"status":422`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			NewEvent(logger.Info()).Add(tt.field).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.expected)) {
				t.Errorf("expected %s in output: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestErrorFieldNil(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Info()).Add(ErrorField(nil)).Msg("no error")

	if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
		t.Errorf("nil error produced a field: %s", buf.String())
	}
}

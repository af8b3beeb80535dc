package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func jsonLogger(buf *bytes.Buffer) *Logger {
	return NewWithWriter(&Config{Level: "debug", Format: FormatJSON}, "speechbridge", buf)
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf)
	l.Info("listening", Fields(FieldLocale, "en_US", FieldGeneration, 2))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "listening" {
		t.Errorf("expected message 'listening', got %v", entry["message"])
	}
	if entry[FieldLocale] != "en_US" {
		t.Errorf("expected locale en_US, got %v", entry[FieldLocale])
	}
	if entry[FieldService] != "speechbridge" {
		t.Errorf("expected service tag, got %v", entry[FieldService])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf).WithComponent("session")
	l.Debug("state change")
	if !strings.Contains(buf.String(), `"component":"session"`) {
		t.Errorf("expected component field, got %q", buf.String())
	}
	if l.service != "speechbridge" {
		t.Errorf("service should be preserved, got %q", l.service)
	}
}

func TestWithContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-1")
	jsonLogger(&buf).WithContext(ctx).Info("call")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Errorf("expected request_id field, got %q", buf.String())
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf).WithError(errors.New("boom")).Error("failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %q", buf.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: FormatJSON, Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: FormatConsole, NoColor: true}, "speechbridge", &buf)
	l.Info("ready")
	out := buf.String()
	if !strings.Contains(out, "[SPE][INF]") {
		t.Errorf("expected service/level tag, got %q", out)
	}
	if !strings.Contains(out, "ready") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestInitAndGlobal(t *testing.T) {
	Init(&Config{Level: "info", Format: FormatJSON, Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger after Init")
	}

	custom := NewNop()
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected SetGlobalLogger to replace the global logger")
	}
}

func TestGetCachesUntilGlobalChanges(t *testing.T) {
	SetGlobalLogger(NewNop())
	first := Get("bridge")
	if Get("bridge") != first {
		t.Error("expected Get to return the cached component logger")
	}
	SetGlobalLogger(NewNop())
	if Get("bridge") == first {
		t.Error("expected a new component logger after SetGlobalLogger")
	}
}

func TestComponentLevelOverrides(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: "info", Format: FormatJSON, Components: map[string]string{"session": "debug", "ws": "error"}}
	SetGlobalLogger(NewWithWriter(cfg, "speechbridge", &buf))
	setComponentLevels(cfg.componentLevels())
	defer setComponentLevels(nil)

	Get("session").Debug("handle created")
	Get("ws").Warn("slow client")
	Get("bridge").Debug("method call handled")
	Get("bridge").Info("method call failed")

	out := buf.String()
	if !strings.Contains(out, "handle created") {
		t.Errorf("expected session debug line, got %q", out)
	}
	if strings.Contains(out, "slow client") {
		t.Errorf("ws warn should be filtered by its override, got %q", out)
	}
	if strings.Contains(out, "method call handled") {
		t.Errorf("bridge debug should follow the base level, got %q", out)
	}
	if !strings.Contains(out, "method call failed") {
		t.Errorf("expected bridge info line, got %q", out)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != FormatConsole {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid json", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
		{"component override", Config{Level: "info", Format: "json", Components: map[string]string{"session": "debug"}}, false},
		{"invalid component level", Config{Level: "info", Format: "json", Components: map[string]string{"ws": "loud"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{"pairs", []interface{}{"op", "listen", "gen", 4}, map[string]interface{}{"op": "listen", "gen": 4}},
		{"odd number of args", []interface{}{"op", "stop", "trailing"}, map[string]interface{}{"op": "stop"}},
		{"non-string key skipped", []interface{}{123, "value", "key", "val"}, map[string]interface{}{"key": "val"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Fatalf("expected %d fields, got %d", len(tc.expected), len(result))
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	fields := ErrorFields("start", errors.New("busy"))
	if fields["operation"] != "start" {
		t.Errorf("expected operation 'start', got %v", fields["operation"])
	}
	if fields[FieldError] != "busy" {
		t.Errorf("expected error 'busy', got %v", fields[FieldError])
	}
}

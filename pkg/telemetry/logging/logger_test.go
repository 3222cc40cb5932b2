package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mamba-hq/mamba/pkg/config"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "loud"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewRejectsBadFormat(t *testing.T) {
	_, err := New(&config.LoggingConfig{Format: "xml"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONOutputAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("should be filtered")
	logger.Warn("kept", "gateway", "acct/gw-0")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1:\n%s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if entry["msg"] != "kept" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["gateway"] != "acct/gw-0" {
		t.Errorf("gateway attr = %v", entry["gateway"])
	}
}

func TestSecretKeysRedactedWholesale(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("credential attrs",
		"token", "super-secret-token",
		"api_key", "sk-abcdef1234567890",
		"path", "/v1/chat/completions",
	)

	out := buf.String()
	if strings.Contains(out, "super-secret-token") {
		t.Errorf("token leaked: %s", out)
	}
	if strings.Contains(out, "sk-abcdef1234567890") {
		t.Errorf("api key leaked: %s", out)
	}
	if !strings.Contains(out, "/v1/chat/completions") {
		t.Errorf("benign attr lost: %s", out)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{
			name:    "bearer token",
			in:      "header was Bearer abc123.def",
			want:    "header was [REDACTED]",
			changed: true,
		},
		{
			name:    "openai style key",
			in:      "using sk-proj1234abcd5678",
			want:    "using [REDACTED]",
			changed: true,
		},
		{
			name: "plain text untouched",
			in:   "upstream returned 502",
			want: "upstream returned 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Redact(tt.in)
			if got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
		})
	}
}

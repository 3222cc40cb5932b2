package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("gateways", "at least one gateway is required")
	if !strings.Contains(err.Error(), "gateways") {
		t.Errorf("error missing field: %q", err.Error())
	}

	err = NewConfigError("", "file not found")
	if got := err.Error(); got != "config error: file not found" {
		t.Errorf("fieldless error = %q", got)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewCommandError("check", inner)

	if !errors.Is(err, inner) {
		t.Error("Unwrap did not expose inner error")
	}
	if !strings.Contains(err.Error(), "check") {
		t.Errorf("error missing command name: %q", err.Error())
	}
}

func TestJSONFormatter(t *testing.T) {
	f := NewFormatter(FormatJSON)

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, map[string]int{"passed": 2}); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if !strings.Contains(buf.String(), `"passed": 2`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTextFormatterDefault(t *testing.T) {
	f := NewFormatter("unknown")
	if _, ok := f.(*TextFormatter); !ok {
		t.Errorf("expected TextFormatter for unknown format, got %T", f)
	}
}

func TestStatusWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusWriter(&buf)

	s.Pass("openai", "200 OK")
	s.Fail("anthropic", "connection refused")
	s.Pass("groq", "200 OK")

	if ok := s.Summary(); ok {
		t.Error("Summary() = true with one failure")
	}
	if s.Passed() != 2 || s.Failed() != 1 {
		t.Errorf("counts = %d/%d, want 2/1", s.Passed(), s.Failed())
	}

	out := buf.String()
	if !strings.Contains(out, "✓ openai") {
		t.Errorf("missing pass line: %q", out)
	}
	if !strings.Contains(out, "✗ anthropic") {
		t.Errorf("missing fail line: %q", out)
	}
	if !strings.Contains(out, "2 passed, 1 failed") {
		t.Errorf("missing summary: %q", out)
	}
}

func TestStatusWriterAllPassed(t *testing.T) {
	s := NewStatusWriter(&bytes.Buffer{})
	s.Pass("openai", "ok")
	if !s.Summary() {
		t.Error("Summary() = false with no failures")
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"long key", "sk-abcdefghijklmnopqrstuvwxyz", "sk-a...wxyz"},
		{"short key", "sk-short", "********"},
		{"empty", "", "********"},
		{"boundary length", "123456789012", "********"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskCredential(tt.secret); got != tt.want {
				t.Errorf("MaskCredential(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler()
	select {
	case <-ctx.Done():
		t.Fatal("context cancelled without a signal")
	default:
	}
}

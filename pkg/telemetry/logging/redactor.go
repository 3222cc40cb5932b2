package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// credentialPatterns match secret-shaped substrings inside attribute values.
// Gateway tokens and provider API keys routinely pass through this process;
// a careless "%+v" of a header map must not land in the log.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{8,}`),
}

// secretKeys are attribute keys whose values are always replaced wholesale.
var secretKeys = map[string]struct{}{
	"token":         {},
	"api_key":       {},
	"authorization": {},
}

const redactedValue = "[REDACTED]"

// redactAttr is the slog ReplaceAttr hook that scrubs credentials.
func redactAttr(groups []string, a slog.Attr) slog.Attr {
	if _, secret := secretKeys[strings.ToLower(a.Key)]; secret {
		return slog.String(a.Key, redactedValue)
	}

	if a.Value.Kind() == slog.KindString {
		if scrubbed, changed := Redact(a.Value.String()); changed {
			return slog.String(a.Key, scrubbed)
		}
	}
	return a
}

// Redact replaces credential-shaped substrings in s and reports whether
// anything was replaced.
func Redact(s string) (string, bool) {
	changed := false
	for _, pattern := range credentialPatterns {
		if pattern.MatchString(s) {
			s = pattern.ReplaceAllString(s, redactedValue)
			changed = true
		}
	}
	return s, changed
}

package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// StatusWriter prints aligned pass/fail status lines for a sequence of
// checks, then a one-line summary. It is safe for concurrent use.
type StatusWriter struct {
	mu     sync.Mutex
	writer io.Writer
	passed int
	failed int
}

// NewStatusWriter creates a status writer that writes to w.
// If w is nil, it defaults to os.Stdout.
func NewStatusWriter(w io.Writer) *StatusWriter {
	if w == nil {
		w = os.Stdout
	}
	return &StatusWriter{writer: w}
}

// Pass records a successful check with a short detail message.
func (s *StatusWriter) Pass(name, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passed++
	fmt.Fprintf(s.writer, "  ✓ %-16s %s\n", name, detail)
}

// Fail records a failed check with a short detail message.
func (s *StatusWriter) Fail(name, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed++
	fmt.Fprintf(s.writer, "  ✗ %-16s %s\n", name, detail)
}

// Summary prints the pass/fail totals and returns true when nothing failed.
func (s *StatusWriter) Summary() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.writer, "\n%d passed, %d failed\n", s.passed, s.failed)
	return s.failed == 0
}

// Passed returns the number of successful checks so far.
func (s *StatusWriter) Passed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passed
}

// Failed returns the number of failed checks so far.
func (s *StatusWriter) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

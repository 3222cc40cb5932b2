package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeReporter struct {
	calls []bool
}

func (f *fakeReporter) SetUpstreamReachable(reachable bool) {
	f.calls = append(f.calls, reachable)
}

func TestCheckReportsReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("probe method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	reporter := &fakeReporter{}
	p := New(server.URL, "", reporter)

	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reporter.calls) != 1 || !reporter.calls[0] {
		t.Errorf("reporter calls = %v, want [true]", reporter.calls)
	}
}

func TestCheckErrorStatusStillReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	reporter := &fakeReporter{}
	p := New(server.URL, "", reporter)

	// A 403 means the gateway answered; that is reachable.
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reporter.calls) != 1 || !reporter.calls[0] {
		t.Errorf("reporter calls = %v, want [true]", reporter.calls)
	}
}

func TestCheckReportsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	reporter := &fakeReporter{}
	p := New(server.URL, "", reporter)

	if err := p.Check(context.Background()); err == nil {
		t.Fatal("expected error for dead upstream")
	}
	if len(reporter.calls) != 1 || reporter.calls[0] {
		t.Errorf("reporter calls = %v, want [false]", reporter.calls)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	p := New(server.URL, "whenever", nil)
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStartEmptyScheduleProbesOnce(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	p := New(server.URL, "", nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if hits != 1 {
		t.Errorf("probe hits = %d, want 1", hits)
	}
}

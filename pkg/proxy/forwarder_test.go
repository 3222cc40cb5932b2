package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mamba-hq/mamba/pkg/config"
	"mamba-hq/mamba/pkg/rotation"
)

// capturedRequest records what the fake upstream saw.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// newUpstream starts a fake gateway that records requests and replies with
// the given status and body.
func newUpstream(t *testing.T, status int, responseBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()

	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream-Marker", "present")
		w.WriteHeader(status)
		fmt.Fprint(w, responseBody)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

// newForwarder wires a forwarder against the fake upstream. The URL template
// points at the test server; account and gateway IDs become path segments so
// captured paths show which credential was used.
func newForwarder(t *testing.T, upstream *httptest.Server, gateways []rotation.Credential, providerKeys map[string][]string) *Forwarder {
	t.Helper()

	state, err := rotation.New(gateways, providerKeys)
	if err != nil {
		t.Fatalf("rotation.New: %v", err)
	}

	cfg := config.UpstreamConfig{
		URLTemplate:    upstream.URL + "/v1/%s/%s",
		CompatSuffix:   "/compat",
		VersionPrefix:  "/v1",
		RequestTimeout: 5 * time.Second,
		StreamPacing:   0,
	}
	return NewForwarder(rotation.NewHolder(state), cfg, nil, nil, nil)
}

func testGateways(n int) []rotation.Credential {
	creds := make([]rotation.Credential, n)
	for i := range creds {
		creds[i] = rotation.Credential{
			AccountID: fmt.Sprintf("acct-%d", i),
			GatewayID: fmt.Sprintf("gw-%d", i),
			Token:     fmt.Sprintf("token-%d", i),
		}
	}
	return creds
}

const upstreamCompletion = `{"id":"chatcmpl-1","created":1,"model":"openai/gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`

func TestForwardRewritesPathAndPreservesQuery(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions?foo=bar", strings.NewReader(`{"model":"openai/gpt-4o"}`))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if len(*captured) != 1 {
		t.Fatalf("upstream saw %d requests, want 1", len(*captured))
	}
	got := (*captured)[0]
	if got.Path != "/v1/acct-0/gw-0/compat/chat/completions" {
		t.Errorf("upstream path = %q", got.Path)
	}
	if got.Query != "foo=bar" {
		t.Errorf("upstream query = %q, want foo=bar", got.Query)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestForwardRotatesGatewaysRoundRobin(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(3), nil)

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{}`))
		f.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(*captured) != 6 {
		t.Fatalf("upstream saw %d requests, want 6", len(*captured))
	}
	for i, got := range *captured {
		wantPrefix := fmt.Sprintf("/v1/acct-%d/gw-%d/", i%3, i%3)
		if !strings.HasPrefix(got.Path, wantPrefix) {
			t.Errorf("request %d path = %q, want prefix %q", i, got.Path, wantPrefix)
		}
		wantAuth := fmt.Sprintf("Bearer token-%d", i%3)
		if auth := got.Header.Get("cf-aig-authorization"); auth != wantAuth {
			t.Errorf("request %d gateway auth = %q, want %q", i, auth, wantAuth)
		}
	}
}

func TestForwardSetsGatewayTokenOverClientHeader(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{}`))
	req.Header.Set("cf-aig-authorization", "Bearer client-token")
	f.ServeHTTP(httptest.NewRecorder(), req)

	got := (*captured)[0].Header.Get("cf-aig-authorization")
	if got != "Bearer token-0" {
		t.Errorf("gateway auth = %q, want rotated token", got)
	}
}

func TestForwardStripsHopByHopHeaders(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{}`))
	req.Header.Set("Proxy-Authorization", "secret")
	req.Header.Set("X-Custom", "kept")
	f.ServeHTTP(httptest.NewRecorder(), req)

	got := (*captured)[0].Header
	if got.Get("Proxy-Authorization") != "" {
		t.Error("Proxy-Authorization leaked upstream")
	}
	if got.Get("X-Custom") != "kept" {
		t.Error("X-Custom header not forwarded")
	}
}

func TestForwardSubstitutesProviderKey(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	keys := map[string][]string{"openai": {"sk-first", "sk-second"}}
	f := newForwarder(t, upstream, testGateways(1), keys)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/v1/chat/completions",
			strings.NewReader(`{"model":"openai/gpt-4o"}`))
		req.Header.Set("Authorization", "Bearer client-key")
		f.ServeHTTP(httptest.NewRecorder(), req)
	}

	wantKeys := []string{"Bearer sk-first", "Bearer sk-second", "Bearer sk-first"}
	for i, want := range wantKeys {
		if got := (*captured)[i].Header.Get("Authorization"); got != want {
			t.Errorf("request %d Authorization = %q, want %q", i, got, want)
		}
	}
}

func TestForwardPassesClientKeyWhenNoPool(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(1), map[string][]string{"openai": {"sk-1"}})

	req := httptest.NewRequest("POST", "/v1/chat/completions",
		strings.NewReader(`{"model":"anthropic/claude-sonnet"}`))
	req.Header.Set("Authorization", "Bearer client-key")
	f.ServeHTTP(httptest.NewRecorder(), req)

	if got := (*captured)[0].Header.Get("Authorization"); got != "Bearer client-key" {
		t.Errorf("Authorization = %q, want client credentials passed through", got)
	}
}

func TestForwardRewritesStreamFlag(t *testing.T) {
	upstream, captured := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions",
		strings.NewReader(`{"model":"openai/gpt-4o","stream":true}`))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	var sent map[string]any
	if err := json.Unmarshal((*captured)[0].Body, &sent); err != nil {
		t.Fatalf("upstream body not JSON: %v", err)
	}
	if sent["stream"] != false {
		t.Errorf("upstream stream flag = %v, want false", sent["stream"])
	}

	// The client asked for a stream, so the response is SSE.
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("stream not terminated with sentinel:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"content":"hi "`) {
		t.Errorf("stream missing word delta:\n%s", rec.Body.String())
	}
}

func TestForwardNonStreamingPassesBodyVerbatim(t *testing.T) {
	upstream, _ := newUpstream(t, 200, upstreamCompletion)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions",
		strings.NewReader(`{"model":"openai/gpt-4o"}`))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Body.String() != upstreamCompletion {
		t.Errorf("response body altered:\n%s", rec.Body.String())
	}
	if got := rec.Header().Get("X-Upstream-Marker"); got != "present" {
		t.Error("upstream response header not relayed")
	}
}

func TestForwardRelaysUpstreamErrorStatus(t *testing.T) {
	upstream, _ := newUpstream(t, 429, `{"error":{"message":"rate limited"}}`)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Code != 429 {
		t.Errorf("status = %d, want 429 relayed", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate limited") {
		t.Errorf("upstream error body altered:\n%s", rec.Body.String())
	}
}

func TestForwardStreamingPreservesUpstreamErrorStatus(t *testing.T) {
	upstream, _ := newUpstream(t, 500, `{"error":{"message":"broken"}}`)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions",
		strings.NewReader(`{"stream":true}`))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	// Error document has no choices: single opaque frame plus sentinel.
	if !strings.Contains(rec.Body.String(), `"broken"`) {
		t.Errorf("error document not relayed in stream:\n%s", rec.Body.String())
	}
	if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("stream not terminated:\n%s", rec.Body.String())
	}
}

func TestForwardUnreachableUpstreamReturns502(t *testing.T) {
	// Start then immediately stop a server to get a dead address.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	state, err := rotation.New(testGateways(1), nil)
	if err != nil {
		t.Fatalf("rotation.New: %v", err)
	}
	cfg := config.UpstreamConfig{
		URLTemplate:    dead.URL + "/v1/%s/%s",
		CompatSuffix:   "/compat",
		VersionPrefix:  "/v1",
		RequestTimeout: 2 * time.Second,
	}
	f := NewForwarder(rotation.NewHolder(state), cfg, nil, nil, nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Code != 502 {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body struct {
		Error struct {
			Type string `json:"type"`
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body.Error.Type != "bad_gateway" {
		t.Errorf("error type = %q, want bad_gateway", body.Error.Type)
	}
	if body.Error.Code != "upstream_unreachable" {
		t.Errorf("error code = %q, want upstream_unreachable", body.Error.Code)
	}
}

func TestForwardNonJSONBodyPassesThrough(t *testing.T) {
	upstream, captured := newUpstream(t, 200, `ok`)
	f := newForwarder(t, upstream, testGateways(1), nil)

	req := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader("not json at all"))
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if string((*captured)[0].Body) != "not json at all" {
		t.Errorf("upstream body = %q, want verbatim pass-through", (*captured)[0].Body)
	}
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestInspectBody(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantKind     bodyKind
		wantStream   bool
		wantProvider string
	}{
		{
			name:     "not json",
			body:     "plain text",
			wantKind: bodyOpaque,
		},
		{
			name:         "stream true rewritten",
			body:         `{"model":"openai/gpt-4o","stream":true}`,
			wantKind:     bodyJSON,
			wantStream:   true,
			wantProvider: "openai",
		},
		{
			name:         "stream false untouched",
			body:         `{"model":"openai/gpt-4o","stream":false}`,
			wantKind:     bodyJSON,
			wantProvider: "openai",
		},
		{
			name:     "stream non-boolean ignored",
			body:     `{"stream":"yes"}`,
			wantKind: bodyJSON,
		},
		{
			name:     "model without provider prefix",
			body:     `{"model":"gpt-4o"}`,
			wantKind: bodyJSON,
		},
		{
			name:     "json array is opaque",
			body:     `[1,2,3]`,
			wantKind: bodyOpaque,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inspectBody([]byte(tt.body))
			if got.kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", got.kind, tt.wantKind)
			}
			if got.wantStream != tt.wantStream {
				t.Errorf("wantStream = %v, want %v", got.wantStream, tt.wantStream)
			}
			if got.provider != tt.wantProvider {
				t.Errorf("provider = %q, want %q", got.provider, tt.wantProvider)
			}
			if tt.wantStream {
				var fields map[string]any
				if err := json.Unmarshal(got.payload, &fields); err != nil {
					t.Fatalf("rewritten payload not JSON: %v", err)
				}
				if fields["stream"] != false {
					t.Errorf("rewritten stream = %v, want false", fields["stream"])
				}
			} else if string(got.payload) != tt.body {
				t.Errorf("payload altered without stream rewrite: %s", got.payload)
			}
		})
	}
}

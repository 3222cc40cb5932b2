package proxy

import (
	"encoding/json"
	"strings"
)

// bodyKind classifies the result of best-effort body inspection.
type bodyKind int

const (
	// bodyOpaque means the body is not a JSON object; it is forwarded
	// byte-for-byte. Malformed JSON is expected input, never an error.
	bodyOpaque bodyKind = iota

	// bodyJSON means the body parsed as a JSON object. The stream flag and
	// model field were inspected and the body may have been rewritten.
	bodyJSON
)

// inspectedBody is the outcome of inspecting one inbound request body.
type inspectedBody struct {
	kind bodyKind

	// payload is the body to forward upstream. When the stream flag was
	// rewritten this differs from the inbound bytes; otherwise it aliases
	// them unchanged.
	payload []byte

	// wantStream records whether the original caller asked for a stream.
	// The upstream is always called in non-streaming mode.
	wantStream bool

	// provider is the provider segment of a "provider/model" model field,
	// used for API key rotation. Empty when absent or not attributable.
	provider string
}

// inspectBody parses the request body as a JSON object when possible.
// If a boolean "stream" field is present and true, the returned payload has
// it rewritten to false and wantStream is set. Anything that fails to parse
// passes through unmodified with the stream flag off.
func inspectBody(body []byte) inspectedBody {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return inspectedBody{kind: bodyOpaque, payload: body}
	}

	out := inspectedBody{kind: bodyJSON, payload: body}
	out.provider = providerFromModel(fields["model"])

	raw, ok := fields["stream"]
	if !ok {
		return out
	}

	var stream bool
	if err := json.Unmarshal(raw, &stream); err != nil || !stream {
		// Absent, false, or not a boolean: forward unchanged.
		return out
	}

	fields["stream"] = json.RawMessage("false")
	rewritten, err := json.Marshal(fields)
	if err != nil {
		// Re-encoding a decoded object should not fail; forward the
		// original rather than dropping the request.
		return out
	}

	out.payload = rewritten
	out.wantStream = true
	return out
}

// providerFromModel extracts the provider name from a compat-style model
// field such as "openai/gpt-4o". Returns empty when the field is missing,
// not a string, or carries no provider prefix.
func providerFromModel(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var model string
	if err := json.Unmarshal(raw, &model); err != nil {
		return ""
	}
	provider, _, found := strings.Cut(model, "/")
	if !found || provider == "" {
		return ""
	}
	return provider
}

// Package stream synthesizes a Server-Sent Events stream from a single,
// fully buffered upstream response.
//
// The upstream is always called in non-streaming mode, so clients that asked
// for a stream receive a fabricated one: the completed message content is
// split into words and each word is delivered as an incremental delta chunk
// with artificial pacing. The frames are not real upstream tokens; if the
// upstream ever supports true streaming this package would be replaced by
// pass-through relaying.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// doneFrame is the sentinel marking end-of-stream. It is always the final
// emission, on every input shape.
const doneFrame = "data: [DONE]\n\n"

// chunkObject is the object type stamped on every synthesized chunk.
const chunkObject = "chat.completion.chunk"

// Synthesizer converts buffered upstream responses into SSE streams.
type Synthesizer struct {
	// Pacing is the artificial delay between word frames. It shapes
	// perceived delivery only; frame ordering is the sole guarantee.
	Pacing time.Duration

	logger *slog.Logger
}

// New creates a synthesizer with the given inter-frame pacing.
func New(pacing time.Duration, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		Pacing: pacing,
		logger: logger.With("component", "proxy.stream"),
	}
}

// chunk is the envelope for one synthesized completion chunk.
type chunk struct {
	ID      json.RawMessage `json:"id"`
	Object  string          `json:"object"`
	Created json.RawMessage `json:"created"`
	Model   json.RawMessage `json:"model"`
	Choices []chunkChoice   `json:"choices"`
	Usage   json.RawMessage `json:"usage,omitempty"`
}

// chunkChoice is the single index-0 choice carried by every chunk.
type chunkChoice struct {
	Index        int             `json:"index"`
	Delta        map[string]any  `json:"delta"`
	FinishReason json.RawMessage `json:"finish_reason"`
}

// ServeResponse writes the buffered upstream response to w as an SSE stream.
// The upstream status code is preserved on the response envelope. Frames are
// produced by a detached goroutine and drained here; if the client
// disconnects mid-stream, production stops silently. That is normal
// cancellation, not an error.
//
// The return value is the number of frames written, for instrumentation.
func (s *Synthesizer) ServeResponse(w http.ResponseWriter, r *http.Request, status int, body []byte) int {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(status)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan string, 16)
	go s.produce(ctx, body, frames)

	written := 0
	flusher, canFlush := w.(http.Flusher)
	for frame := range frames {
		if _, err := fmt.Fprint(w, frame); err != nil {
			// Client went away; stop the producer and drain.
			cancel()
			for range frames {
			}
			return written
		}
		written++
		if canFlush {
			flusher.Flush()
		}
	}
	return written
}

// produce pushes all frames for one response into the channel and closes it.
// Sends race against ctx so a vanished consumer never strands the goroutine.
func (s *Synthesizer) produce(ctx context.Context, body []byte, frames chan<- string) {
	defer close(frames)

	send := func(frame string) bool {
		select {
		case frames <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	}
	s.emit(ctx, body, send)
}

// emit classifies the body and pushes the corresponding frame sequence
// through send. Every shape ends with the sentinel unless the consumer is
// gone.
func (s *Synthesizer) emit(ctx context.Context, body []byte, send func(string) bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		// Unparseable: relay verbatim when it is at least text, otherwise
		// the sentinel alone terminates the stream cleanly.
		if utf8.Valid(body) && len(body) > 0 {
			s.logger.Debug("synthesizing single frame from non-JSON body", "bytes", len(body))
			if !send("data: " + string(body) + "\n\n") {
				return
			}
		} else {
			s.logger.Debug("upstream body is not text, emitting sentinel only")
		}
		send(doneFrame)
		return
	}

	choicesRaw, hasChoices := doc["choices"]
	if !hasChoices {
		// Opaque JSON: not a chat completion, send the whole document.
		if send(dataFrame(json.RawMessage(body))) {
			send(doneFrame)
		}
		return
	}

	var choices []json.RawMessage
	if err := json.Unmarshal(choicesRaw, &choices); err != nil || len(choices) == 0 {
		s.logger.Debug("choices field empty or malformed, emitting sentinel only")
		send(doneFrame)
		return
	}

	content, ok := messageContent(choices[0])
	if !ok {
		// First choice has no parseable message content: emit it verbatim
		// in chunk clothing, unsplit.
		s.logger.Debug("first choice has no message content, emitting verbatim")
		verbatim := map[string]any{
			"id":      metaOr(doc, "id", `"unknown"`),
			"object":  chunkObject,
			"created": metaOr(doc, "created", "0"),
			"model":   metaOr(doc, "model", `"unknown"`),
			"choices": []json.RawMessage{choices[0]},
		}
		if send(dataFrame(verbatim)) {
			send(doneFrame)
		}
		return
	}

	s.emitWords(ctx, doc, choices[0], content, send)
}

// emitWords streams the word-delta frame sequence, pacing between word
// frames. The terminal frame and sentinel always follow, in that order.
func (s *Synthesizer) emitWords(ctx context.Context, doc map[string]json.RawMessage, firstChoice json.RawMessage, content string, send func(string) bool) {
	id := metaOr(doc, "id", `"unknown"`)
	created := metaOr(doc, "created", "0")
	model := metaOr(doc, "model", `"unknown"`)

	words := strings.Fields(content)
	for i, word := range words {
		text := word
		if i < len(words)-1 {
			text += " "
		}

		frame := dataFrame(chunk{
			ID:      id,
			Object:  chunkObject,
			Created: created,
			Model:   model,
			Choices: []chunkChoice{{
				Index:        0,
				Delta:        map[string]any{"content": text},
				FinishReason: json.RawMessage("null"),
			}},
		})
		if !send(frame) {
			return
		}

		if s.Pacing > 0 && i < len(words)-1 {
			select {
			case <-time.After(s.Pacing):
			case <-ctx.Done():
				return
			}
		}
	}

	terminal := chunk{
		ID:      id,
		Object:  chunkObject,
		Created: created,
		Model:   model,
		Choices: []chunkChoice{{
			Index:        0,
			Delta:        map[string]any{},
			FinishReason: finishReason(firstChoice),
		}},
	}
	if usage, ok := doc["usage"]; ok {
		terminal.Usage = usage
	}

	if send(dataFrame(terminal)) {
		send(doneFrame)
	}
}

// messageContent extracts choices[0].message.content when it is a string.
func messageContent(choice json.RawMessage) (string, bool) {
	var c struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(choice, &c); err != nil {
		return "", false
	}
	var content string
	if err := json.Unmarshal(c.Message.Content, &content); err != nil {
		return "", false
	}
	return content, true
}

// finishReason returns the first choice's finish_reason, defaulting to "stop".
func finishReason(choice json.RawMessage) json.RawMessage {
	var c struct {
		FinishReason json.RawMessage `json:"finish_reason"`
	}
	if err := json.Unmarshal(choice, &c); err != nil || len(c.FinishReason) == 0 || string(c.FinishReason) == "null" {
		return json.RawMessage(`"stop"`)
	}
	return c.FinishReason
}

// metaOr returns a top-level field of the source document, or a fallback
// raw JSON value when the field is absent.
func metaOr(doc map[string]json.RawMessage, key, fallback string) json.RawMessage {
	if v, ok := doc[key]; ok {
		return v
	}
	return json.RawMessage(fallback)
}

// dataFrame wire-frames one payload as "data: <json>\n\n". HTML escaping is
// disabled so characters like < and & reach the client as the upstream sent
// them.
func dataFrame(payload any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		// Payloads are built from already-decoded JSON; this is unreachable
		// in practice but the stream must still terminate sanely.
		return doneFrame
	}
	// Encode appends a newline of its own.
	return "data: " + strings.TrimRight(buf.String(), "\n") + "\n\n"
}

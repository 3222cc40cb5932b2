package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mamba-hq/mamba/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics anywhere in the forwarding path
// and answers with a 500 in the same OpenAI error envelope SDK clients
// already parse for proxy errors. The panic and stack are logged; nothing
// internal reaches the client. One panicking forward never takes down other
// in-flight requests.
//
// Note the recovery cannot help a synthesized stream that already sent its
// status line; for those the connection simply ends without a sentinel.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				errResp := types.NewServerError(
					"An internal error occurred. Please try again later.",
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(errResp)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mamba-hq/mamba/pkg/proxy/types"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response.
// It extracts the appropriate HTTP status code from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()
	return WriteJSONResponse(w, statusCode, errResp)
}

// bodyReadError builds the 400 response for an unreadable inbound body.
// The underlying read error is included verbatim; it describes the client's
// own connection, not anything internal.
func bodyReadError(err error) *types.ErrorResponse {
	return types.NewInvalidRequestError(
		fmt.Sprintf("failed to read request body: %v", err),
		"",
		types.CodeBodyReadFailed,
	)
}

// upstreamError builds the 502 response for a transport-level upstream
// failure. Upstream HTTP error statuses do not come through here; they are
// relayed verbatim.
func upstreamError(err error, code string) *types.ErrorResponse {
	return types.NewBadGatewayError(
		fmt.Sprintf("upstream request failed: %v", err),
		code,
	)
}

package types

// ErrorResponse represents an OpenAI-compatible error response.
// This is returned for all proxy-originated error conditions so that
// standard SDKs can parse failures; upstream errors pass through verbatim.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	// Possible values: "invalid_request_error", "server_error", "bad_gateway".
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants matching the OpenAI API specification.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates an upstream transport failure (502).
	ErrorTypeBadGateway = "bad_gateway"
)

// Error code constants for common error scenarios.
const (
	// CodeBodyReadFailed indicates the request body could not be read.
	CodeBodyReadFailed = "body_read_failed"

	// CodeRequestTooLarge indicates the request payload is too large.
	CodeRequestTooLarge = "request_too_large"

	// CodeUpstreamUnreachable indicates the gateway could not be reached.
	CodeUpstreamUnreachable = "upstream_unreachable"

	// CodeUpstreamReadFailed indicates the gateway response could not be read.
	CodeUpstreamReadFailed = "upstream_read_failed"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError creates an error response for upstream failures (502).
func NewBadGatewayError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", code)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return 400
	case ErrorTypeServerError:
		return 500
	case ErrorTypeBadGateway:
		return 502
	default:
		return 500
	}
}

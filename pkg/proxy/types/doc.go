// Package types defines the OpenAI-compatible error envelope used by the
// proxy for failures it originates itself.
//
// The proxy is deliberately transparent: request and response bodies are
// relayed as raw bytes and never modeled here. Only an unreadable inbound
// request (400) and an unreachable upstream (502) produce a proxy-originated
// body, and both use ErrorResponse so that standard OpenAI SDKs can surface
// them.
package types

// Mamba is a rotating proxy for Cloudflare AI Gateway.
//
// It forwards OpenAI-compatible API requests to a remote AI gateway,
// rotating gateway credentials and provider API keys round-robin across
// requests, and synthesizes SSE streams for clients that asked for
// streaming from the gateway's buffered responses.
//
// Usage:
//
//	# Start the proxy with default configuration
//	mamba run
//
//	# Start with a custom configuration file
//	mamba run --config /etc/mamba/config.yaml
//
//	# Validate configuration without starting
//	mamba validate
//
//	# Test gateway connectivity end to end
//	mamba check
//
//	# Install as a systemd service
//	sudo mamba service install
//
//	# Update to the latest release
//	mamba update
package main

func main() {
	Execute()
}

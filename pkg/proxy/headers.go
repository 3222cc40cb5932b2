package proxy

import "net/http"

// hopByHopHeaders are connection-scoped headers that must not be relayed on
// either leg. Host and Content-Length are handled by the HTTP client from
// the outbound URL and body; forwarding stale values would corrupt the
// request.
var hopByHopHeaders = map[string]struct{}{
	"Host":                {},
	"Content-Length":      {},
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailers":            {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// copyFilteredHeaders copies src into dst, skipping hop-by-hop headers.
// Keys in src are assumed canonical (net/http canonicalizes on parse).
func copyFilteredHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, skip := hopByHopHeaders[key]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

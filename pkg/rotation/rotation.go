// Package rotation provides round-robin selection over gateway credentials
// and per-provider API key pools.
//
// A State is built once from validated configuration and shared by all
// in-flight requests. The only mutable pieces are atomic counters, so
// selection is lock-free: every call performs a single fetch-and-increment
// and maps the result onto the configured list with a modulo. Counters are
// not persisted; they restart at zero with the process.
package rotation

import (
	"fmt"
	"sync/atomic"
)

// Credential identifies one upstream gateway: the account it belongs to,
// the gateway name within that account, and the bearer token used for
// gateway-level authentication. Credentials are immutable after construction.
type Credential struct {
	AccountID string
	GatewayID string
	Token     string
}

// BaseURL renders the upstream base URL for this credential by substituting
// the account and gateway identifiers into the URL template. The template
// must contain exactly two %s verbs, account first.
func (c Credential) BaseURL(template string) string {
	return fmt.Sprintf(template, c.AccountID, c.GatewayID)
}

// Selection is the result of one gateway rotation step. It carries the
// chosen credential and its position in the configured list together, so a
// caller never has to correlate a URL with a token across two calls.
type Selection struct {
	Credential Credential
	Index      int
}

// State holds the rotation counters for the gateway list and for each
// provider key pool. All methods are safe for concurrent use.
type State struct {
	gateways       []Credential
	gatewayCounter atomic.Uint64

	pools map[string]*keyPool
}

// keyPool is one provider's ordered key list with its own counter.
type keyPool struct {
	keys    []string
	counter atomic.Uint64
}

// New builds rotation state from the configured gateways and provider key
// pools. At least one gateway is required; providers with empty key lists
// are skipped and simply never rotate.
func New(gateways []Credential, providerKeys map[string][]string) (*State, error) {
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one gateway credential is required")
	}

	pools := make(map[string]*keyPool)
	for name, keys := range providerKeys {
		if len(keys) == 0 {
			continue
		}
		pool := &keyPool{keys: make([]string, len(keys))}
		copy(pool.keys, keys)
		pools[name] = pool
	}

	s := &State{
		gateways: make([]Credential, len(gateways)),
		pools:    pools,
	}
	copy(s.gateways, gateways)

	return s, nil
}

// Next advances the gateway counter and returns the selected credential.
// Consecutive calls walk the configured list in order and wrap at the end.
// Concurrent callers each receive a distinct counter value, so no position
// is skipped or assigned twice.
func (s *State) Next() Selection {
	n := s.gatewayCounter.Add(1) - 1
	idx := int(n % uint64(len(s.gateways)))
	return Selection{Credential: s.gateways[idx], Index: idx}
}

// NextKey advances the key counter for the named provider and returns the
// selected key. The second return is false when the provider is not
// configured or has no keys.
func (s *State) NextKey(provider string) (string, bool) {
	pool, ok := s.pools[provider]
	if !ok {
		return "", false
	}
	n := pool.counter.Add(1) - 1
	return pool.keys[int(n%uint64(len(pool.keys)))], true
}

// GatewayCount returns the number of configured gateways.
func (s *State) GatewayCount() int {
	return len(s.gateways)
}

// PoolSize returns the number of keys configured for a provider, or zero
// when the provider has no pool.
func (s *State) PoolSize(provider string) int {
	if pool, ok := s.pools[provider]; ok {
		return len(pool.keys)
	}
	return 0
}

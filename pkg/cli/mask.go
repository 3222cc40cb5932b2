package cli

import "strings"

// MaskCredential returns a display-safe form of a secret: the first four
// and last four characters with the middle elided. Short secrets are
// masked entirely so nothing useful leaks.
func MaskCredential(secret string) string {
	if len(secret) <= 12 {
		return strings.Repeat("*", 8)
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

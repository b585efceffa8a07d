package crypto

import (
	"crypto/rand"
	"fmt"
)

// Random returns n cryptographically secure random bytes. Used to generate
// the provisioner's confirmation random value and any other nonce-like
// material that isn't derived from the ECDH secret.
func Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto: random: %w", err)
	}
	return b, nil
}

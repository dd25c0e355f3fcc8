package krypto

import (
	"crypto/rand"
	"fmt"
)

// genRandomBytes returns n bytes from the operating system randomness source.
//
// If the source fails there is no safe way to continue, any fallback would
// risk producing guessable secrets. Callers that cannot return an error
// should treat a failure as fatal.
func genRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("randomness source failed: %w", err)
	}
	return b, nil
}

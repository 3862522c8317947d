package auth

import (
	"crypto/rand"
	"fmt"
)

// tokenCharset matches what git clients can carry in a basic auth password
// without escaping.
const tokenCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const tokenLength = 32

// GenerateToken returns a random project token. The plaintext is shown to
// the user exactly once; only its argon2id hash is stored.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	// 64-character charset, so a byte maps onto it without modulo bias
	for i, b := range buf {
		buf[i] = tokenCharset[int(b)%len(tokenCharset)]
	}
	return string(buf), nil
}

// Package encryption seals sensitive values with fernet before they
// reach the database or a cookie.
package encryption

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// Service handles encryption/decryption of sensitive data
type Service struct {
	key *fernet.Key
}

// NewService creates a new encryption service with the provided key
func NewService(keyString string) (*Service, error) {
	if keyString == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}

	key, err := fernet.DecodeKey(keyString)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}

	return &Service{key: key}, nil
}

// Encrypt encrypts plaintext and returns a base64-encoded token
func (e *Service) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil // Don't encrypt empty strings
	}

	token, err := fernet.EncryptAndSign([]byte(plaintext), e.key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(token), nil
}

// Decrypt decrypts a base64-encoded token and returns plaintext
func (e *Service) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil // Return empty string for empty tokens
	}

	// Decode base64 first
	tokenBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid token format: %w", err)
	}

	// Set TTL to 100 years - stored values must not expire
	plaintext := fernet.VerifyAndDecrypt(tokenBytes, time.Hour*24*365*100, []*fernet.Key{e.key})
	if plaintext == nil {
		return "", fmt.Errorf("failed to decrypt token: invalid or expired")
	}

	return string(plaintext), nil
}

// EncryptWithTTL encrypts plaintext into a raw fernet token whose age is
// checked against ttl on decryption. Used for session cookies.
func (e *Service) EncryptWithTTL(plaintext []byte) (string, error) {
	token, err := fernet.EncryptAndSign(plaintext, e.key)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	return string(token), nil
}

// DecryptWithTTL verifies a raw fernet token against ttl and returns the
// plaintext, or nil if the token is invalid or older than ttl.
func (e *Service) DecryptWithTTL(token string, ttl time.Duration) []byte {
	return fernet.VerifyAndDecrypt([]byte(token), ttl, []*fernet.Key{e.key})
}

// EncryptEnv encrypts a project's environment map for database storage
func (e *Service) EncryptEnv(env map[string]string) (string, error) {
	if len(env) == 0 {
		return "", nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to serialize environment: %w", err)
	}

	encrypted, err := e.Encrypt(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt environment: %w", err)
	}

	return encrypted, nil
}

// DecryptEnv decrypts a stored environment blob back to a map
func (e *Service) DecryptEnv(encrypted string) (map[string]string, error) {
	if encrypted == "" {
		return map[string]string{}, nil
	}

	data, err := e.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt environment: %w", err)
	}

	var env map[string]string
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, fmt.Errorf("failed to deserialize environment: %w", err)
	}

	return env, nil
}

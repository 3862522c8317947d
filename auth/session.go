package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slipway-sh/slipway/encryption"
)

// SessionCookieName is the cookie carrying the sealed session token.
const SessionCookieName = "slipway_session"

// DefaultSessionTTL bounds how long a session cookie stays valid. The fernet
// token embeds its mint time, so expiry needs no server-side state.
const DefaultSessionTTL = 7 * 24 * time.Hour

type sessionPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// MintSession seals a session token for the user.
func MintSession(enc *encryption.Service, userID uuid.UUID, username string) (string, error) {
	payload, err := json.Marshal(sessionPayload{UserID: userID, Username: username})
	if err != nil {
		return "", fmt.Errorf("failed to serialize session: %w", err)
	}

	token, err := enc.EncryptWithTTL(payload)
	if err != nil {
		return "", fmt.Errorf("failed to seal session: %w", err)
	}
	return token, nil
}

// openSession verifies the token signature and age and returns the payload,
// or nil if the token is invalid, tampered with or expired.
func openSession(enc *encryption.Service, token string, ttl time.Duration) *sessionPayload {
	plaintext := enc.DecryptWithTTL(token, ttl)
	if plaintext == nil {
		return nil
	}

	var payload sessionPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil
	}
	return &payload
}

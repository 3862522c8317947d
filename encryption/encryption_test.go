package encryption

import (
	"crypto/rand"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestKey creates a random fernet key for testing
func generateTestKey() string {
	var key fernet.Key
	if _, err := rand.Read(key[:]); err != nil {
		panic(fmt.Sprintf("failed to generate test encryption key: %v", err))
	}
	return key.Encode()
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{
			name:    "valid key",
			key:     generateTestKey(),
			wantErr: false,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
		{
			name:    "invalid key",
			key:     "invalid-key",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestService_EncryptDecrypt(t *testing.T) {
	service, err := NewService(generateTestKey())
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{
			name:      "simple string",
			plaintext: "hello world",
		},
		{
			name:      "empty string",
			plaintext: "",
		},
		{
			name:      "database url",
			plaintext: "postgres://user:hunter2@db:5432/app",
		},
		{
			name:      "unicode",
			plaintext: "Hello 世界 🚀",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Encrypt
			encrypted, err := service.Encrypt(tt.plaintext)
			assert.NoError(t, err)

			if tt.plaintext == "" {
				assert.Equal(t, "", encrypted)
			} else {
				assert.NotEqual(t, tt.plaintext, encrypted)
				assert.True(t, len(encrypted) > 0)
			}

			// Decrypt
			decrypted, err := service.Decrypt(encrypted)
			assert.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestService_DecryptInvalidToken(t *testing.T) {
	service, err := NewService(generateTestKey())
	require.NoError(t, err)

	invalidTokens := []string{
		"invalid-token",
		"gAAAAABh",
		"completely-wrong",
	}

	for _, token := range invalidTokens {
		_, err := service.Decrypt(token)
		assert.Error(t, err)
		// Error could be either "invalid token format" or "failed to decrypt token"
		assert.True(t,
			strings.Contains(err.Error(), "failed to decrypt token") ||
				strings.Contains(err.Error(), "invalid token format"))
	}
}

func TestService_DecryptWrongKey(t *testing.T) {
	service1, err := NewService(generateTestKey())
	require.NoError(t, err)
	service2, err := NewService(generateTestKey())
	require.NoError(t, err)

	encrypted, err := service1.Encrypt("secret value")
	require.NoError(t, err)

	_, err = service2.Decrypt(encrypted)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decrypt token")
}

func TestService_EncryptDecryptWithTTL(t *testing.T) {
	service, err := NewService(generateTestKey())
	require.NoError(t, err)

	token, err := service.EncryptWithTTL([]byte(`{"user_id":"abc"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Fresh token verifies
	plaintext := service.DecryptWithTTL(token, time.Hour)
	require.NotNil(t, plaintext)
	assert.Equal(t, `{"user_id":"abc"}`, string(plaintext))

	// Garbage does not
	assert.Nil(t, service.DecryptWithTTL("not-a-token", time.Hour))

	// A different key does not
	other, err := NewService(generateTestKey())
	require.NoError(t, err)
	assert.Nil(t, other.DecryptWithTTL(token, time.Hour))
}

func TestService_EncryptDecryptEnv(t *testing.T) {
	service, err := NewService(generateTestKey())
	require.NoError(t, err)

	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "typical variables",
			env: map[string]string{
				"SECRET_KEY":   "s3cr3t",
				"DATABASE_URL": "postgres://app:pw@db:5432/app",
			},
		},
		{
			name: "nil map",
			env:  nil,
		},
		{
			name: "empty map",
			env:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := service.EncryptEnv(tt.env)
			require.NoError(t, err)

			if len(tt.env) == 0 {
				assert.Equal(t, "", encrypted)
			} else {
				// No plaintext values leak into the stored blob
				for _, v := range tt.env {
					assert.NotContains(t, encrypted, v)
				}
			}

			decrypted, err := service.DecryptEnv(encrypted)
			require.NoError(t, err)

			if len(tt.env) == 0 {
				assert.Empty(t, decrypted)
			} else {
				assert.Equal(t, tt.env, decrypted)
			}
		})
	}
}

func TestService_DecryptEnvErrors(t *testing.T) {
	service, err := NewService(generateTestKey())
	require.NoError(t, err)

	// Not a fernet token
	_, err = service.DecryptEnv("garbage")
	assert.Error(t, err)

	// Valid token, but not a JSON object
	encrypted, err := service.Encrypt("not json {")
	require.NoError(t, err)
	_, err = service.DecryptEnv(encrypted)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to deserialize")
}

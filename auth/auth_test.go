package auth

import (
	"crypto/rand"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
	"github.com/slipway-sh/slipway/repository"
)

func generateTestKey() string {
	var key fernet.Key
	if _, err := rand.Read(key[:]); err != nil {
		panic(fmt.Sprintf("failed to generate test encryption key: %v", err))
	}
	return key.Encode()
}

func setupTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()

	database, err := db.InitDatabase(db.DBConfig{Path: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAll(database))

	encryptionSvc, err := encryption.NewService(generateTestKey())
	require.NoError(t, err)

	repos := repository.NewRepositories(database, encryptionSvc)
	return NewService(repos, encryptionSvc), repos
}

func TestGenerateHashAndCompare(t *testing.T) {
	hash, err := GenerateHash("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	assert.NotContains(t, hash, "hunter2")

	ok, err := CompareHash("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CompareHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateHash_UniqueSalts(t *testing.T) {
	hash1, err := GenerateHash("same-secret")
	require.NoError(t, err)
	hash2, err := GenerateHash("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash2)
}

func TestCompareHash_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "not a hash", encoded: "plaintext"},
		{name: "wrong algorithm", encoded: "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{name: "truncated", encoded: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA"},
		{name: "bad base64", encoded: "$argon2id$v=19$m=19456,t=2,p=1$!!$!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := CompareHash("secret", tt.encoded)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, tokenLength)
		for _, c := range token {
			assert.Contains(t, tokenCharset, string(c))
		}
		assert.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}

func TestSessionRoundTrip(t *testing.T) {
	encryptionSvc, err := encryption.NewService(generateTestKey())
	require.NoError(t, err)

	userID := uuid.New()
	token, err := MintSession(encryptionSvc, userID, "alice")
	require.NoError(t, err)
	assert.NotContains(t, token, "alice")

	payload := openSession(encryptionSvc, token, time.Hour)
	require.NotNil(t, payload)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "alice", payload.Username)

	// Expired
	assert.Nil(t, openSession(encryptionSvc, token, -time.Second))

	// Tampered
	assert.Nil(t, openSession(encryptionSvc, token+"x", time.Hour))

	// Wrong key
	otherSvc, err := encryption.NewService(generateTestKey())
	require.NoError(t, err)
	assert.Nil(t, openSession(otherSvc, token, time.Hour))
}

func TestService_Register(t *testing.T) {
	service, repos := setupTestService(t)

	user, err := service.Register("alice", "Alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "hunter2", user.PasswordHash)

	// Mirror owner exists and the user is a member
	owner, err := repos.Owners.FindByName("alice")
	require.NoError(t, err)
	member, err := repos.Memberships.Exists(user.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestService_Register_Validation(t *testing.T) {
	service, _ := setupTestService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "pw"},
		{name: "username with space", username: "bad name", password: "pw"},
		{name: "username with slash", username: "a/b", password: "pw"},
		{name: "empty password", username: "alice", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(tt.username, "Name", tt.password)
			var validationErr *domain.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	// Dots are allowed so usernames can look like hostnames
	_, err := service.Register("alice.dev", "Alice", "pw")
	assert.NoError(t, err)
}

func TestService_Register_Conflicts(t *testing.T) {
	service, repos := setupTestService(t)

	_, err := service.Register("alice", "Alice", "pw")
	require.NoError(t, err)

	// Same username again
	_, err = service.Register("alice", "Other", "pw")
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Owner name already taken by an organization: registration must fail
	// atomically, leaving no half-created user behind
	org := domain.NewOwner("acme")
	_, err = repos.Owners.Create(&org)
	require.NoError(t, err)

	_, err = service.Register("acme", "Acme Impersonator", "pw")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repos.Users.FindByUsername("acme")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_LoginAndVerifySession(t *testing.T) {
	service, _ := setupTestService(t)

	user, err := service.Register("alice", "Alice", "hunter2")
	require.NoError(t, err)

	token, err := service.Login("alice", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := service.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "alice", principal.Username)
}

func TestService_Login_Rejections(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.Register("alice", "Alice", "hunter2")
	require.NoError(t, err)

	// Wrong password and unknown user look the same
	_, err = service.Login("alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = service.Login("ghost", "hunter2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_VerifySession_Rejections(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.VerifySession("garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Valid token for a user that does not exist
	encryptionSvc, err := encryption.NewService(generateTestKey())
	require.NoError(t, err)
	foreign, err := MintSession(encryptionSvc, uuid.New(), "ghost")
	require.NoError(t, err)
	_, err = service.VerifySession(foreign)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_VerifyProjectToken(t *testing.T) {
	service, repos := setupTestService(t)

	_, err := service.Register("alice", "Alice", "pw")
	require.NoError(t, err)

	owner, err := repos.Owners.FindByName("alice")
	require.NoError(t, err)
	project := domain.NewProject(owner.ID, owner.Name, "blog", nil)
	created, err := repos.Projects.Create(&project)
	require.NoError(t, err)

	plaintext, err := GenerateToken()
	require.NoError(t, err)
	hash, err := GenerateHash(plaintext)
	require.NoError(t, err)
	err = repos.Tokens.Create(&domain.Token{ID: uuid.New(), ProjectID: created.ID, Hash: hash})
	require.NoError(t, err)

	ok, err := service.VerifyProjectToken(created.ID, plaintext)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.VerifyProjectToken(created.ID, "wrong-token")
	require.NoError(t, err)
	assert.False(t, ok)

	// Project with no tokens verifies nothing
	empty := domain.NewProject(owner.ID, owner.Name, "shop", nil)
	emptyCreated, err := repos.Projects.Create(&empty)
	require.NoError(t, err)
	ok, err = service.VerifyProjectToken(emptyCreated.ID, plaintext)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_AuthorizeOwner(t *testing.T) {
	service, repos := setupTestService(t)

	user, err := service.Register("alice", "Alice", "pw")
	require.NoError(t, err)

	org := domain.NewOwner("acme")
	created, err := repos.Owners.Create(&org)
	require.NoError(t, err)

	principal := domain.Principal{UserID: user.ID, Username: user.Username}

	// Member of the mirror owner
	assert.NoError(t, service.AuthorizeOwner(principal, "alice"))

	// Not a member of acme
	assert.ErrorIs(t, service.AuthorizeOwner(principal, "acme"), domain.ErrUnauthorized)

	// Until added
	err = repos.Memberships.Create(&domain.Membership{UserID: user.ID, OwnerID: created.ID})
	require.NoError(t, err)
	assert.NoError(t, service.AuthorizeOwner(principal, "acme"))

	// Unknown owner
	assert.ErrorIs(t, service.AuthorizeOwner(principal, "ghost"), domain.ErrUnauthorized)

	// Admin bypasses membership
	assert.NoError(t, service.AuthorizeOwner(domain.AdminPrincipal(), "acme"))
}

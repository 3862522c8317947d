package repository

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/slipway-sh/slipway/db"
	"github.com/slipway-sh/slipway/domain"
	"github.com/slipway-sh/slipway/encryption"
)

// setupTestDB creates an in-memory database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := db.InitDatabase(db.DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	if err := db.AutoMigrateAll(database); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return database
}

// generateTestKey generates a new Fernet key for testing
func generateTestKey() string {
	var key fernet.Key
	if _, err := rand.Read(key[:]); err != nil {
		panic(fmt.Sprintf("failed to generate test encryption key: %v", err))
	}
	return key.Encode()
}

// setupTestEncryption creates a test encryption service
func setupTestEncryption(t *testing.T) *encryption.Service {
	t.Helper()

	encryptionSvc, err := encryption.NewService(generateTestKey())
	if err != nil {
		t.Fatalf("Failed to create test encryption service: %v", err)
	}
	return encryptionSvc
}

// setupTestRepositories wires all repositories onto a fresh database
func setupTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	return NewRepositories(setupTestDB(t), setupTestEncryption(t))
}

// seedOwner creates an owner row and returns it
func seedOwner(t *testing.T, repos *Repositories, name string) *domain.Owner {
	t.Helper()

	owner := domain.NewOwner(name)
	created, err := repos.Owners.Create(&owner)
	require.NoError(t, err)
	return created
}

// seedProject creates a project row under the given owner and returns it
func seedProject(t *testing.T, repos *Repositories, owner *domain.Owner, name string) *domain.Project {
	t.Helper()

	project := domain.NewProject(owner.ID, owner.Name, name, nil)
	created, err := repos.Projects.Create(&project)
	require.NoError(t, err)
	return created
}

// seedUser creates a user row and returns it
func seedUser(t *testing.T, repos *Repositories, username string) *domain.User {
	t.Helper()

	user := domain.NewUser(username, "Test User", "argon2id$not-a-real-hash")
	created, err := repos.Users.Create(&user)
	require.NoError(t, err)
	return created
}

package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// createLegacySubdomainsSchema builds the routing table under its original
// name, as databases created before migration 1 had it.
func createLegacySubdomainsSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	err := db.Exec(`
		CREATE TABLE subdomains (
			id           char(36) PRIMARY KEY,
			project_id   char(36) NOT NULL,
			name         text NOT NULL UNIQUE,
			port         integer NOT NULL,
			container_ip text NOT NULL,
			created_at   datetime,
			updated_at   datetime
		)
	`).Error
	require.NoError(t, err)
}

// TestMigration0001RenameSubdomainsToDomains tests migration 1
func TestMigration0001RenameSubdomainsToDomains(t *testing.T) {
	db, err := InitDatabase(DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&MigrationModel{})
	require.NoError(t, err)

	createLegacySubdomainsSchema(t, db)

	// Insert routing rows under the old table name
	projectID := uuid.New()
	routeID1 := uuid.New()
	routeID2 := uuid.New()

	err = db.Exec(`
		INSERT INTO subdomains (id, project_id, name, port, container_ip, created_at, updated_at)
		VALUES
			(?, ?, 'alice-blog', 80, '172.18.0.2', datetime('now'), datetime('now')),
			(?, ?, 'alice-shop', 80, '172.18.0.3', datetime('now'), datetime('now'))
	`, routeID1, projectID, routeID2, projectID).Error
	require.NoError(t, err)

	// Apply migration 1
	err = RunMigrations(db, 1)
	require.NoError(t, err)

	// Verify the table was renamed
	assert.False(t, db.Migrator().HasTable("subdomains"), "subdomains table should not exist after migration")
	assert.True(t, db.Migrator().HasTable("domains"), "domains table should exist after migration")

	// Verify data was carried over
	type Result struct {
		ID          string
		Name        string
		ContainerIP string
	}

	var results []Result
	err = db.Raw("SELECT id, name, container_ip FROM domains ORDER BY name").Scan(&results).Error
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, routeID1.String(), results[0].ID)
	assert.Equal(t, "alice-blog", results[0].Name)
	assert.Equal(t, "172.18.0.2", results[0].ContainerIP)

	assert.Equal(t, routeID2.String(), results[1].ID)
	assert.Equal(t, "alice-shop", results[1].Name)

	// Verify migration was recorded
	var migrationCount int64
	err = db.Model(&MigrationModel{}).
		Where("name = ?", "0001_rename_subdomains_to_domains").
		Count(&migrationCount).
		Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), migrationCount, "Migration should be recorded once")

	// Verify idempotency - running again should not fail
	err = RunMigrations(db, 1)
	assert.NoError(t, err, "Migration should be idempotent")

	err = db.Model(&MigrationModel{}).
		Where("name = ?", "0001_rename_subdomains_to_domains").
		Count(&migrationCount).
		Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), migrationCount, "Migration should still be recorded only once")
}

// TestAutoMigrateAllFreshDatabase tests AutoMigrateAll on a fresh database
func TestAutoMigrateAllFreshDatabase(t *testing.T) {
	db, err := InitDatabase(DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	err = AutoMigrateAll(db)
	require.NoError(t, err)

	// Verify all tables exist
	for _, model := range AllModels() {
		assert.True(t, db.Migrator().HasTable(model), "table for %T should exist", model)
	}

	// The rename migration is a no-op on a fresh database but is still recorded
	var count int64
	err = db.Model(&MigrationModel{}).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "Should have 1 migration record")

	// The legacy table name must not come back
	assert.False(t, db.Migrator().HasTable("subdomains"))
}

// TestAutoMigrateAllUpgradedDatabase tests AutoMigrateAll on a database
// created before the domains rename
func TestAutoMigrateAllUpgradedDatabase(t *testing.T) {
	db, err := InitDatabase(DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	createLegacySubdomainsSchema(t, db)

	projectID := uuid.New()
	routeID := uuid.New()
	err = db.Exec(`
		INSERT INTO subdomains (id, project_id, name, port, container_ip, created_at, updated_at)
		VALUES (?, ?, 'bob-api', 80, '172.18.0.5', datetime('now'), datetime('now'))
	`, routeID, projectID).Error
	require.NoError(t, err)

	err = AutoMigrateAll(db)
	require.NoError(t, err)

	assert.False(t, db.Migrator().HasTable("subdomains"))
	assert.True(t, db.Migrator().HasTable(&DomainModel{}))

	// Row survives the rename and remains readable through the model
	var domain DomainModel
	err = db.Where("name = ?", "bob-api").First(&domain).Error
	require.NoError(t, err)
	assert.Equal(t, routeID, domain.ID)
	assert.Equal(t, "172.18.0.5", domain.ContainerIP)
	assert.Equal(t, 80, domain.Port)
}

// TestAutoMigrateAllIdempotent verifies repeated startup migration is safe
func TestAutoMigrateAllIdempotent(t *testing.T) {
	db, err := InitDatabase(DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	err = AutoMigrateAll(db)
	require.NoError(t, err)

	err = AutoMigrateAll(db)
	require.NoError(t, err)

	var count int64
	err = db.Model(&MigrationModel{}).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

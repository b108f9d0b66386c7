package migrations

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db
}

func TestAllMigrations_ReturnsExpectedCount(t *testing.T) {
	migrations := AllMigrations()
	assert.Len(t, migrations, 1)
	assert.Equal(t, "001", migrations[0].Version)
}

func TestMigration001Schema_UpCreatesAllTables(t *testing.T) {
	db := setupTestDB(t)
	m := migration001Schema()

	require.NoError(t, m.Up(db))

	for _, table := range []string{
		"manufacturers", "product_series", "products",
		"documents", "chunks", "embeddings", "error_codes",
		"images", "links", "videos",
		"queue_items", "stage_statuses", "pipeline_errors", "audit_logs",
	} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s to exist", table)
	}
}

func TestMigration001Schema_DownDropsAllTables(t *testing.T) {
	db := setupTestDB(t)
	m := migration001Schema()

	require.NoError(t, m.Up(db))
	require.NoError(t, m.Down(db))

	assert.False(t, db.Migrator().HasTable("documents"))
	assert.False(t, db.Migrator().HasTable("manufacturers"))
}

func TestMigrator_ApplyAndStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	migrator := NewMigrator(db, nil)
	migrator.RegisterAll(AllMigrations())

	require.NoError(t, migrator.Up(ctx))

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)

	pending, err := migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

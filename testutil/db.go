package testutil

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tournament-rewards-system/models"
)

// NewTestDB creates an in-memory SQLite database for testing purposes.
// It auto-migrates the provided models and ensures the underlying connection
// is closed when the test finishes. The pool is pinned to one connection so
// concurrent transactions serialize instead of seeing separate databases.
func NewTestDB(t *testing.T, tables ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if len(tables) > 0 {
		if err := db.AutoMigrate(tables...); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// NewFullDB builds a test database with the complete schema.
func NewFullDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewTestDB(t,
		&models.Tournament{},
		&models.Enrollment{},
		&models.Session{},
		&models.Ranking{},
		&models.Participation{},
		&models.Badge{},
		&models.User{},
		&models.SpecializationLicense{},
	)
}

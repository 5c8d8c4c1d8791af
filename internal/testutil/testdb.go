package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"buildledger/internal/database"
)

// NewTestDB opens a file-backed SQLite database in a temp dir with all models
// migrated. The database is closed when the test completes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "buildledger_test.db")
	db, err := database.ConnectWithLogger(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func NewTestTransactor(t *testing.T, db *gorm.DB) *database.Transactor {
	t.Helper()
	tx, err := database.NewTransactor(db, database.TransactionsAuto, 10*time.Second)
	if err != nil {
		t.Fatalf("failed to create transactor: %v", err)
	}
	return tx
}

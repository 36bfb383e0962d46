// Package dbtest — общая in-memory БД для тестов
package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"flowershop/internal/config"
	"flowershop/internal/db"
)

// Open creates a migrated in-memory SQLite database that lives as long as the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(config.DB{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

package services

import (
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/pkg/logger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testSetupOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.Employee{},
		&models.Session{},
		&models.LoanApplication{},
		&models.TransferRequest{},
		&models.Activity{},
		&models.AuditLog{},
		&models.AuditExportCursor{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	return db
}

// waitForCount polls until the query returns the expected row count. The
// audit pipeline writes asynchronously, so tests cannot assert immediately.
func waitForCount(t *testing.T, db *gorm.DB, model interface{}, where string, args []interface{}, expected int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		query := db.Model(model)
		if where != "" {
			query = query.Where(where, args...)
		}
		if err := query.Count(&count).Error; err != nil {
			t.Fatalf("failed counting rows: %v", err)
		}
		if count == expected {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d rows, still %d after waiting", expected, count)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package database

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsAdoptsLegacySubmissionKey(testContext *testing.T) {
	database := openMigrationDatabase(testContext)

	legacyValue := `[{"id":1,"name":"Ada","email":"ada@example.com","message":"Hi","timestamp":"2024-01-01T00:00:00.000Z","status":"submitted"}]`
	if err := database.Create(&kvstore.Entry{Key: legacySubmissionKey, Value: legacyValue, UpdatedAtSeconds: 1}).Error; err != nil {
		testContext.Fatalf("failed to insert legacy entry: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var adopted kvstore.Entry
	if err := database.Where("slot_key = ?", submissions.DefaultKey).Take(&adopted).Error; err != nil {
		testContext.Fatalf("expected adopted entry: %v", err)
	}
	if adopted.Value != legacyValue {
		testContext.Fatalf("unexpected adopted value %q", adopted.Value)
	}

	var legacyCount int64
	if err := database.Model(&kvstore.Entry{}).Where("slot_key = ?", legacySubmissionKey).Count(&legacyCount).Error; err != nil {
		testContext.Fatalf("failed to count legacy entries: %v", err)
	}
	if legacyCount != 0 {
		testContext.Fatalf("expected legacy entry to be removed")
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationAdoptLegacySubmissionKey).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsKeepsCurrentSubmissionValue(testContext *testing.T) {
	database := openMigrationDatabase(testContext)

	entries := []kvstore.Entry{
		{Key: legacySubmissionKey, Value: `[{"id":1}]`, UpdatedAtSeconds: 1},
		{Key: submissions.DefaultKey, Value: `[{"id":2}]`, UpdatedAtSeconds: 2},
	}
	if err := database.Create(&entries).Error; err != nil {
		testContext.Fatalf("failed to insert entries: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var current kvstore.Entry
	if err := database.Where("slot_key = ?", submissions.DefaultKey).Take(&current).Error; err != nil {
		testContext.Fatalf("expected current entry: %v", err)
	}
	if current.Value != `[{"id":2}]` {
		testContext.Fatalf("expected current value to win, got %q", current.Value)
	}
}

func TestApplyMigrationsRunsOnce(testContext *testing.T) {
	database := openMigrationDatabase(testContext)

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}
	// A legacy value written after the migration ran stays where it is.
	if err := database.Create(&kvstore.Entry{Key: legacySubmissionKey, Value: "[]", UpdatedAtSeconds: 1}).Error; err != nil {
		testContext.Fatalf("failed to insert legacy entry: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}

	var legacyCount int64
	if err := database.Model(&kvstore.Entry{}).Where("slot_key = ?", legacySubmissionKey).Count(&legacyCount).Error; err != nil {
		testContext.Fatalf("failed to count legacy entries: %v", err)
	}
	if legacyCount != 1 {
		testContext.Fatalf("expected the migration to run only once")
	}
}

func TestOpenSQLiteServesGormSlot(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "portfolio.db")
	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	testContext.Cleanup(func() { _ = Close(database) })

	slot, err := kvstore.NewGormSlot(kvstore.GormSlotConfig{Database: database})
	if err != nil {
		testContext.Fatalf("failed to build slot: %v", err)
	}
	if err := slot.Put(testContext.Context(), submissions.DefaultKey, "[]"); err != nil {
		testContext.Fatalf("failed to write slot: %v", err)
	}
	value, found, err := slot.Get(testContext.Context(), submissions.DefaultKey)
	if err != nil || !found || value != "[]" {
		testContext.Fatalf("unexpected slot read %q found=%v err=%v", value, found, err)
	}
}

func openMigrationDatabase(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&kvstore.Entry{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func TestApplyMigrationsAdoptsLegacyValueAboveDefaultQuota(testContext *testing.T) {
	database := openMigrationDatabase(testContext)

	legacyValue := `["` + strings.Repeat("x", kvstore.DefaultQuotaBytes) + `"]`
	if err := database.Create(&kvstore.Entry{Key: legacySubmissionKey, Value: legacyValue, UpdatedAtSeconds: 1}).Error; err != nil {
		testContext.Fatalf("failed to insert legacy entry: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var adopted kvstore.Entry
	if err := database.Where("slot_key = ?", submissions.DefaultKey).Take(&adopted).Error; err != nil {
		testContext.Fatalf("expected adopted entry: %v", err)
	}
	if len(adopted.Value) != len(legacyValue) {
		testContext.Fatalf("expected the full legacy value, got %d bytes", len(adopted.Value))
	}
}

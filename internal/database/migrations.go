package database

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationAdoptLegacySubmissionKey = "2026-10-01_adopt_legacy_submission_key"

	legacySubmissionKey = "contact_submissions"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationAdoptLegacySubmissionKey, apply: adoptLegacySubmissionKey},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}

// adoptLegacySubmissionKey moves submissions stored under the snake_case key
// to the current key. An existing current value always wins.
func adoptLegacySubmissionKey(db *gorm.DB) error {
	ctx := context.Background()
	// The legacy value was already accepted by the quota it was written under.
	slot, err := kvstore.NewGormSlot(kvstore.GormSlotConfig{Database: db, QuotaBytes: math.MaxInt})
	if err != nil {
		return err
	}

	legacy, found, err := slot.Get(ctx, legacySubmissionKey)
	if err != nil || !found {
		return err
	}
	_, hasCurrent, err := slot.Get(ctx, submissions.DefaultKey)
	if err != nil {
		return err
	}
	if !hasCurrent {
		if err := slot.Put(ctx, submissions.DefaultKey, legacy); err != nil {
			return err
		}
	}
	return slot.Delete(ctx, legacySubmissionKey)
}

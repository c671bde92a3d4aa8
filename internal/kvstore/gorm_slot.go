package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("kvstore: database handle is required")

// Entry stores one durable value under its key.
type Entry struct {
	Key              string `gorm:"column:slot_key;primaryKey;size:190;not null"`
	Value            string `gorm:"column:value;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "kv_entries"
}

// GormSlotConfig configures a database-backed slot.
type GormSlotConfig struct {
	Database   *gorm.DB
	QuotaBytes int
	Clock      func() time.Time
}

// GormSlot persists values in the kv_entries table.
type GormSlot struct {
	db    *gorm.DB
	quota int
	clock func() time.Time
}

// NewGormSlot constructs a slot over an already migrated database.
func NewGormSlot(cfg GormSlotConfig) (*GormSlot, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	quota := cfg.QuotaBytes
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &GormSlot{db: cfg.Database, quota: quota, clock: clock}, nil
}

// Get loads the value stored under key.
func (s *GormSlot) Get(ctx context.Context, key string) (string, bool, error) {
	validKey, err := ValidateKey(key)
	if err != nil {
		return "", false, err
	}
	var entry Entry
	err = s.db.WithContext(ctx).Where("slot_key = ?", validKey).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("read", err)
	}
	return entry.Value, true, nil
}

// Put upserts the value stored under key. Values above the quota are rejected
// and the previous value stays in place.
func (s *GormSlot) Put(ctx context.Context, key, value string) error {
	validKey, err := ValidateKey(key)
	if err != nil {
		return err
	}
	if err := checkQuota(validKey, value, s.quota); err != nil {
		return err
	}
	entry := Entry{
		Key:              validKey,
		Value:            value,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at_s"}),
	}).Create(&entry).Error
	if err != nil {
		return unavailable("write", err)
	}
	return nil
}

// Delete removes the value stored under key. Missing keys are ignored.
func (s *GormSlot) Delete(ctx context.Context, key string) error {
	validKey, err := ValidateKey(key)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("slot_key = ?", validKey).Delete(&Entry{}).Error; err != nil {
		return unavailable("delete", err)
	}
	return nil
}

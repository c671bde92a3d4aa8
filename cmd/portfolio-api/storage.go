package main

import (
	"github.com/UsamaUmmsi/portfolio/backend/internal/config"
	"github.com/UsamaUmmsi/portfolio/backend/internal/database"
	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
	"github.com/UsamaUmmsi/portfolio/backend/internal/logging"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"go.uber.org/zap"
)

func newLogger(appConfig config.AppConfig) (*zap.Logger, error) {
	return logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
}

// openStore builds the submission store over the configured slot driver. The
// returned close function stops the store and releases the database.
func openStore(appConfig config.AppConfig, publisher submissions.Publisher, logger *zap.Logger) (*submissions.Store, func(), error) {
	var (
		slot    kvstore.Slot
		release = func() {}
	)
	switch appConfig.StorageDriver {
	case config.StorageDriverMemory:
		slot = kvstore.NewMemorySlot(appConfig.QuotaBytes)
	default:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		gormSlot, err := kvstore.NewGormSlot(kvstore.GormSlotConfig{
			Database:   db,
			QuotaBytes: appConfig.QuotaBytes,
		})
		if err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		slot = gormSlot
		release = func() {
			if err := database.Close(db); err != nil {
				logger.Warn("database close failed", zap.Error(err))
			}
		}
	}

	store, err := submissions.NewStore(submissions.StoreConfig{
		Slot:      slot,
		Key:       appConfig.StorageKey,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		release()
	}, nil
}

package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&ChatGeneralSettings{},
		&ChatBanRule{},
		&ChatBanLists{},
		&ChatSilenceSettings{},
		&ChatLimitSettings{},
		&ChatMandatorySettings{},
		&InviteRecord{},
		&Restriction{},
		&TemporaryMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

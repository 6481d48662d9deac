package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type RestrictionRepository interface {
	Restrict(chatID, userID int64, reason string, until time.Time) error
	Lift(chatID, userID int64) error
	IsRestricted(chatID, userID int64) (bool, time.Time, error)
	CountActive() (int64, error)
}

type PostgresRestrictionRepository struct {
	db *gorm.DB
}

func NewRestrictionRepository(db *gorm.DB) RestrictionRepository {
	return &PostgresRestrictionRepository{db: db}
}

func (r *PostgresRestrictionRepository) Restrict(chatID, userID int64, reason string, until time.Time) error {
	var existing Restriction
	err := r.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row := Restriction{ChatID: chatID, UserID: userID, Reason: reason, ExpiresAt: until}
			if err := r.db.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create restriction: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing restriction: %w", err)
	}

	// An existing restriction is only ever extended, never shortened.
	updates := map[string]interface{}{}
	if until.After(existing.ExpiresAt) {
		updates["expires_at"] = until
	}
	if reason != "" && reason != existing.Reason {
		updates["reason"] = reason
	}
	if len(updates) > 0 {
		if err := r.db.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update restriction: %w", err)
		}
	}
	return nil
}

func (r *PostgresRestrictionRepository) Lift(chatID, userID int64) error {
	if err := r.db.Where("chat_id = ? AND user_id = ?", chatID, userID).Delete(&Restriction{}).Error; err != nil {
		return fmt.Errorf("failed to lift restriction: %w", err)
	}
	return nil
}

func (r *PostgresRestrictionRepository) IsRestricted(chatID, userID int64) (bool, time.Time, error) {
	var row Restriction
	err := r.db.Where("chat_id = ? AND user_id = ?", chatID, userID).
		Where("expires_at > ?", time.Now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, fmt.Errorf("failed to check restriction: %w", err)
	}
	return true, row.ExpiresAt, nil
}

func (r *PostgresRestrictionRepository) CountActive() (int64, error) {
	var count int64
	if err := r.db.Model(&Restriction{}).Where("expires_at > ?", time.Now()).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count restrictions: %w", err)
	}
	return count, nil
}

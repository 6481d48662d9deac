package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type InviteRepository interface {
	AddInvite(ctx context.Context, chatID, inviterID, invitedUserID int64) error
	CountInvitesSince(ctx context.Context, chatID, inviterID int64, since time.Time) (int, error)
	PruneBefore(ctx context.Context, cutoff time.Time) error
}

type PostgresInviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &PostgresInviteRepository{db: db}
}

func (r *PostgresInviteRepository) AddInvite(ctx context.Context, chatID, inviterID, invitedUserID int64) error {
	rec := InviteRecord{
		ChatID:        chatID,
		InviterID:     inviterID,
		InvitedUserID: invitedUserID,
		CreatedAt:     time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record invite: %w", err)
	}
	return nil
}

func (r *PostgresInviteRepository) CountInvitesSince(ctx context.Context, chatID, inviterID int64, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&InviteRecord{}).
		Where("chat_id = ? AND inviter_id = ? AND created_at >= ?", chatID, inviterID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count invites: %w", err)
	}
	return int(count), nil
}

func (r *PostgresInviteRepository) PruneBefore(ctx context.Context, cutoff time.Time) error {
	if err := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&InviteRecord{}).Error; err != nil {
		return fmt.Errorf("failed to prune invites: %w", err)
	}
	return nil
}

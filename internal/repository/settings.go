package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

// ErrNotFound is returned when a chat has no stored settings of the
// requested group. Callers treat it as "use defaults", not as a failure.
var ErrNotFound = errors.New("settings not found")

// Rule kinds as persisted in chat_ban_rules.
const (
	KindLinks           = "links"
	KindPhotos          = "photos"
	KindVideos          = "videos"
	KindAudio           = "audio"
	KindVoice           = "voice"
	KindDocuments       = "documents"
	KindStickers        = "stickers"
	KindAnimations      = "animations"
	KindForwards        = "forwards"
	KindChannelForwards = "channel_forwards"
	KindTextPatterns    = "text_patterns"
)

type SettingsStore interface {
	LoadGeneralSettings(ctx context.Context, chatID int64) (*rules.GeneralSettings, error)
	LoadBanSettings(ctx context.Context, chatID int64) (*rules.BanSettings, error)
	LoadSilenceSettings(ctx context.Context, chatID int64) (*rules.SilenceSettings, error)
	LoadLimitSettings(ctx context.Context, chatID int64) (*rules.LimitSettings, error)
	LoadMandatorySettings(ctx context.Context, chatID int64) (*rules.MandatorySettings, error)
}

type PostgresSettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) SettingsStore {
	return &PostgresSettingsStore{db: db}
}

func (s *PostgresSettingsStore) LoadGeneralSettings(ctx context.Context, chatID int64) (*rules.GeneralSettings, error) {
	var row ChatGeneralSettings
	if err := s.db.WithContext(ctx).First(&row, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load general settings: %w", err)
	}
	return &rules.GeneralSettings{
		SilentMode:         row.SilentMode,
		WarnAutoDeleteSec:  row.WarnAutoDeleteSec,
		MinWordsPerMessage: row.MinWordsPerMessage,
		MaxWordsPerMessage: row.MaxWordsPerMessage,
	}, nil
}

func (s *PostgresSettingsStore) LoadBanSettings(ctx context.Context, chatID int64) (*rules.BanSettings, error) {
	var ruleRows []ChatBanRule
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Find(&ruleRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load ban rules: %w", err)
	}

	var lists ChatBanLists
	err := s.db.WithContext(ctx).First(&lists, "chat_id = ?", chatID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load ban lists: %w", err)
	}
	if len(ruleRows) == 0 && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	out := &rules.BanSettings{
		DomainWhitelist: lists.DomainWhitelist,
		DomainBlacklist: lists.DomainBlacklist,
		BlockedWords:    lists.BlockedWords,
	}
	for _, row := range ruleRows {
		rule := toBanRule(row)
		switch row.Kind {
		case KindLinks:
			out.Links = rule
		case KindPhotos:
			out.Photos = rule
		case KindVideos:
			out.Videos = rule
		case KindAudio:
			out.Audio = rule
		case KindVoice:
			out.Voice = rule
		case KindDocuments:
			out.Documents = rule
		case KindStickers:
			out.Stickers = rule
		case KindAnimations:
			out.Animations = rule
		case KindForwards:
			out.Forwards = rule
		case KindChannelForwards:
			out.ChannelForwards = rule
		case KindTextPatterns:
			out.TextPatterns = rule
		}
	}
	return out, nil
}

func toBanRule(row ChatBanRule) rules.BanRule {
	mode := rules.ScheduleAll
	if row.ScheduleMode == string(rules.ScheduleCustom) {
		mode = rules.ScheduleCustom
	}
	return rules.BanRule{
		Enabled: row.Enabled,
		Schedule: rules.Schedule{
			Mode:        mode,
			StartMinute: row.StartMinute,
			EndMinute:   row.EndMinute,
		},
	}
}

func (s *PostgresSettingsStore) LoadSilenceSettings(ctx context.Context, chatID int64) (*rules.SilenceSettings, error) {
	var row ChatSilenceSettings
	if err := s.db.WithContext(ctx).First(&row, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load silence settings: %w", err)
	}
	return &rules.SilenceSettings{
		Windows: []rules.QuietWindow{
			{Enabled: row.Window1On, StartMinute: row.Window1Start, EndMinute: row.Window1End},
			{Enabled: row.Window2On, StartMinute: row.Window2Start, EndMinute: row.Window2End},
			{Enabled: row.Window3On, StartMinute: row.Window3Start, EndMinute: row.Window3End},
		},
		EmergencyLock: row.EmergencyLock,
	}, nil
}

func (s *PostgresSettingsStore) LoadLimitSettings(ctx context.Context, chatID int64) (*rules.LimitSettings, error) {
	var row ChatLimitSettings
	if err := s.db.WithContext(ctx).First(&row, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load limit settings: %w", err)
	}
	return &rules.LimitSettings{
		MessagesPerWindow:      row.MessagesPerWindow,
		WindowMinutes:          row.WindowMinutes,
		DuplicateMessages:      row.DuplicateMessages,
		DuplicateWindowMinutes: row.DuplicateWindowMinutes,
	}, nil
}

func (s *PostgresSettingsStore) LoadMandatorySettings(ctx context.Context, chatID int64) (*rules.MandatorySettings, error) {
	var row ChatMandatorySettings
	if err := s.db.WithContext(ctx).First(&row, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load mandatory settings: %w", err)
	}
	return &rules.MandatorySettings{
		RequiredInvites:   row.RequiredInvites,
		RequiredChannelID: row.RequiredChannelID,
	}, nil
}

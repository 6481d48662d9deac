package repository

import (
	"time"

	"github.com/lib/pq"
)

type ChatGeneralSettings struct {
	ChatID             int64 `gorm:"primaryKey;autoIncrement:false"`
	SilentMode         bool  `gorm:"default:false"`
	WarnAutoDeleteSec  int   `gorm:"default:60"`
	MinWordsPerMessage int   `gorm:"default:0"`
	MaxWordsPerMessage int   `gorm:"default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ChatBanRule holds one content rule per row, keyed by (chat, kind).
// Start/end are UTC minute-of-day offsets; end < start spans midnight.
type ChatBanRule struct {
	ChatID       int64  `gorm:"primaryKey;autoIncrement:false"`
	Kind         string `gorm:"primaryKey;size:32"`
	Enabled      bool   `gorm:"default:false"`
	ScheduleMode string `gorm:"size:8;default:all"`
	StartMinute  int    `gorm:"default:0"`
	EndMinute    int    `gorm:"default:0"`
	UpdatedAt    time.Time
}

type ChatBanLists struct {
	ChatID          int64          `gorm:"primaryKey;autoIncrement:false"`
	DomainWhitelist pq.StringArray `gorm:"type:text[]"`
	DomainBlacklist pq.StringArray `gorm:"type:text[]"`
	BlockedWords    pq.StringArray `gorm:"type:text[]"`
	UpdatedAt       time.Time
}

type ChatSilenceSettings struct {
	ChatID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Window1On     bool  `gorm:"default:false"`
	Window1Start  int   `gorm:"default:0"`
	Window1End    int   `gorm:"default:0"`
	Window2On     bool  `gorm:"default:false"`
	Window2Start  int   `gorm:"default:0"`
	Window2End    int   `gorm:"default:0"`
	Window3On     bool  `gorm:"default:false"`
	Window3Start  int   `gorm:"default:0"`
	Window3End    int   `gorm:"default:0"`
	EmergencyLock bool  `gorm:"default:false"`
	UpdatedAt     time.Time
}

type ChatLimitSettings struct {
	ChatID                 int64 `gorm:"primaryKey;autoIncrement:false"`
	MessagesPerWindow      int   `gorm:"default:0"`
	WindowMinutes          int   `gorm:"default:0"`
	DuplicateMessages      int   `gorm:"default:0"`
	DuplicateWindowMinutes int   `gorm:"default:0"`
	UpdatedAt              time.Time
}

type ChatMandatorySettings struct {
	ChatID            int64 `gorm:"primaryKey;autoIncrement:false"`
	RequiredInvites   int   `gorm:"default:0"`
	RequiredChannelID int64 `gorm:"default:0"`
	UpdatedAt         time.Time
}

// InviteRecord tracks one invited member, attributed to the inviter.
type InviteRecord struct {
	ID            int64 `gorm:"primaryKey"`
	ChatID        int64 `gorm:"not null;index:idx_invites_chat_inviter,priority:1"`
	InviterID     int64 `gorm:"not null;index:idx_invites_chat_inviter,priority:2"`
	InvitedUserID int64 `gorm:"not null"`
	CreatedAt     time.Time
}

// Restriction is a bot-enforced member restriction. The platform offers no
// native restrict call, so the bot deletes messages from restricted
// members until the row expires.
type Restriction struct {
	ID        uint      `gorm:"primaryKey"`
	ChatID    int64     `gorm:"index:idx_restrictions_chat_user"`
	UserID    int64     `gorm:"index:idx_restrictions_chat_user"`
	Reason    string    `gorm:"size:64"`
	ExpiresAt time.Time `gorm:"index"`
}

type TemporaryMessage struct {
	ID        int64     `gorm:"primaryKey"`
	ChatID    int64     `gorm:"not null"`
	MessageID string    `gorm:"not null"`
	DeleteAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

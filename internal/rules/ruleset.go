package rules

import "time"

// ChatRuleSet is an immutable per-fetch snapshot of one chat's moderation
// rules. It is replaced wholesale on refresh, never mutated in place.
type ChatRuleSet struct {
	ChatID    int64
	General   GeneralSettings
	Bans      BanSettings
	Silence   SilenceSettings
	Limits    LimitSettings
	Mandatory MandatorySettings
	FetchedAt time.Time
}

type GeneralSettings struct {
	SilentMode         bool
	WarnAutoDeleteSec  int
	MinWordsPerMessage int
	MaxWordsPerMessage int
}

// BanSettings groups the content rules. The domain whitelist wins over
// both the domain blacklist and the blanket link rule.
type BanSettings struct {
	Links           BanRule
	Photos          BanRule
	Videos          BanRule
	Audio           BanRule
	Voice           BanRule
	Documents       BanRule
	Stickers        BanRule
	Animations      BanRule
	Forwards        BanRule
	ChannelForwards BanRule
	TextPatterns    BanRule

	DomainWhitelist []string
	DomainBlacklist []string
	BlockedWords    []string
}

type QuietWindow struct {
	Enabled     bool
	StartMinute int
	EndMinute   int
}

type SilenceSettings struct {
	Windows       []QuietWindow // up to three
	EmergencyLock bool
}

// QuietAt reports whether the chat is quiet for non-exempt senders.
func (s SilenceSettings) QuietAt(now time.Time) bool {
	if s.EmergencyLock {
		return true
	}
	minute := MinuteOfDay(now)
	for _, w := range s.Windows {
		if w.Enabled && InWindow(w.StartMinute, w.EndMinute, minute) {
			return true
		}
	}
	return false
}

// LimitSettings configure the sliding-window counters. A zero limit or
// window disables the corresponding check.
type LimitSettings struct {
	MessagesPerWindow      int
	WindowMinutes          int
	DuplicateMessages      int
	DuplicateWindowMinutes int
}

type MandatorySettings struct {
	RequiredInvites   int
	RequiredChannelID int64 // 0 disables the channel check
}

// Defaults returns the fail-open snapshot used when the settings store is
// unreachable and no earlier snapshot exists: every restrictive rule off.
func Defaults(chatID int64) *ChatRuleSet {
	return &ChatRuleSet{
		ChatID:    chatID,
		FetchedAt: time.Time{},
	}
}

package botapi

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MemberStatus is the sender's standing in a chat or channel, as reported
// by a real-time platform lookup.
type MemberStatus string

const (
	StatusOwner  MemberStatus = "owner"
	StatusAdmin  MemberStatus = "admin"
	StatusMember MemberStatus = "member"
	StatusLeft   MemberStatus = "left"
	StatusKicked MemberStatus = "kicked"
	StatusNone   MemberStatus = "none"
)

func (s MemberStatus) IsMember() bool {
	switch s {
	case StatusOwner, StatusAdmin, StatusMember:
		return true
	}
	return false
}

type SendOptions struct {
	ParseMode string
	Silent    bool
}

// Client is the narrow platform surface the enforcement core talks to.
// Every method may fail with a *RateLimitError carrying a retry-after
// hint, which the dispatch throttle consumes.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (messageID string, err error)
	DeleteMessage(ctx context.Context, messageID string) error
	RestrictMember(ctx context.Context, chatID, userID int64, reason string, until time.Time) error
	GetChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error)
}

// RateLimitError is a 429-equivalent response from the platform.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by platform, retry after %s", e.RetryAfter)
}

// AsRateLimit unwraps a platform rate-limit error if present.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

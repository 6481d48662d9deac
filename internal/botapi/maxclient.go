package botapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	maxbot "github.com/max-messenger/max-bot-api-client-go"

	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
)

// defaultRetryAfter is used when the platform rate limits us without a
// usable retry hint.
const defaultRetryAfter = 5 * time.Second

// MaxClient adapts the MAX messenger API to the Client interface. The
// platform has no native per-member mute, so RestrictMember records the
// restriction locally; the rule engine deletes restricted members'
// messages as they arrive.
type MaxClient struct {
	logger       *slog.Logger
	bot          *maxbot.Api
	restrictions repository.RestrictionRepository
}

func NewMaxClient(logger *slog.Logger, bot *maxbot.Api, restrictions repository.RestrictionRepository) *MaxClient {
	return &MaxClient{logger: logger, bot: bot, restrictions: restrictions}
}

func (c *MaxClient) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (string, error) {
	msg := maxbot.NewMessage()
	msg.SetChat(chatID)
	msg.SetText(text)
	if opts.ParseMode != "" {
		msg.SetFormat(opts.ParseMode)
	}
	if opts.Silent {
		msg.SetNotify(false)
	}

	respMsg, err := c.bot.Messages.SendWithResult(ctx, msg)
	if err != nil {
		return "", wrapPlatformError(fmt.Errorf("failed to send message: %w", err))
	}
	if respMsg == nil || respMsg.Body.Mid == "" {
		return "", fmt.Errorf("message sent but id is missing in response")
	}
	return respMsg.Body.Mid, nil
}

func (c *MaxClient) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := c.bot.Messages.DeleteMessage(ctx, messageID); err != nil {
		return wrapPlatformError(fmt.Errorf("failed to delete message: %w", err))
	}
	return nil
}

func (c *MaxClient) RestrictMember(_ context.Context, chatID, userID int64, reason string, until time.Time) error {
	if err := c.restrictions.Restrict(chatID, userID, reason, until); err != nil {
		return fmt.Errorf("failed to record restriction: %w", err)
	}
	c.logger.Info("member restricted",
		"chat_id", chatID, "user_id", userID, "reason", reason, "until", until)
	return nil
}

// GetChatMember resolves a user's standing via the admin list. The MAX
// API exposes no cheap single-member lookup, so non-admins are assumed
// to be plain members; callers that need leave detection should treat
// StatusMember as best effort.
func (c *MaxClient) GetChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error) {
	adminList, err := c.bot.Chats.GetChatAdmins(ctx, chatID)
	if err != nil {
		return StatusNone, wrapPlatformError(fmt.Errorf("failed to get chat admins: %w", err))
	}
	for _, member := range adminList.Members {
		if member.UserId != userID {
			continue
		}
		if member.IsOwner {
			return StatusOwner, nil
		}
		return StatusAdmin, nil
	}
	return StatusMember, nil
}

func wrapPlatformError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "too.many.requests") {
		return fmt.Errorf("%w: %w", &RateLimitError{RetryAfter: defaultRetryAfter}, err)
	}
	return err
}

package evaluators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/messages"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

// InviteCounter reads how many members the sender has invited since the
// rolling reset point. Invite attribution itself is owned elsewhere.
type InviteCounter interface {
	CountInvitesSince(ctx context.Context, chatID, inviterID int64, since time.Time) (int, error)
}

// MemberLookup resolves the sender's standing in the required channel.
// The result is never cached: membership can change instantly.
type MemberLookup interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (botapi.MemberStatus, error)
}

// MembershipGate checks the two mandatory-membership conditions. It runs
// for admins too; only owners bypass it, and the engine handles that.
// Collaborator failures fail open and are logged.
type MembershipGate struct {
	logger      *slog.Logger
	invites     InviteCounter
	members     MemberLookup
	resetPeriod time.Duration
	now         func() time.Time
}

func NewMembershipGate(logger *slog.Logger, invites InviteCounter, members MemberLookup, resetPeriod time.Duration) *MembershipGate {
	return &MembershipGate{
		logger:      logger,
		invites:     invites,
		members:     members,
		resetPeriod: resetPeriod,
		now:         time.Now,
	}
}

func (g *MembershipGate) Name() string { return "membership_gate" }

func (g *MembershipGate) Evaluate(ctx context.Context, upd *engine.Update, rs *rules.ChatRuleSet, _ bool) (*engine.Verdict, error) {
	m := rs.Mandatory
	v := &engine.Verdict{}

	if m.RequiredInvites > 0 && g.invites != nil {
		since := g.now().Add(-g.resetPeriod)
		count, err := g.invites.CountInvitesSince(ctx, upd.ChatID, upd.FromUserID, since)
		if err != nil {
			g.logger.Warn("Invite count lookup failed, allowing message",
				"chat_id", upd.ChatID, "user_id", upd.FromUserID, "error", err)
		} else if count < m.RequiredInvites {
			v.Violations = append(v.Violations, engine.Violation{
				Category: "mandatory_invites",
				Reason:   fmt.Sprintf(messages.MsgMandatoryInvites, m.RequiredInvites, count),
			})
		}
	}

	if m.RequiredChannelID != 0 && g.members != nil {
		status, err := g.members.GetChatMember(ctx, m.RequiredChannelID, upd.FromUserID)
		if err != nil {
			g.logger.Warn("Channel membership lookup failed, allowing message",
				"chat_id", upd.ChatID, "user_id", upd.FromUserID, "channel_id", m.RequiredChannelID, "error", err)
		} else if !status.IsMember() {
			v.Violations = append(v.Violations, engine.Violation{
				Category: "mandatory_channel",
				Reason:   messages.MsgMandatoryChannel,
			})
		}
	}

	return v, nil
}

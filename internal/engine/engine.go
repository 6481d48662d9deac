package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SeyyedYousef/Firewall-sub001/internal/messages"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

// RuleSource yields the current rule snapshot for a chat. It never fails;
// the settings cache degrades to stale or default snapshots on its own.
type RuleSource interface {
	Prime(ctx context.Context, chatID int64) *rules.ChatRuleSet
}

// RestrictionChecker reports whether a sender is currently restricted.
type RestrictionChecker interface {
	IsRestricted(chatID, userID int64) (bool, time.Time, error)
}

// Engine turns one inbound update into an ordered action list. The
// evaluation sequence is fixed: counters, membership, quiet hours,
// content rules, rate thresholds. The first deletion-warranting step
// wins; later steps are skipped so a message is deleted at most once.
type Engine struct {
	logger       *slog.Logger
	ruleSource   RuleSource
	restrictions RestrictionChecker
	tracker      RateTracker
	membership   Evaluator
	quiet        Evaluator
	content      Evaluator
	tracer       trace.Tracer
}

func New(
	logger *slog.Logger,
	ruleSource RuleSource,
	restrictions RestrictionChecker,
	tracker RateTracker,
	membership Evaluator,
	quiet Evaluator,
	content Evaluator,
) *Engine {
	return &Engine{
		logger:       logger,
		ruleSource:   ruleSource,
		restrictions: restrictions,
		tracker:      tracker,
		membership:   membership,
		quiet:        quiet,
		content:      content,
		tracer:       otel.Tracer("engine"),
	}
}

func (e *Engine) Process(ctx context.Context, upd *Update) []Action {
	ctx, span := e.tracer.Start(ctx, "Engine.Process")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat_id", upd.ChatID),
		attribute.Int64("user_id", upd.FromUserID),
	)

	rs := e.ruleSource.Prime(ctx, upd.ChatID)

	// Exemption is resolved once and threaded into steps 3-5. The
	// membership gate deliberately ignores it: only owners bypass it.
	exempt := upd.IsAdmin || upd.IsOwner

	// Step 1: counters update no matter what happens next, so that a
	// deleted message still counts toward the sender's rate state.
	counts := e.tracker.Observe(upd.ChatID, upd.FromUserID, upd.Text, rs.Limits)

	var actions []Action

	if !exempt {
		restricted, until, err := e.restrictions.IsRestricted(upd.ChatID, upd.FromUserID)
		if err != nil {
			e.logger.Error("Restriction lookup failed", "chat_id", upd.ChatID, "user_id", upd.FromUserID, "error", err)
		} else if restricted {
			v := &Verdict{Violations: []Violation{{
				Category: "restricted",
				Reason:   fmt.Sprintf(messages.MsgReasonRestricted, until.UTC().Format(time.RFC822)),
			}}}
			return append(actions, e.enforce(upd, rs, v)...)
		}
	}

	// Step 2: mandatory membership, applies to admins as well.
	if !upd.IsOwner {
		v := e.run(ctx, e.membership, upd, rs, exempt)
		actions = append(actions, v.Notices...)
		if v.Violated() {
			return append(actions, e.enforce(upd, rs, v)...)
		}
	}

	// Step 3: quiet hours. Flip notices are emitted even when the
	// sender is exempt or the message survives.
	v := e.run(ctx, e.quiet, upd, rs, exempt)
	actions = append(actions, v.Notices...)
	if v.Violated() {
		return append(actions, e.enforce(upd, rs, v)...)
	}

	// Step 4: content rules.
	if !exempt {
		v := e.run(ctx, e.content, upd, rs, exempt)
		actions = append(actions, v.Notices...)
		if v.Violated() {
			return append(actions, e.enforce(upd, rs, v)...)
		}
	}

	// Step 5: rate and duplicate thresholds from the step-1 counts.
	if !exempt {
		if v := checkLimits(counts, rs.Limits); v.Violated() {
			return append(actions, e.enforce(upd, rs, v)...)
		}
	}

	return actions
}

// run isolates one evaluator: an error or panic inside it must not take
// down the rest of the pipeline or other chats' updates.
func (e *Engine) run(ctx context.Context, ev Evaluator, upd *Update, rs *rules.ChatRuleSet, exempt bool) (v *Verdict) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Evaluator panicked",
				"evaluator", ev.Name(), "chat_id", upd.ChatID, "user_id", upd.FromUserID, "panic", r)
			v = &Verdict{}
		}
	}()

	verdict, err := ev.Evaluate(ctx, upd, rs, exempt)
	if err != nil {
		e.logger.Error("Evaluator failed",
			"evaluator", ev.Name(), "chat_id", upd.ChatID, "user_id", upd.FromUserID, "error", err)
		return &Verdict{}
	}
	if verdict == nil {
		return &Verdict{}
	}
	return verdict
}

// enforce builds the composite outcome for a violated verdict: exactly
// one deletion plus one warning listing every violated category.
func (e *Engine) enforce(upd *Update, rs *rules.ChatRuleSet, v *Verdict) []Action {
	categories := make([]string, 0, len(v.Violations))
	reasons := make([]string, 0, len(v.Violations))
	for _, violation := range v.Violations {
		categories = append(categories, violation.Category)
		reasons = append(reasons, violation.Reason)
	}

	name := upd.FromUserName
	if name == "" {
		name = "User"
	}

	e.logger.Info("Message blocked",
		"chat_id", upd.ChatID, "user_id", upd.FromUserID, "categories", categories)

	return []Action{
		{
			Type:      ActionDeleteMessage,
			ChatID:    upd.ChatID,
			MessageID: upd.MessageID,
			Reason:    strings.Join(categories, ","),
		},
		{
			Type:              ActionSendMessage,
			ChatID:            upd.ChatID,
			Text:              fmt.Sprintf(messages.MsgProhibitedContent, name, strings.Join(reasons, "; ")),
			ParseMode:         "markdown",
			Silent:            rs.General.SilentMode,
			AutoDeleteSeconds: rs.General.WarnAutoDeleteSec,
		},
	}
}

func checkLimits(counts RateCounts, lim rules.LimitSettings) *Verdict {
	v := &Verdict{}
	if lim.MessagesPerWindow > 0 && lim.WindowMinutes > 0 && counts.Messages > lim.MessagesPerWindow {
		v.Violations = append(v.Violations, Violation{
			Category: "rate_exceeded",
			Reason:   messages.MsgReasonRateLimit,
		})
	}
	if lim.DuplicateMessages > 0 && lim.DuplicateWindowMinutes > 0 &&
		counts.FingerprintTracked && counts.Duplicates > lim.DuplicateMessages {
		v.Violations = append(v.Violations, Violation{
			Category: "duplicate_exceeded",
			Reason:   messages.MsgReasonDuplicate,
		})
	}
	return v
}

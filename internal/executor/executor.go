package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/metrics"
	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
)

// Throttle paces outbound API calls and absorbs rate-limit feedback.
type Throttle interface {
	Wait(ctx context.Context) error
	Observe(st *engine.ProcessingState)
}

// Executor performs the actions the rule engine decided on. Failures
// are logged and skipped so one stuck call never blocks the rest of an
// update's actions; rate-limit hits are recorded for the throttle.
type Executor struct {
	logger   *slog.Logger
	client   botapi.Client
	throttle Throttle
	tempRepo repository.TemporaryMessageRepository
}

func New(logger *slog.Logger, client botapi.Client, throttle Throttle, tempRepo repository.TemporaryMessageRepository) *Executor {
	return &Executor{
		logger:   logger,
		client:   client,
		throttle: throttle,
		tempRepo: tempRepo,
	}
}

func (e *Executor) Execute(ctx context.Context, actions []engine.Action, st *engine.ProcessingState) {
	for _, a := range actions {
		if err := e.throttle.Wait(ctx); err != nil {
			return
		}
		if err := e.execute(ctx, a, st); err != nil {
			metrics.ExecutedActions.WithLabelValues(string(a.Type), "error").Inc()
			e.logger.Error("action failed",
				"type", a.Type, "chat_id", a.ChatID, "error", err)
			continue
		}
		metrics.ExecutedActions.WithLabelValues(string(a.Type), "ok").Inc()
	}
	e.throttle.Observe(st)
}

func (e *Executor) execute(ctx context.Context, a engine.Action, st *engine.ProcessingState) error {
	var err error
	switch a.Type {
	case engine.ActionSendMessage:
		var messageID string
		messageID, err = e.client.SendMessage(ctx, a.ChatID, a.Text, botapi.SendOptions{
			ParseMode: a.ParseMode,
			Silent:    a.Silent,
		})
		if err == nil && a.AutoDeleteSeconds > 0 {
			ttl := time.Duration(a.AutoDeleteSeconds) * time.Second
			if addErr := e.tempRepo.Add(a.ChatID, messageID, ttl); addErr != nil {
				e.logger.Error("failed to schedule message deletion",
					"chat_id", a.ChatID, "message_id", messageID, "error", addErr)
			}
		}
	case engine.ActionDeleteMessage:
		err = e.client.DeleteMessage(ctx, a.MessageID)
		if err == nil {
			metrics.DeletedMessages.WithLabelValues(a.Reason).Inc()
		}
	case engine.ActionRestrictMember:
		err = e.client.RestrictMember(ctx, a.ChatID, a.UserID, a.Reason, a.Until)
	case engine.ActionLog:
		e.logger.Info("rule engine note",
			"chat_id", a.ChatID, "user_id", a.UserID, "reason", a.Reason)
	default:
		e.logger.Warn("unknown action type", "type", a.Type)
	}

	if rl, ok := botapi.AsRateLimit(err); ok {
		st.RecordRateLimit(rl.RetryAfter, time.Now())
	}
	return err
}

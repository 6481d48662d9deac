package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/max-messenger/max-bot-api-client-go/schemes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/dispatch"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/executor"
	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
	"github.com/SeyyedYousef/Firewall-sub001/internal/votemute"
)

// Handler demultiplexes raw platform updates. Group messages are turned
// into engine updates and queued; everything else is handled inline.
type Handler struct {
	logger   *slog.Logger
	client   botapi.Client
	engine   *engine.Engine
	queue    *dispatch.Queue
	executor *executor.Executor
	invites  repository.InviteRepository
	votes    *votemute.Store
	tracer   trace.Tracer

	voteMuteDuration time.Duration
}

func New(
	logger *slog.Logger,
	client botapi.Client,
	eng *engine.Engine,
	queue *dispatch.Queue,
	exec *executor.Executor,
	invites repository.InviteRepository,
	votes *votemute.Store,
	voteMuteDuration time.Duration,
) *Handler {
	return &Handler{
		logger:           logger,
		client:           client,
		engine:           eng,
		queue:            queue,
		executor:         exec,
		invites:          invites,
		votes:            votes,
		tracer:           otel.Tracer("handler"),
		voteMuteDuration: voteMuteDuration,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd schemes.UpdateInterface) {
	ctx, span := h.tracer.Start(ctx, "HandleUpdate")
	defer span.End()

	switch u := upd.(type) {
	case *schemes.MessageCreatedUpdate:
		span.SetAttributes(attribute.String("update_type", "message_created"))
		h.handleMessageCreated(ctx, u)
	case *schemes.UserAddedToChatUpdate:
		span.SetAttributes(attribute.String("update_type", "user_added"))
		h.handleUserAdded(ctx, u)
	default:
		h.logger.Debug("Received unhandled update type", "type", fmt.Sprintf("%T", u))
	}
}

func (h *Handler) handleMessageCreated(ctx context.Context, upd *schemes.MessageCreatedUpdate) {
	chatID := upd.Message.Recipient.ChatId
	if chatID > 0 {
		// Private dialogs carry no moderation rules.
		h.logger.Debug("Ignoring private message", "user_id", upd.Message.Sender.UserId)
		return
	}
	h.handleGroupMessage(ctx, upd)
}

func (h *Handler) handleUserAdded(ctx context.Context, upd *schemes.UserAddedToChatUpdate) {
	if upd.InviterId == 0 || upd.InviterId == upd.User.UserId {
		return
	}
	if err := h.invites.AddInvite(ctx, upd.ChatId, upd.InviterId, upd.User.UserId); err != nil {
		h.logger.Error("Failed to record invite",
			"chat_id", upd.ChatId, "inviter_id", upd.InviterId, "error", err)
		return
	}
	h.logger.Info("Recorded invite",
		"chat_id", upd.ChatId, "inviter_id", upd.InviterId, "user_id", upd.User.UserId)
}

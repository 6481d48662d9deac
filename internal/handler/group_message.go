package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/max-messenger/max-bot-api-client-go/schemes"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/messages"
	"github.com/SeyyedYousef/Firewall-sub001/internal/metrics"
	"github.com/SeyyedYousef/Firewall-sub001/internal/votemute"
)

func (h *Handler) handleGroupMessage(ctx context.Context, upd *schemes.MessageCreatedUpdate) {
	if strings.HasPrefix(upd.Message.Body.Text, "/votemute") {
		h.handleVoteMuteCommand(ctx, upd)
		return
	}

	update := h.buildUpdate(upd)
	h.logger.Debug("Queueing group message",
		"chat_id", update.ChatID,
		"sender_id", update.FromUserID,
		"attachments", len(update.Attachments),
	)

	ok := h.queue.Submit(ctx, func(taskCtx context.Context) {
		start := time.Now()
		defer func() {
			metrics.UpdateProcessingDuration.Observe(time.Since(start).Seconds())
		}()
		metrics.ProcessedUpdates.Inc()

		h.resolveSenderRole(taskCtx, update)

		st := engine.NewProcessingState()
		actions := h.engine.Process(taskCtx, update)
		h.executor.Execute(taskCtx, actions, st)
	})
	if !ok {
		h.logger.Warn("Dropped update on shutdown", "chat_id", update.ChatID)
	}
}

func (h *Handler) buildUpdate(upd *schemes.MessageCreatedUpdate) *engine.Update {
	update := &engine.Update{
		ChatID:       upd.Message.Recipient.ChatId,
		MessageID:    upd.Message.Body.Mid,
		FromUserID:   upd.Message.Sender.UserId,
		FromUserName: upd.Message.Sender.Name,
		Text:         upd.Message.Body.Text,
		Timestamp:    time.Now().UTC(),
	}

	for _, raw := range upd.Message.Body.RawAttachments {
		var attMap map[string]interface{}
		if err := json.Unmarshal(raw, &attMap); err != nil {
			h.logger.Error("Failed to unmarshal attachment", "error", err)
			continue
		}
		typeVal, ok := attMap["type"].(string)
		if !ok {
			continue
		}
		if kind, ok := attachmentKind(typeVal); ok {
			update.Attachments = append(update.Attachments, kind)
		}
	}

	if link := upd.Message.Link; link != nil && link.Type == "forward" {
		update.Forward = &engine.ForwardMarker{
			SourceChatID: link.ChatId,
			// Channel posts arrive without an individual sender.
			FromChannel: link.Sender.UserId == 0,
		}
	}

	return update
}

func attachmentKind(platformType string) (engine.AttachmentKind, bool) {
	switch platformType {
	case "image":
		return engine.AttachmentPhoto, true
	case "video":
		return engine.AttachmentVideo, true
	case "audio":
		return engine.AttachmentAudio, true
	case "voice":
		return engine.AttachmentVoice, true
	case "file":
		return engine.AttachmentDocument, true
	case "sticker":
		return engine.AttachmentSticker, true
	case "animation":
		return engine.AttachmentAnimation, true
	}
	return "", false
}

// resolveSenderRole fills in IsAdmin/IsOwner from a live lookup. A
// failed lookup leaves both false; a sender we cannot verify is treated
// like any other member.
func (h *Handler) resolveSenderRole(ctx context.Context, update *engine.Update) {
	status, err := h.client.GetChatMember(ctx, update.ChatID, update.FromUserID)
	if err != nil {
		h.logger.Warn("Failed to resolve sender role",
			"chat_id", update.ChatID, "user_id", update.FromUserID, "error", err)
		return
	}
	update.IsAdmin = status == botapi.StatusAdmin || status == botapi.StatusOwner
	update.IsOwner = status == botapi.StatusOwner
}

func (h *Handler) handleVoteMuteCommand(ctx context.Context, upd *schemes.MessageCreatedUpdate) {
	chatID := upd.Message.Recipient.ChatId

	if upd.Message.Link == nil {
		h.sendNotice(ctx, chatID, messages.MsgVoteMuteInvalid)
		h.deleteCommand(ctx, upd.Message.Body.Mid)
		return
	}

	target := upd.Message.Link.Sender
	voterID := upd.Message.Sender.UserId

	targetStatus, err := h.client.GetChatMember(ctx, chatID, target.UserId)
	if err == nil && (targetStatus == botapi.StatusAdmin || targetStatus == botapi.StatusOwner) {
		h.sendNotice(ctx, chatID, messages.MsgVoteMuteAdmin)
		h.deleteCommand(ctx, upd.Message.Body.Mid)
		return
	}

	sess, done, err := h.votes.Vote(chatID, target.UserId, target.Name, voterID)
	if err != nil {
		if errors.Is(err, votemute.ErrSelfVote) {
			h.sendNotice(ctx, chatID, messages.MsgVoteMuteSelf)
		} else {
			h.logger.Error("Vote failed", "chat_id", chatID, "error", err)
		}
		h.deleteCommand(ctx, upd.Message.Body.Mid)
		return
	}

	if done {
		until := time.Now().Add(h.voteMuteDuration)
		if err := h.client.RestrictMember(ctx, chatID, sess.TargetUserID, "vote_mute", until); err != nil {
			h.logger.Error("Failed to apply vote mute",
				"chat_id", chatID, "user_id", sess.TargetUserID, "error", err)
		} else {
			metrics.VoteMutesCompleted.Inc()
			h.sendNotice(ctx, chatID, fmt.Sprintf(messages.MsgVoteMuteDone, sess.TargetName))
		}
	} else {
		h.sendNotice(ctx, chatID, voteNoticeText(sess))
	}
	h.deleteCommand(ctx, upd.Message.Body.Mid)
}

// voteNoticeText announces a fresh session on its first vote and the
// running tally on every later one.
func voteNoticeText(sess *votemute.Session) string {
	if sess.VoteCount() == 1 {
		return fmt.Sprintf(messages.MsgVoteMuteStarted,
			sess.TargetName, sess.VoteCount(), sess.RequiredVotes)
	}
	return fmt.Sprintf(messages.MsgVoteMuteProgress,
		sess.TargetName, sess.VoteCount(), sess.RequiredVotes)
}

func (h *Handler) sendNotice(ctx context.Context, chatID int64, text string) {
	st := engine.NewProcessingState()
	h.executor.Execute(ctx, []engine.Action{{
		Type:              engine.ActionSendMessage,
		ChatID:            chatID,
		Text:              text,
		ParseMode:         "markdown",
		AutoDeleteSeconds: 60,
	}}, st)
}

func (h *Handler) deleteCommand(ctx context.Context, messageID string) {
	st := engine.NewProcessingState()
	h.executor.Execute(ctx, []engine.Action{{
		Type:      engine.ActionDeleteMessage,
		ChatID:    0,
		MessageID: messageID,
		Reason:    "command_cleanup",
	}}, st)
}

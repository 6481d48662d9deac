package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
)

const (
	janitorInterval = 2 * time.Second
	janitorBatch    = 50
)

// Janitor removes self-destructing bot notices once their TTL expires.
type Janitor struct {
	logger   *slog.Logger
	client   botapi.Client
	tempRepo repository.TemporaryMessageRepository
}

func NewJanitor(logger *slog.Logger, client botapi.Client, tempRepo repository.TemporaryMessageRepository) *Janitor {
	return &Janitor{logger: logger, client: client, tempRepo: tempRepo}
}

func (j *Janitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
}

func (j *Janitor) sweep(ctx context.Context) {
	expired, err := j.tempRepo.GetExpired(janitorBatch)
	if err != nil {
		j.logger.Error("failed to fetch expired messages", "error", err)
		return
	}

	var cleaned []int64
	for _, msg := range expired {
		if err := j.client.DeleteMessage(ctx, msg.MessageID); err != nil {
			j.logger.Warn("failed to delete expired message",
				"chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		}
		// Drop the row either way; a message that cannot be deleted now
		// will not become deletable later.
		cleaned = append(cleaned, msg.ID)
	}
	if err := j.tempRepo.Delete(cleaned); err != nil {
		j.logger.Error("failed to prune temporary messages", "error", err)
	}
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

// SettingsCache holds one ChatRuleSet snapshot per chat. A snapshot is
// refreshed when older than the TTL; if the settings store is unreachable
// the last-known snapshot is served regardless of age, and a fail-open
// default is served when no snapshot exists at all. Get never fails: a
// moderation pipeline without settings must keep moving, not stall.
type SettingsCache struct {
	store  repository.SettingsStore
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
	tracer trace.Tracer

	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu       sync.Mutex
	snapshot *rules.ChatRuleSet
}

func New(store repository.SettingsStore, logger *slog.Logger, ttl time.Duration) *SettingsCache {
	return &SettingsCache{
		store:   store,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		tracer:  otel.Tracer("settings-cache"),
		entries: make(map[int64]*entry),
	}
}

// Prime refreshes the chat's snapshot if stale and returns it. It is
// called once per dispatched update before evaluation.
func (c *SettingsCache) Prime(ctx context.Context, chatID int64) *rules.ChatRuleSet {
	return c.Get(ctx, chatID)
}

func (c *SettingsCache) Get(ctx context.Context, chatID int64) *rules.ChatRuleSet {
	ctx, span := c.tracer.Start(ctx, "SettingsCache.Get")
	defer span.End()

	e := c.entry(chatID)

	// Per-chat lock: concurrent updates for the same chat share one
	// fetch, distinct chats refresh in parallel.
	e.mu.Lock()
	defer e.mu.Unlock()

	now := c.now()
	if e.snapshot != nil && now.Sub(e.snapshot.FetchedAt) < c.ttl {
		return e.snapshot
	}

	snapshot, err := c.fetch(ctx, chatID)
	if err != nil {
		if e.snapshot != nil {
			c.logger.Warn("Settings fetch failed, serving stale snapshot",
				"chat_id", chatID, "age", now.Sub(e.snapshot.FetchedAt), "error", err)
			return e.snapshot
		}
		c.logger.Warn("Settings fetch failed, serving defaults", "chat_id", chatID, "error", err)
		return rules.Defaults(chatID)
	}
	e.snapshot = snapshot
	return snapshot
}

func (c *SettingsCache) Invalidate(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, chatID)
}

func (c *SettingsCache) entry(chatID int64) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[chatID]
	if !ok {
		e = &entry{}
		c.entries[chatID] = e
	}
	return e
}

// fetch assembles a full snapshot from the five settings groups. A group
// that was never configured loads as its zero value; any store error
// fails the whole fetch so the caller can fall back.
func (c *SettingsCache) fetch(ctx context.Context, chatID int64) (*rules.ChatRuleSet, error) {
	snapshot := rules.Defaults(chatID)

	general, err := c.store.LoadGeneralSettings(ctx, chatID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("general settings: %w", err)
	}
	if general != nil {
		snapshot.General = *general
	}

	bans, err := c.store.LoadBanSettings(ctx, chatID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("ban settings: %w", err)
	}
	if bans != nil {
		snapshot.Bans = *bans
	}

	silence, err := c.store.LoadSilenceSettings(ctx, chatID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("silence settings: %w", err)
	}
	if silence != nil {
		snapshot.Silence = *silence
	}

	limits, err := c.store.LoadLimitSettings(ctx, chatID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("limit settings: %w", err)
	}
	if limits != nil {
		snapshot.Limits = *limits
	}

	mandatory, err := c.store.LoadMandatorySettings(ctx, chatID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("mandatory settings: %w", err)
	}
	if mandatory != nil {
		snapshot.Mandatory = *mandatory
	}

	snapshot.FetchedAt = c.now()
	return snapshot, nil
}

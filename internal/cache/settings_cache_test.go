package cache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

type mockStore struct {
	fetches int64
	err     error
	general *rules.GeneralSettings
	bans    *rules.BanSettings
}

func (m *mockStore) LoadGeneralSettings(_ context.Context, _ int64) (*rules.GeneralSettings, error) {
	atomic.AddInt64(&m.fetches, 1)
	if m.err != nil {
		return nil, m.err
	}
	if m.general == nil {
		return nil, repository.ErrNotFound
	}
	return m.general, nil
}

func (m *mockStore) LoadBanSettings(_ context.Context, _ int64) (*rules.BanSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.bans == nil {
		return nil, repository.ErrNotFound
	}
	return m.bans, nil
}

func (m *mockStore) LoadSilenceSettings(_ context.Context, _ int64) (*rules.SilenceSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) LoadLimitSettings(_ context.Context, _ int64) (*rules.LimitSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) LoadMandatorySettings(_ context.Context, _ int64) (*rules.MandatorySettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, repository.ErrNotFound
}

func newTestCache(store repository.SettingsStore, ttl time.Duration) *SettingsCache {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return New(store, logger, ttl)
}

func TestSettingsCache_FetchAndReuse(t *testing.T) {
	store := &mockStore{general: &rules.GeneralSettings{SilentMode: true}}
	c := newTestCache(store, time.Minute)

	rs := c.Get(context.Background(), 42)
	assert.True(t, rs.General.SilentMode)
	assert.Equal(t, int64(1), atomic.LoadInt64(&store.fetches))

	c.Get(context.Background(), 42)
	assert.Equal(t, int64(1), atomic.LoadInt64(&store.fetches), "fresh snapshot must not refetch")
}

func TestSettingsCache_NotFoundIsDefaults(t *testing.T) {
	store := &mockStore{}
	c := newTestCache(store, time.Minute)

	rs := c.Get(context.Background(), 7)
	assert.Equal(t, int64(7), rs.ChatID)
	assert.False(t, rs.Bans.Links.Enabled)
	assert.False(t, rs.Silence.EmergencyLock)
}

func TestSettingsCache_StoreDownServesDefaultsThenStale(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	c := newTestCache(store, time.Millisecond)

	rs := c.Get(context.Background(), 9)
	assert.Equal(t, int64(9), rs.ChatID, "no snapshot yet: defaults")
	assert.False(t, rs.Bans.Links.Enabled, "defaults must be fail-open")

	// Store recovers, snapshot is taken, then goes down again.
	store.err = nil
	store.general = &rules.GeneralSettings{SilentMode: true}
	time.Sleep(2 * time.Millisecond)
	rs = c.Get(context.Background(), 9)
	assert.True(t, rs.General.SilentMode)

	store.err = errors.New("connection refused")
	time.Sleep(2 * time.Millisecond)
	rs = c.Get(context.Background(), 9)
	assert.True(t, rs.General.SilentMode, "stale snapshot beats defaults")
}

func TestSettingsCache_Invalidate(t *testing.T) {
	store := &mockStore{general: &rules.GeneralSettings{}}
	c := newTestCache(store, time.Hour)

	c.Get(context.Background(), 5)
	c.Invalidate(5)
	c.Get(context.Background(), 5)
	assert.Equal(t, int64(2), atomic.LoadInt64(&store.fetches))
}

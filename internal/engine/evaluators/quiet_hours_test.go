package evaluators

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

func quietRuleSet(lock bool) *rules.ChatRuleSet {
	rs := rules.Defaults(-100)
	rs.Silence = rules.SilenceSettings{
		Windows: []rules.QuietWindow{
			{Enabled: true, StartMinute: 22 * 60, EndMinute: 6 * 60},
		},
		EmergencyLock: lock,
	}
	return rs
}

func TestQuietHours_BlocksInsideWindow(t *testing.T) {
	q := NewQuietHours()
	q.now = func() time.Time { return time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC) }

	upd := &engine.Update{ChatID: -100, FromUserID: 1}
	v, err := q.Evaluate(context.Background(), upd, quietRuleSet(false), false)
	assert.NoError(t, err)
	assert.True(t, v.Violated())

	v, err = q.Evaluate(context.Background(), upd, quietRuleSet(false), true)
	assert.NoError(t, err)
	assert.False(t, v.Violated(), "exempt senders pass during quiet hours")
}

func TestQuietHours_EmergencyLock(t *testing.T) {
	q := NewQuietHours()
	q.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	upd := &engine.Update{ChatID: -100, FromUserID: 1}
	v, _ := q.Evaluate(context.Background(), upd, quietRuleSet(true), false)
	assert.True(t, v.Violated(), "lock forces quiet outside any window")

	v, _ = q.Evaluate(context.Background(), upd, quietRuleSet(true), true)
	assert.False(t, v.Violated(), "admins stay exempt even under emergency lock")
}

func TestQuietHours_EdgeTriggeredNotices(t *testing.T) {
	q := NewQuietHours()
	now := time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	upd := &engine.Update{ChatID: -100, FromUserID: 1}
	rs := quietRuleSet(false)

	// First observation outside the window: no notice.
	v, _ := q.Evaluate(context.Background(), upd, rs, false)
	assert.Empty(t, v.Notices)

	// Window opens: exactly one start notice, then silence.
	now = time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	v, _ = q.Evaluate(context.Background(), upd, rs, false)
	assert.Len(t, v.Notices, 1)
	assert.Equal(t, engine.ActionSendMessage, v.Notices[0].Type)

	v, _ = q.Evaluate(context.Background(), upd, rs, false)
	assert.Empty(t, v.Notices, "notice is emitted at most once per entry")

	// Window closes past midnight rollover: one end notice.
	now = time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC)
	v, _ = q.Evaluate(context.Background(), upd, rs, false)
	assert.Len(t, v.Notices, 1)
}

func TestQuietHours_SweepDropsIdleChats(t *testing.T) {
	q := NewQuietHours()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	rs := quietRuleSet(false)
	q.Evaluate(context.Background(), &engine.Update{ChatID: -100, FromUserID: 1}, rs, false)
	q.Evaluate(context.Background(), &engine.Update{ChatID: -200, FromUserID: 1}, rs, false)
	assert.Equal(t, 2, q.Len())

	// Only -200 stays active past the idle cutoff.
	now = now.Add(30 * time.Minute)
	q.Evaluate(context.Background(), &engine.Update{ChatID: -200, FromUserID: 1}, rs, false)

	now = now.Add(45 * time.Minute)
	q.Sweep(time.Hour)
	assert.Equal(t, 1, q.Len(), "idle chats are garbage-collected")

	// The swept chat starts over as a first observation: entering the
	// window right after the sweep emits no flip notice.
	now = time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	v, _ := q.Evaluate(context.Background(), &engine.Update{ChatID: -100, FromUserID: 1}, rs, false)
	assert.Empty(t, v.Notices)
	assert.True(t, v.Violated())
}

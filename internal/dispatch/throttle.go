package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/metrics"
)

// AdaptiveThrottle spaces outbound API calls. It idles at a base delay,
// doubles (or jumps to the platform's retry-after, whichever is larger)
// when the API rate limits us, and relaxes by 20% per decay interval
// once the penalties stop. The delay never leaves [base, max].
type AdaptiveThrottle struct {
	base          time.Duration
	max           time.Duration
	decayInterval time.Duration

	mu            sync.Mutex
	currentDelay  time.Duration
	nextAvailable time.Time
	lastPenaltyAt time.Time
	lastDecayAt   time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAdaptiveThrottle(base, max, decayInterval time.Duration) *AdaptiveThrottle {
	return &AdaptiveThrottle{
		base:          base,
		max:           max,
		decayInterval: decayInterval,
		currentDelay:  base,
		now:           time.Now,
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait reserves the next send slot and blocks until it arrives. Slots
// are handed out under the lock, so concurrent callers queue up at
// currentDelay spacing instead of bursting together.
func (t *AdaptiveThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()
	now := t.now()
	t.decayLocked(now)

	slot := t.nextAvailable
	if slot.Before(now) {
		slot = now
	}
	t.nextAvailable = slot.Add(t.currentDelay)
	t.mu.Unlock()

	return t.sleep(ctx, slot.Sub(now))
}

// Observe applies feedback gathered while executing one update's
// actions. A rate-limit hit recorded after the last applied penalty
// escalates the delay once; repeated reports of the same hit are
// ignored so parallel workers do not multiply the penalty.
func (t *AdaptiveThrottle) Observe(st *engine.ProcessingState) {
	at, retryAfter := st.RateLimit()
	if at.IsZero() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !at.After(t.lastPenaltyAt) {
		return
	}
	t.lastPenaltyAt = at

	next := 2 * t.currentDelay
	if d := 2 * t.base; d > next {
		next = d
	}
	if retryAfter > next {
		next = retryAfter
	}
	if next > t.max {
		next = t.max
	}
	if next < t.base {
		next = t.base
	}
	t.currentDelay = next
	t.lastDecayAt = t.now()

	now := t.now()
	pushed := now.Add(t.currentDelay)
	if pushed.After(t.nextAvailable) {
		t.nextAvailable = pushed
	}

	metrics.RateLimitPenalties.Inc()
	metrics.ThrottleDelay.Set(t.currentDelay.Seconds())
}

// Delay reports the current spacing between actions.
func (t *AdaptiveThrottle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.decayLocked(t.now())
	return t.currentDelay
}

func (t *AdaptiveThrottle) decayLocked(now time.Time) {
	if t.currentDelay <= t.base {
		return
	}
	if t.lastDecayAt.IsZero() {
		t.lastDecayAt = now
		return
	}
	for now.Sub(t.lastDecayAt) >= t.decayInterval && t.currentDelay > t.base {
		t.currentDelay = time.Duration(float64(t.currentDelay) * 0.8)
		if t.currentDelay < t.base {
			t.currentDelay = t.base
		}
		t.lastDecayAt = t.lastDecayAt.Add(t.decayInterval)
	}
	metrics.ThrottleDelay.Set(t.currentDelay.Seconds())
}

package evaluators

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
	"github.com/SeyyedYousef/Firewall-sub001/internal/utils"
)

// RateLimiter keeps per-(chat,user) sliding windows: recent message
// timestamps for volume limiting and recent fingerprints for duplicate
// limiting. Entries age out lazily on access; Sweep drops idle keys.
type RateLimiter struct {
	mu                sync.Mutex
	states            map[string]*rateState
	minFingerprintLen int
	now               func() time.Time
}

type fingerprintAt struct {
	fp string
	at time.Time
}

type rateState struct {
	timestamps   []time.Time
	fingerprints []fingerprintAt
	lastSeen     time.Time
}

func NewRateLimiter(minFingerprintLen int) *RateLimiter {
	return &RateLimiter{
		states:            make(map[string]*rateState),
		minFingerprintLen: minFingerprintLen,
		now:               time.Now,
	}
}

func key(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// Observe records the message and returns the counts including it. A zero
// limit or window leaves the corresponding counter untouched, so unset
// thresholds can never be exceeded.
func (l *RateLimiter) Observe(chatID, userID int64, text string, lim rules.LimitSettings) engine.RateCounts {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(chatID, userID)
	st, ok := l.states[k]
	if !ok {
		st = &rateState{}
		l.states[k] = st
	}
	st.lastSeen = now

	var counts engine.RateCounts

	if lim.MessagesPerWindow > 0 && lim.WindowMinutes > 0 {
		window := time.Duration(lim.WindowMinutes) * time.Minute
		kept := st.timestamps[:0]
		for _, t := range st.timestamps {
			if now.Sub(t) <= window {
				kept = append(kept, t)
			}
		}
		st.timestamps = append(kept, now)
		counts.Messages = len(st.timestamps)
	}

	fp := utils.Fingerprint(text)
	if lim.DuplicateMessages > 0 && lim.DuplicateWindowMinutes > 0 &&
		utf8.RuneCountInString(fp) >= l.minFingerprintLen {
		window := time.Duration(lim.DuplicateWindowMinutes) * time.Minute
		kept := st.fingerprints[:0]
		matches := 1 // the new entry matches itself
		for _, f := range st.fingerprints {
			if now.Sub(f.at) > window {
				continue
			}
			kept = append(kept, f)
			if f.fp == fp {
				matches++
			}
		}
		st.fingerprints = append(kept, fingerprintAt{fp: fp, at: now})
		counts.FingerprintTracked = true
		counts.Duplicates = matches
	}

	if len(st.timestamps) == 0 && len(st.fingerprints) == 0 {
		delete(l.states, k)
	}
	return counts
}

// Sweep garbage-collects keys not seen for maxAge. Run it from a
// recurring task; lazy pruning alone never visits silent users.
func (l *RateLimiter) Sweep(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, st := range l.states {
		if now.Sub(st.lastSeen) > maxAge {
			delete(l.states, k)
		}
	}
}

func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

package evaluators

import (
	"context"
	"sync"
	"time"

	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/messages"
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

// QuietHours enforces the configured silence windows and the emergency
// lock. Transitions are edge-triggered: the start/end announcement is
// emitted once per flip of the chat's quiet state, tracked here.
type QuietHours struct {
	mu        sync.Mutex
	lastState map[int64]quietState
	now       func() time.Time
}

type quietState struct {
	quiet bool
	seen  time.Time
}

func NewQuietHours() *QuietHours {
	return &QuietHours{
		lastState: make(map[int64]quietState),
		now:       time.Now,
	}
}

func (q *QuietHours) Name() string { return "quiet_hours" }

func (q *QuietHours) Evaluate(_ context.Context, upd *engine.Update, rs *rules.ChatRuleSet, exempt bool) (*engine.Verdict, error) {
	now := q.now()
	quiet := rs.Silence.QuietAt(now)

	q.mu.Lock()
	last, seen := q.lastState[upd.ChatID]
	q.lastState[upd.ChatID] = quietState{quiet: quiet, seen: now}
	q.mu.Unlock()

	v := &engine.Verdict{}
	if seen && last.quiet != quiet {
		text := messages.MsgQuietHoursEnded
		if quiet {
			text = messages.MsgQuietHoursStarted
		}
		v.Notices = append(v.Notices, engine.Action{
			Type:      engine.ActionSendMessage,
			ChatID:    upd.ChatID,
			Text:      text,
			ParseMode: "markdown",
			Silent:    rs.General.SilentMode,
		})
	}

	// Admins and owners stay exempt, emergency lock included.
	if quiet && !exempt {
		v.Violations = append(v.Violations, engine.Violation{
			Category: "quiet_hours",
			Reason:   messages.MsgReasonQuietHours,
		})
	}
	return v, nil
}

// Sweep drops flip state for chats with no messages for maxAge. The next
// message from such a chat is treated as a first observation again, so
// no spurious flip notice is emitted.
func (q *QuietHours) Sweep(maxAge time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for chatID, st := range q.lastState {
		if now.Sub(st.seen) > maxAge {
			delete(q.lastState, chatID)
		}
	}
}

func (q *QuietHours) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lastState)
}

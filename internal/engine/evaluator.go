package engine

import (
	"context"

	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

// Violation is one matched rule category with its user-facing reason.
type Violation struct {
	Category string
	Reason   string
}

// Verdict is the outcome of one evaluator. Notices are side messages
// emitted independently of whether the update violated anything (for
// example the quiet-hours start/end announcements).
type Verdict struct {
	Violations []Violation
	Notices    []Action
}

func (v *Verdict) Violated() bool {
	return v != nil && len(v.Violations) > 0
}

type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, upd *Update, rs *rules.ChatRuleSet, exempt bool) (*Verdict, error)
}

// RateCounts is the snapshot returned by the rate tracker after the
// current message has been recorded.
type RateCounts struct {
	Messages           int
	Duplicates         int
	FingerprintTracked bool
}

// RateTracker records a message into the per-(chat,user) sliding windows
// and returns the resulting counts, including the new entry. Recording
// always happens, regardless of what the rest of the pipeline decides.
type RateTracker interface {
	Observe(chatID, userID int64, text string, lim rules.LimitSettings) RateCounts
}

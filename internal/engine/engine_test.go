package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

type mockRuleSource struct {
	rs *rules.ChatRuleSet
}

func (m *mockRuleSource) Prime(_ context.Context, chatID int64) *rules.ChatRuleSet {
	if m.rs != nil {
		return m.rs
	}
	return rules.Defaults(chatID)
}

type mockRestrictions struct {
	restricted bool
	until      time.Time
	err        error
}

func (m *mockRestrictions) IsRestricted(_, _ int64) (bool, time.Time, error) {
	return m.restricted, m.until, m.err
}

type mockTracker struct {
	calls  int
	counts RateCounts
}

func (m *mockTracker) Observe(_, _ int64, _ string, _ rules.LimitSettings) RateCounts {
	m.calls++
	return m.counts
}

type mockEvaluator struct {
	name    string
	verdict *Verdict
	err     error
	panics  bool
	calls   int
}

func (m *mockEvaluator) Name() string { return m.name }
func (m *mockEvaluator) Evaluate(_ context.Context, _ *Update, _ *rules.ChatRuleSet, _ bool) (*Verdict, error) {
	m.calls++
	if m.panics {
		panic("boom")
	}
	return m.verdict, m.err
}

func violated(category string) *Verdict {
	return &Verdict{Violations: []Violation{{Category: category, Reason: "reason " + category}}}
}

func newTestEngine(src RuleSource, tracker RateTracker, membership, quiet, content Evaluator) *Engine {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return New(logger, src, &mockRestrictions{}, tracker, membership, quiet, content)
}

func actionTypes(actions []Action) []ActionType {
	types := make([]ActionType, 0, len(actions))
	for _, a := range actions {
		types = append(types, a.Type)
	}
	return types
}

func TestEngine_AllowedMessageYieldsNoActions(t *testing.T) {
	tracker := &mockTracker{}
	e := newTestEngine(&mockRuleSource{}, tracker,
		&mockEvaluator{name: "m"}, &mockEvaluator{name: "q"}, &mockEvaluator{name: "c"})

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, MessageID: "m1", Text: "hi"})
	assert.Empty(t, actions)
	assert.Equal(t, 1, tracker.calls)
}

func TestEngine_MembershipShortCircuitsLaterSteps(t *testing.T) {
	tracker := &mockTracker{}
	quiet := &mockEvaluator{name: "q"}
	content := &mockEvaluator{name: "c"}
	e := newTestEngine(&mockRuleSource{}, tracker,
		&mockEvaluator{name: "m", verdict: violated("mandatory_invites")}, quiet, content)

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, MessageID: "m1"})
	assert.Equal(t, []ActionType{ActionDeleteMessage, ActionSendMessage}, actionTypes(actions))
	assert.Equal(t, 0, quiet.calls, "short-circuit skips quiet hours")
	assert.Equal(t, 0, content.calls, "short-circuit skips content rules")
	assert.Equal(t, 1, tracker.calls, "counters update before any verdict")
}

func TestEngine_OwnerBypassesMembership(t *testing.T) {
	membership := &mockEvaluator{name: "m", verdict: violated("mandatory_invites")}
	e := newTestEngine(&mockRuleSource{}, &mockTracker{},
		membership, &mockEvaluator{name: "q"}, &mockEvaluator{name: "c"})

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, IsOwner: true})
	assert.Empty(t, actions)
	assert.Equal(t, 0, membership.calls)
}

func TestEngine_AdminStillGatedByMembership(t *testing.T) {
	membership := &mockEvaluator{name: "m", verdict: violated("mandatory_channel")}
	content := &mockEvaluator{name: "c", verdict: violated("links")}
	e := newTestEngine(&mockRuleSource{}, &mockTracker{},
		membership, &mockEvaluator{name: "q"}, content)

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, IsAdmin: true})
	assert.Equal(t, []ActionType{ActionDeleteMessage, ActionSendMessage}, actionTypes(actions))
	assert.Equal(t, 1, membership.calls, "admins are not exempt from the membership gate")
}

func TestEngine_AdminExemptFromContentAndLimits(t *testing.T) {
	content := &mockEvaluator{name: "c", verdict: violated("links")}
	rs := rules.Defaults(-1)
	rs.Limits = rules.LimitSettings{MessagesPerWindow: 1, WindowMinutes: 1}
	tracker := &mockTracker{counts: RateCounts{Messages: 99}}

	e := newTestEngine(&mockRuleSource{rs: rs}, tracker,
		&mockEvaluator{name: "m"}, &mockEvaluator{name: "q"}, content)

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, IsAdmin: true})
	assert.Empty(t, actions)
	assert.Equal(t, 0, content.calls)
	assert.Equal(t, 1, tracker.calls, "exempt senders still feed the counters")
}

func TestEngine_RateThreshold(t *testing.T) {
	rs := rules.Defaults(-1)
	rs.Limits = rules.LimitSettings{MessagesPerWindow: 5, WindowMinutes: 1}
	tracker := &mockTracker{counts: RateCounts{Messages: 6}}

	e := newTestEngine(&mockRuleSource{rs: rs}, tracker,
		&mockEvaluator{name: "m"}, &mockEvaluator{name: "q"}, &mockEvaluator{name: "c"})

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, MessageID: "m9"})
	assert.Equal(t, []ActionType{ActionDeleteMessage, ActionSendMessage}, actionTypes(actions))
	assert.Equal(t, "rate_exceeded", actions[0].Reason)
}

func TestEngine_CompositeWarningSettings(t *testing.T) {
	rs := rules.Defaults(-1)
	rs.General.SilentMode = true
	rs.General.WarnAutoDeleteSec = 30

	content := &mockEvaluator{name: "c", verdict: &Verdict{Violations: []Violation{
		{Category: "links", Reason: "links are not allowed right now"},
		{Category: "text_patterns", Reason: "the message contains a prohibited word"},
	}}}
	e := newTestEngine(&mockRuleSource{rs: rs}, &mockTracker{},
		&mockEvaluator{name: "m"}, &mockEvaluator{name: "q"}, content)

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, MessageID: "m2", FromUserName: "Eve"})
	assert.Len(t, actions, 2, "one delete plus one composite warning, never one per rule")

	warning := actions[1]
	assert.True(t, warning.Silent)
	assert.Equal(t, 30, warning.AutoDeleteSeconds)
	assert.Contains(t, warning.Text, "Eve")
	assert.Contains(t, warning.Text, "links are not allowed")
	assert.Contains(t, warning.Text, "prohibited word")
	assert.Equal(t, "links,text_patterns", actions[0].Reason)
}

func TestEngine_QuietNoticesSurviveAllowedMessage(t *testing.T) {
	quiet := &mockEvaluator{name: "q", verdict: &Verdict{Notices: []Action{
		{Type: ActionSendMessage, ChatID: -1, Text: "quiet hours started"},
	}}}
	e := newTestEngine(&mockRuleSource{}, &mockTracker{},
		&mockEvaluator{name: "m"}, quiet, &mockEvaluator{name: "c"})

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5})
	assert.Equal(t, []ActionType{ActionSendMessage}, actionTypes(actions))
}

func TestEngine_EvaluatorFailureIsIsolated(t *testing.T) {
	e := newTestEngine(&mockRuleSource{}, &mockTracker{},
		&mockEvaluator{name: "m", panics: true},
		&mockEvaluator{name: "q", err: context.DeadlineExceeded},
		&mockEvaluator{name: "c"})

	assert.NotPanics(t, func() {
		actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5})
		assert.Empty(t, actions, "failing evaluators fail open")
	})
}

func TestEngine_RestrictedSenderDeleted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	e := New(logger, &mockRuleSource{}, &mockRestrictions{restricted: true, until: time.Now().Add(time.Hour)},
		&mockTracker{}, &mockEvaluator{name: "m"}, &mockEvaluator{name: "q"}, &mockEvaluator{name: "c"})

	actions := e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, MessageID: "m3"})
	assert.Equal(t, []ActionType{ActionDeleteMessage, ActionSendMessage}, actionTypes(actions))

	actions = e.Process(context.Background(), &Update{ChatID: -1, FromUserID: 5, IsAdmin: true})
	assert.Empty(t, actions, "restrictions never apply to admins")
}

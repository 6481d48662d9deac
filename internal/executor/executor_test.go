package executor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SeyyedYousef/Firewall-sub001/internal/botapi"
	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/repository"
)

type mockClient struct {
	sent      []string
	deleted   []string
	restricts int
	sendErr   error
	deleteErr error
}

func (m *mockClient) SendMessage(_ context.Context, _ int64, text string, _ botapi.SendOptions) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, text)
	return "msg-1", nil
}

func (m *mockClient) DeleteMessage(_ context.Context, messageID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *mockClient) RestrictMember(_ context.Context, _, _ int64, _ string, _ time.Time) error {
	m.restricts++
	return nil
}

func (m *mockClient) GetChatMember(_ context.Context, _, _ int64) (botapi.MemberStatus, error) {
	return botapi.StatusMember, nil
}

type mockThrottle struct {
	waits    int
	observed bool
	waitErr  error
}

func (m *mockThrottle) Wait(_ context.Context) error {
	m.waits++
	return m.waitErr
}

func (m *mockThrottle) Observe(_ *engine.ProcessingState) { m.observed = true }

type mockTempRepo struct {
	added   []string
	expired []repository.TemporaryMessage
	removed []int64
}

func (m *mockTempRepo) Add(_ int64, messageID string, _ time.Duration) error {
	m.added = append(m.added, messageID)
	return nil
}

func (m *mockTempRepo) GetExpired(_ int) ([]repository.TemporaryMessage, error) {
	return m.expired, nil
}

func (m *mockTempRepo) Delete(ids []int64) error {
	m.removed = append(m.removed, ids...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestExecutor_RunsActionsInOrder(t *testing.T) {
	client := &mockClient{}
	throttle := &mockThrottle{}
	e := New(testLogger(), client, throttle, &mockTempRepo{})

	actions := []engine.Action{
		{Type: engine.ActionDeleteMessage, ChatID: -1, MessageID: "m1", Reason: "links"},
		{Type: engine.ActionSendMessage, ChatID: -1, Text: "warning"},
	}
	e.Execute(context.Background(), actions, engine.NewProcessingState())

	assert.Equal(t, []string{"m1"}, client.deleted)
	assert.Equal(t, []string{"warning"}, client.sent)
	assert.Equal(t, 2, throttle.waits, "every action pays the throttle toll")
	assert.True(t, throttle.observed)
}

func TestExecutor_AutoDeleteSchedulesCleanup(t *testing.T) {
	client := &mockClient{}
	repo := &mockTempRepo{}
	e := New(testLogger(), client, &mockThrottle{}, repo)

	e.Execute(context.Background(), []engine.Action{
		{Type: engine.ActionSendMessage, ChatID: -1, Text: "warning", AutoDeleteSeconds: 30},
	}, engine.NewProcessingState())

	assert.Equal(t, []string{"msg-1"}, repo.added)
}

func TestExecutor_FailureDoesNotBlockRemainingActions(t *testing.T) {
	client := &mockClient{deleteErr: errors.New("message gone")}
	e := New(testLogger(), client, &mockThrottle{}, &mockTempRepo{})

	e.Execute(context.Background(), []engine.Action{
		{Type: engine.ActionDeleteMessage, ChatID: -1, MessageID: "m1"},
		{Type: engine.ActionSendMessage, ChatID: -1, Text: "still sent"},
	}, engine.NewProcessingState())

	assert.Equal(t, []string{"still sent"}, client.sent)
}

func TestExecutor_RateLimitRecorded(t *testing.T) {
	client := &mockClient{sendErr: &botapi.RateLimitError{RetryAfter: 30 * time.Second}}
	e := New(testLogger(), client, &mockThrottle{}, &mockTempRepo{})

	st := engine.NewProcessingState()
	e.Execute(context.Background(), []engine.Action{
		{Type: engine.ActionSendMessage, ChatID: -1, Text: "warning"},
	}, st)

	at, retryAfter := st.RateLimit()
	assert.False(t, at.IsZero())
	assert.Equal(t, 30*time.Second, retryAfter)
}

func TestExecutor_ThrottleCancellationStopsExecution(t *testing.T) {
	client := &mockClient{}
	e := New(testLogger(), client, &mockThrottle{waitErr: context.Canceled}, &mockTempRepo{})

	e.Execute(context.Background(), []engine.Action{
		{Type: engine.ActionSendMessage, ChatID: -1, Text: "never sent"},
	}, engine.NewProcessingState())

	assert.Empty(t, client.sent)
}

func TestJanitor_SweepDeletesExpired(t *testing.T) {
	client := &mockClient{}
	repo := &mockTempRepo{expired: []repository.TemporaryMessage{
		{ID: 1, ChatID: -1, MessageID: "m1"},
		{ID: 2, ChatID: -1, MessageID: "m2"},
	}}
	j := NewJanitor(testLogger(), client, repo)

	j.sweep(context.Background())

	assert.Equal(t, []string{"m1", "m2"}, client.deleted)
	assert.Equal(t, []int64{1, 2}, repo.removed)
}

func TestJanitor_RowDroppedEvenWhenDeleteFails(t *testing.T) {
	client := &mockClient{deleteErr: errors.New("already gone")}
	repo := &mockTempRepo{expired: []repository.TemporaryMessage{{ID: 7, ChatID: -1, MessageID: "m7"}}}
	j := NewJanitor(testLogger(), client, repo)

	j.sweep(context.Background())

	assert.Equal(t, []int64{7}, repo.removed)
}

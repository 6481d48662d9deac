package evaluators

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
	"github.com/SeyyedYousef/Firewall-sub001/internal/rules"
)

type mockInviteCounter struct {
	count int
	err   error
}

func (m *mockInviteCounter) CountInvitesSince(_ context.Context, _, _ int64, _ time.Time) (int, error) {
	return m.count, m.err
}

type mockMemberLookup struct {
	status botapi.MemberStatus
	err    error
}

func (m *mockMemberLookup) GetChatMember(_ context.Context, _, _ int64) (botapi.MemberStatus, error) {
	return m.status, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestMembershipGate(t *testing.T) {
	upd := &engine.Update{ChatID: -1, FromUserID: 7}

	tests := []struct {
		name      string
		mandatory rules.MandatorySettings
		invites   *mockInviteCounter
		members   *mockMemberLookup
		violated  bool
	}{
		{
			name:     "nothing configured passes",
			invites:  &mockInviteCounter{},
			members:  &mockMemberLookup{},
			violated: false,
		},
		{
			name:      "too few invites",
			mandatory: rules.MandatorySettings{RequiredInvites: 3},
			invites:   &mockInviteCounter{count: 1},
			members:   &mockMemberLookup{},
			violated:  true,
		},
		{
			name:      "enough invites",
			mandatory: rules.MandatorySettings{RequiredInvites: 3},
			invites:   &mockInviteCounter{count: 3},
			members:   &mockMemberLookup{},
			violated:  false,
		},
		{
			name:      "not in required channel",
			mandatory: rules.MandatorySettings{RequiredChannelID: -500},
			invites:   &mockInviteCounter{},
			members:   &mockMemberLookup{status: botapi.StatusLeft},
			violated:  true,
		},
		{
			name:      "channel member passes",
			mandatory: rules.MandatorySettings{RequiredChannelID: -500},
			invites:   &mockInviteCounter{},
			members:   &mockMemberLookup{status: botapi.StatusMember},
			violated:  false,
		},
		{
			name:      "lookup failure fails open",
			mandatory: rules.MandatorySettings{RequiredChannelID: -500, RequiredInvites: 3},
			invites:   &mockInviteCounter{err: errors.New("store down")},
			members:   &mockMemberLookup{err: errors.New("timeout")},
			violated:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMembershipGate(testLogger(), tt.invites, tt.members, 7*24*time.Hour)
			rs := rules.Defaults(-1)
			rs.Mandatory = tt.mandatory

			v, err := g.Evaluate(context.Background(), upd, rs, false)
			assert.NoError(t, err)
			assert.Equal(t, tt.violated, v.Violated())
		})
	}
}

func TestMembershipGate_BothConditionsReported(t *testing.T) {
	g := NewMembershipGate(testLogger(), &mockInviteCounter{count: 0}, &mockMemberLookup{status: botapi.StatusNone}, time.Hour)
	rs := rules.Defaults(-1)
	rs.Mandatory = rules.MandatorySettings{RequiredInvites: 2, RequiredChannelID: -500}

	v, err := g.Evaluate(context.Background(), &engine.Update{ChatID: -1, FromUserID: 7}, rs, false)
	assert.NoError(t, err)
	assert.Len(t, v.Violations, 2)
}

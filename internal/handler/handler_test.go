package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SeyyedYousef/Firewall-sub001/internal/engine"
	"github.com/SeyyedYousef/Firewall-sub001/internal/votemute"
)

func TestAttachmentKind(t *testing.T) {
	tests := []struct {
		platform string
		kind     engine.AttachmentKind
		known    bool
	}{
		{"image", engine.AttachmentPhoto, true},
		{"video", engine.AttachmentVideo, true},
		{"audio", engine.AttachmentAudio, true},
		{"voice", engine.AttachmentVoice, true},
		{"file", engine.AttachmentDocument, true},
		{"sticker", engine.AttachmentSticker, true},
		{"animation", engine.AttachmentAnimation, true},
		{"location", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			kind, ok := attachmentKind(tt.platform)
			assert.Equal(t, tt.known, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestVoteNoticeText(t *testing.T) {
	store := votemute.NewStore(3, time.Minute)

	sess, done, err := store.Vote(-1, 100, "Target", 1)
	assert.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, voteNoticeText(sess), "has started",
		"the session-creating vote announces the vote")
	assert.Contains(t, voteNoticeText(sess), "1/3")

	sess, done, err = store.Vote(-1, 100, "Target", 2)
	assert.NoError(t, err)
	assert.False(t, done)
	text := voteNoticeText(sess)
	assert.NotContains(t, text, "has started", "later votes report the tally only")
	assert.Contains(t, text, "2/3")
}

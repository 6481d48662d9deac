package engine

import (
	"sync"
	"time"
)

// Update is the closed inbound shape every evaluator consumes. It is
// built once at ingestion; evaluators never probe raw platform payloads.
type Update struct {
	ChatID       int64
	MessageID    string
	FromUserID   int64
	FromUserName string
	IsAdmin      bool
	IsOwner      bool
	Text         string
	Entities     []Entity
	Attachments  []AttachmentKind
	Forward      *ForwardMarker
	Timestamp    time.Time
}

type EntityKind string

const (
	EntityURL      EntityKind = "url"
	EntityTextLink EntityKind = "text_link"
)

type Entity struct {
	Kind EntityKind
	URL  string
}

type AttachmentKind string

const (
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentAudio     AttachmentKind = "audio"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentDocument  AttachmentKind = "document"
	AttachmentSticker   AttachmentKind = "sticker"
	AttachmentAnimation AttachmentKind = "animation"
)

type ForwardMarker struct {
	SourceChatID int64
	FromChannel  bool
}

type ActionType string

const (
	ActionSendMessage    ActionType = "send_message"
	ActionDeleteMessage  ActionType = "delete_message"
	ActionRestrictMember ActionType = "restrict_member"
	ActionLog            ActionType = "log"
)

// Action is one instruction for the action executor. Fields are used per
// type: send needs Text/ParseMode/Silent/AutoDeleteSeconds, delete needs
// MessageID, restrict needs UserID/Until, log needs Reason only.
type Action struct {
	Type              ActionType
	ChatID            int64
	MessageID         string
	UserID            int64
	Text              string
	ParseMode         string
	Silent            bool
	AutoDeleteSeconds int
	Until             time.Time
	Reason            string
}

// ProcessingState carries rate-limit feedback from the action executor
// back to the throttle. One instance lives per dispatched update.
type ProcessingState struct {
	mu            sync.Mutex
	rateLimitedAt time.Time
	retryAfter    time.Duration
}

func NewProcessingState() *ProcessingState {
	return &ProcessingState{}
}

func (s *ProcessingState) RecordRateLimit(retryAfter time.Duration, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitedAt = at
	if retryAfter > s.retryAfter {
		s.retryAfter = retryAfter
	}
}

func (s *ProcessingState) RateLimit() (at time.Time, retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimitedAt, s.retryAfter
}

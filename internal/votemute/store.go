package votemute

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrSelfVote = errors.New("cannot vote against yourself")

// Session is one community vote to mute a member. One active session per
// target per chat; it is destroyed on success or expiry.
type Session struct {
	ChatID        int64
	TargetUserID  int64
	TargetName    string
	InitiatedBy   int64
	Votes         map[int64]struct{}
	RequiredVotes int
	ExpiresAt     time.Time
}

func (s *Session) VoteCount() int { return len(s.Votes) }

// Store owns all live sessions. It is passed by reference wherever vote
// handling happens, so tests never share process-global state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	required int
	window   time.Duration
	now      func() time.Time
}

func NewStore(requiredVotes int, window time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		required: requiredVotes,
		window:   window,
		now:      time.Now,
	}
}

func sessionKey(chatID, targetID int64) string {
	return fmt.Sprintf("%d:%d", chatID, targetID)
}

// Vote registers one vote, creating the session on the first one. The
// second return value reports whether the threshold has just been
// reached; in that case the session is destroyed and the caller applies
// the restriction.
func (s *Store) Vote(chatID, targetID int64, targetName string, voterID int64) (*Session, bool, error) {
	if voterID == targetID {
		return nil, false, ErrSelfVote
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := sessionKey(chatID, targetID)
	sess, ok := s.sessions[k]
	if ok && now.After(sess.ExpiresAt) {
		delete(s.sessions, k)
		ok = false
	}
	if !ok {
		sess = &Session{
			ChatID:        chatID,
			TargetUserID:  targetID,
			TargetName:    targetName,
			InitiatedBy:   voterID,
			Votes:         make(map[int64]struct{}),
			RequiredVotes: s.required,
			ExpiresAt:     now.Add(s.window),
		}
		s.sessions[k] = sess
	}

	sess.Votes[voterID] = struct{}{}
	if len(sess.Votes) >= sess.RequiredVotes {
		delete(s.sessions, k)
		return sess, true, nil
	}
	return sess, false, nil
}

// Sweep drops expired sessions; run it from a recurring task.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, k)
		}
	}
}

func (s *Store) Active(chatID, targetID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(chatID, targetID)]
	if !ok || s.now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/mag7qa/internal/model"
)

// Session is one multi-turn conversation. Turns are append only.
type Session struct {
	id     string
	owner  string
	ctime  int64
	nowFn  func() time.Time
	askMu  sync.Mutex
	mu     sync.RWMutex
	turns  []model.ConversationTurn
	active time.Time
}

func NewSession(id, owner string) *Session {
	return newSession(id, owner, time.Now)
}

func newSession(id, owner string, now func() time.Time) *Session {
	ts := now()
	return &Session{
		id:     id,
		owner:  owner,
		ctime:  ts.Unix(),
		nowFn:  now,
		active: ts,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Owner() string {
	return s.owner
}

func (s *Session) Ctime() int64 {
	return s.ctime
}

func (s *Session) Record(query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	s.turns = append(s.turns, model.ConversationTurn{Query: query, Answer: answer, Ctime: now.Unix()})
	s.active = now
}

// RenderRecent formats the last n turns, oldest first.
func (s *Session) RenderRecent(n int) string {
	if n <= 0 {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	for _, t := range s.turns[start:] {
		sb.WriteString("User: ")
		sb.WriteString(t.Query)
		sb.WriteString("\nAgent: ")
		sb.WriteString(t.Answer)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *Session) Turns() []model.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.active = s.nowFn()
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) touch() {
	s.mu.Lock()
	s.active = s.nowFn()
	s.mu.Unlock()
}

// Exclusive runs fn while holding the session's ask lock so questions in
// one conversation are answered one at a time.
func (s *Session) Exclusive(fn func() error) error {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	s.touch()
	return fn()
}

package conversation

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
)

// Store keeps sessions in memory, keyed by id and scoped to an owner.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *Store) Create(owner string) *Session {
	sess := newSession(uuid.NewString(), owner, s.now)
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session only when owner matches; foreign sessions look missing.
func (s *Store) Get(owner, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErr.ErrInvalid
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.Owner() != owner {
		return nil, appErr.ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(owner, id string) error {
	if _, err := s.Get(owner, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// List returns the owner's sessions, newest first.
func (s *Store) List(owner string) []*Session {
	s.mu.RLock()
	out := make([]*Session, 0)
	for _, sess := range s.sessions {
		if sess.Owner() == owner {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ctime() == out[j].Ctime() {
			return out[i].ID() < out[j].ID()
		}
		return out[i].Ctime() > out[j].Ctime()
	})
	return out
}

// SweepIdle drops sessions whose last activity is older than maxIdle.
func (s *Store) SweepIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

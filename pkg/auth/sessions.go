package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// Session is an authenticated browser session
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// Sessions holds sessions and pending OAuth states in memory. Both expire
// after their TTL.
type Sessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
	states   map[string]time.Time
}

const stateTTL = 10 * time.Minute

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
		states:   make(map[string]time.Time),
	}
}

// Create starts a session for a user
func (s *Sessions) Create(userID string) (Session, error) {
	id, err := randomToken()
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := Session{ID: id, UserID: userID, ExpiresAt: s.now().Add(s.ttl)}
	s.sessions[id] = session
	return session, nil
}

// Lookup returns a live session. Expired sessions are dropped.
func (s *Sessions) Lookup(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, false
	}
	return session, true
}

func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// NewState issues a single-use OAuth state value
func (s *Sessions) NewState() (string, error) {
	state, err := randomToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = s.now().Add(stateTTL)
	return state, nil
}

// ConsumeState reports whether state was issued and has not expired. A state
// can be consumed once.
func (s *Sessions) ConsumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	delete(s.states, state)
	return ok && s.now().Before(expiresAt)
}

// Purge drops expired sessions and states and returns how many were removed
func (s *Sessions) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	for state, expiresAt := range s.states {
		if !now.Before(expiresAt) {
			delete(s.states, state)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx is done
func (s *Sessions) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Purge()
		}
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Expiry(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	s := NewSessions(time.Hour)
	s.now = func() time.Time { return now }

	session, err := s.Create("user-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt)

	got, ok := s.Lookup(session.ID)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)

	now = now.Add(time.Hour)
	_, ok = s.Lookup(session.ID)
	assert.False(t, ok)
}

func TestSessions_UniqueIDs(t *testing.T) {
	s := NewSessions(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := s.Create("user")
		require.NoError(t, err)
		assert.False(t, seen[session.ID])
		seen[session.ID] = true
	}
}

func TestSessions_StateSingleUseAndPurge(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute)
	s.now = func() time.Time { return now }

	state, err := s.NewState()
	require.NoError(t, err)
	assert.True(t, s.ConsumeState(state))
	assert.False(t, s.ConsumeState(state))

	_, err = s.NewState()
	require.NoError(t, err)
	_, err = s.Create("user")
	require.NoError(t, err)

	now = now.Add(stateTTL)
	assert.Equal(t, 2, s.Purge())
	assert.Equal(t, 0, s.Purge())
}

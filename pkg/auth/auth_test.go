package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/docstore/memstore"
)

type fakeProvider struct {
	identity Identity
	err      error
	codes    []string
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (Identity, error) {
	f.codes = append(f.codes, code)
	return f.identity, f.err
}

func newTestService(t *testing.T, provider IdentityProvider) (*Service, *db.Users) {
	t.Helper()
	users := db.NewUsers(memstore.New(), zap.NewNop())
	return NewService(users, NewSessions(time.Hour), provider, zap.NewNop()), users
}

func TestSignInWithPassword(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	adminID, err := svc.EnsureAdmin(ctx, "Admin@Example.org", "correct horse", "Admin")
	require.NoError(t, err)

	session, err := svc.SignInWithPassword(ctx, "admin@example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, adminID, session.UserID)
	assert.True(t, svc.IsAdmin(ctx, session.ID))

	_, err = svc.SignInWithPassword(ctx, "admin@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignInWithPassword(ctx, "nobody@example.org", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRequireAdmin_NeedsSessionAndRole(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	hash, err := HashPassword("volunteer-pass")
	require.NoError(t, err)
	userID, err := users.Create(ctx, db.UserProfile{Email: "vol@example.org", PasswordHash: hash})
	require.NoError(t, err)

	session, err := svc.SignInWithPassword(ctx, "vol@example.org", "volunteer-pass")
	require.NoError(t, err)

	_, err = svc.RequireAdmin(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = svc.RequireAdmin(ctx, "unknown-session")
	assert.ErrorIs(t, err, ErrNoSession)

	// the role is re-read on every check
	require.NoError(t, users.Update(ctx, userID, db.Fields{"role": db.RoleAdmin}))
	assert.True(t, svc.IsAdmin(ctx, session.ID))

	require.NoError(t, users.Update(ctx, userID, db.Fields{"role": db.RoleUser}))
	assert.False(t, svc.IsAdmin(ctx, session.ID))
}

func TestAuthenticate_DeletedProfileEndsSession(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.EnsureAdmin(ctx, "admin@example.org", "long enough", "")
	require.NoError(t, err)
	session, err := svc.SignInWithPassword(ctx, "admin@example.org", "long enough")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, id))

	_, err = svc.Authenticate(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSignOut(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.EnsureAdmin(ctx, "admin@example.org", "long enough", "")
	require.NoError(t, err)
	session, err := svc.SignInWithPassword(ctx, "admin@example.org", "long enough")
	require.NoError(t, err)

	svc.SignOut(session.ID)
	assert.False(t, svc.IsAdmin(ctx, session.ID))
}

func TestEnsureAdmin_PromotesExistingUser(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	existing, err := users.Create(ctx, db.UserProfile{Email: "asha@example.org", Provider: ProviderGoogle})
	require.NoError(t, err)

	id, err := svc.EnsureAdmin(ctx, "asha@example.org", "long enough", "Asha")
	require.NoError(t, err)
	assert.Equal(t, existing, id)

	profile, err := users.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin())
	assert.Equal(t, "Asha", profile.DisplayName)

	_, err = svc.EnsureAdmin(ctx, "asha@example.org", "short", "")
	assert.Error(t, err)
}

func TestSignInWithGoogle_CreatesUserProfile(t *testing.T) {
	provider := &fakeProvider{identity: Identity{Email: "Ravi@Example.org", Name: "Ravi", Verified: true}}
	svc, users := newTestService(t, provider)
	ctx := context.Background()

	loginURL, err := svc.GoogleLoginURL()
	require.NoError(t, err)
	state := loginURL[len("https://accounts.example.com/auth?state="):]

	session, err := svc.SignInWithGoogle(ctx, state, "code-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"code-1"}, provider.codes)

	profile, err := users.Get(ctx, session.UserID)
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.org", profile.Email)
	assert.Equal(t, db.RoleUser, profile.Role)
	assert.Equal(t, ProviderGoogle, profile.Provider)
	assert.False(t, svc.IsAdmin(ctx, session.ID))

	// state is single use
	_, err = svc.SignInWithGoogle(ctx, state, "code-2")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSignInWithGoogle_ReusesProfileAndRejectsUnverified(t *testing.T) {
	provider := &fakeProvider{identity: Identity{Email: "admin@example.org", Verified: true}}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	adminID, err := svc.EnsureAdmin(ctx, "admin@example.org", "long enough", "")
	require.NoError(t, err)

	state, err := svc.sessions.NewState()
	require.NoError(t, err)
	session, err := svc.SignInWithGoogle(ctx, state, "code")
	require.NoError(t, err)
	assert.Equal(t, adminID, session.UserID)
	assert.True(t, svc.IsAdmin(ctx, session.ID))

	provider.identity.Verified = false
	state, err = svc.sessions.NewState()
	require.NoError(t, err)
	_, err = svc.SignInWithGoogle(ctx, state, "code")
	assert.ErrorIs(t, err, ErrUnverifiedEmail)

	provider.identity.Verified = true
	provider.err = errors.New("exchange failed")
	state, err = svc.sessions.NewState()
	require.NoError(t, err)
	_, err = svc.SignInWithGoogle(ctx, state, "code")
	assert.EqualError(t, err, "exchange failed")
}

func TestGoogleDisabled(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GoogleLoginURL()
	assert.ErrorIs(t, err, ErrProviderDisabled)

	_, err = svc.SignInWithGoogle(context.Background(), "s", "c")
	assert.ErrorIs(t, err, ErrProviderDisabled)
}

package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/shivamksharma/devdonations/internal/config"
)

func testOAuthClient() *config.OAuthClientConfig {
	return &config.OAuthClientConfig{
		Web: &config.OAuthClient{
			ClientID:                "abc.apps.googleusercontent.com",
			ProjectID:               "devdonations",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "shh",
			RedirectURIs:            []string{"http://localhost:8080/admin/auth/google/callback"},
		},
	}
}

func TestGetOAuthConfig_MailboxScopes(t *testing.T) {
	cfg, err := GetOAuthConfig(testOAuthClient())
	require.NoError(t, err)

	assert.Equal(t, "abc.apps.googleusercontent.com", cfg.ClientID)
	assert.ElementsMatch(t, []string{ScopeSheets, ScopeGmailSend}, cfg.Scopes)
	assert.Equal(t, "http://localhost:3000/oauth/callback", cfg.RedirectURL)
}

func TestSignInConfig(t *testing.T) {
	cfg, err := SignInConfig(testOAuthClient(), "https://donations.example.org/admin/auth/google/callback")
	require.NoError(t, err)

	assert.Contains(t, cfg.Scopes, ScopeEmail)
	assert.Equal(t, "https://donations.example.org/admin/auth/google/callback", cfg.RedirectURL)
}

func TestTokenFile_SaveLoadDelete(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	token, err := LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Nil(t, token)

	require.NoError(t, SaveTokenToFile("test", &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}))

	token, err = LoadTokenFromFile("test")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "refresh", token.RefreshToken)

	require.NoError(t, DeleteTokenFile("test"))
	require.NoError(t, DeleteTokenFile("test"))

	token, err = LoadTokenFromFile("test")
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestGetStoredToken_NoToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ClearToken()

	cfg, err := GetOAuthConfig(testOAuthClient())
	require.NoError(t, err)

	_, err = GetStoredToken(context.Background(), cfg, "test", zap.NewNop())
	assert.True(t, errors.Is(err, ErrNoToken))
}

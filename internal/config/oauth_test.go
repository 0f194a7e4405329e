package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOAuthClient() *OAuthClient {
	return &OAuthClient{
		ClientID:                "test-client-id.apps.googleusercontent.com",
		ProjectID:               "test-project",
		AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
		TokenURI:                "https://oauth2.googleapis.com/token",
		AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
		ClientSecret:            "test-secret",
		RedirectURIs:            []string{"http://localhost"},
	}
}

func TestValidateOAuthClient_Installed(t *testing.T) {
	cfg := &OAuthClientConfig{Installed: validOAuthClient()}

	assert.NoError(t, ValidateOAuthClient(cfg))
	assert.Same(t, cfg.Installed, cfg.Client())
}

func TestValidateOAuthClient_WebPreferred(t *testing.T) {
	cfg := &OAuthClientConfig{Installed: validOAuthClient(), Web: validOAuthClient()}

	assert.NoError(t, ValidateOAuthClient(cfg))
	assert.Same(t, cfg.Web, cfg.Client())
}

func TestValidateOAuthClient_NoSection(t *testing.T) {
	err := ValidateOAuthClient(&OAuthClientConfig{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateOAuthClient_InvalidURL(t *testing.T) {
	client := validOAuthClient()
	client.AuthURI = "not-a-valid-url"

	err := ValidateOAuthClient(&OAuthClientConfig{Web: client})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauthClient.test.json")
	contents := `{
  "web": {
    "client_id": "abc.apps.googleusercontent.com",
    "project_id": "devdonations",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "shh",
    "redirect_uris": ["http://localhost:8080/admin/auth/google/callback"]
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Installed)
	assert.Equal(t, "abc.apps.googleusercontent.com", cfg.Client().ClientID)
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadOAuthClientFromPath(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse oauth client file")
}

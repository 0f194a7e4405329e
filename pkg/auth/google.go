package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Identity is what a federated sign-in tells us about the user
type Identity struct {
	Email    string
	Name     string
	Verified bool
}

// IdentityProvider is a federated sign-in provider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// GoogleProvider signs users in with their Google account
type GoogleProvider struct {
	config *oauth2.Config
}

var _ IdentityProvider = (*GoogleProvider)(nil)

func NewGoogleProvider(config *oauth2.Config) *GoogleProvider {
	return &GoogleProvider{config: config}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for the user's Google profile
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	service, err := oauth2api.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get user info: %w", err)
	}

	identity := Identity{Email: info.Email, Name: info.Name}
	if info.VerifiedEmail != nil {
		identity.Verified = *info.VerifiedEmail
	}
	return identity, nil
}

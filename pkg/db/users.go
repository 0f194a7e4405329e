package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const UsersCollection = "users"

// Users accesses user profile documents
type Users struct {
	*Collection[UserProfile]
}

func NewUsers(backend docstore.Backend, logger *zap.Logger) *Users {
	return &Users{NewCollection(UsersCollection, backend, logger,
		WithUpdatable[UserProfile]("displayName", "role", "provider", "passwordHash"),
		WithDefaults(func(u *UserProfile, _ time.Time) {
			u.Email = strings.ToLower(strings.TrimSpace(u.Email))
			if u.Role == "" {
				u.Role = RoleUser
			}
		}),
	)}
}

// FindByEmail retrieves the profile registered with an email address
func (u *Users) FindByEmail(ctx context.Context, email string) (UserProfile, error) {
	profile, err := u.First(ctx, docstore.Filter{Field: "email", Value: strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		return UserProfile{}, fmt.Errorf("failed to find user %s: %w", email, err)
	}
	return profile, nil
}

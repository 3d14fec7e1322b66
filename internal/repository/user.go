package repository

import (
	"context"
	"errors"

	"coursepdf/internal/model"
)

// ErrDuplicateUsername is returned when a user insert collides with an
// existing username (unique constraint).
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepository defines data access for registered identities.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// ProfileRepository defines data access for lazily-created user profiles.
type ProfileRepository interface {
	// Ensure returns the profile for userID, creating an empty one if
	// absent. Concurrent first accesses are resolved by the unique
	// constraint on user_id: a conflicting insert is a no-op and the
	// existing row is fetched and returned.
	Ensure(ctx context.Context, userID string) (*model.UserProfile, error)

	Update(ctx context.Context, userID, bio, institution string) (*model.UserProfile, error)
}

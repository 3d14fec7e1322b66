package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
)

// ProfileService exposes the lazily-created user profile.
type ProfileService interface {
	// Get returns the requester's profile, creating an empty one on first
	// access. Idempotent.
	Get(ctx context.Context, userID string) (*model.UserProfile, error)

	Update(ctx context.Context, userID, bio, institution string) (*model.UserProfile, error)
}

type profileService struct {
	profiles repository.ProfileRepository
}

// NewProfileService constructs a new ProfileService.
func NewProfileService(profiles repository.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

func (s *profileService) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.profiles.Ensure(ctx, userID)
}

func (s *profileService) Update(ctx context.Context, userID, bio, institution string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	// Ensure the row exists so a first-time update does not 404.
	if _, err := s.profiles.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	out, err := s.profiles.Update(ctx, userID, bio, institution)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

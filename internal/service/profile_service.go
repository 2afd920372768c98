package service

import (
	"context"
	"strings"

	"chirper/internal/domain"
	"chirper/internal/repository"
)

// ProfileService resolves public profiles by username.
type ProfileService interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.Profile, error)
}

type profileService struct {
	users repository.UserRepository
}

func NewProfileService(users repository.UserRepository) ProfileService {
	return &profileService{users: users}
}

func (s *profileService) GetUserByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrNotFound
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	profile := domain.ProfileOf(user)
	return &profile, nil
}

package auth

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chirper/internal/domain"
	"chirper/internal/identity"
	"chirper/internal/repository"
)

// Service describes account lifecycle operations: the sign-in entry point
// and everything around it.
type Service interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, userID string, body io.Reader, contentType string) (string, error)
}

type service struct {
	users   repository.UserRepository
	avatars identity.AvatarStore
}

// NewService wires account management over the user repository. avatars may
// be nil; registration then falls back to a generated avatar URL and uploads
// are rejected.
func NewService(users repository.UserRepository, avatars identity.AvatarStore) Service {
	return &service{users: users, avatars: avatars}
}

func (s *service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, &domain.ValidationError{Field: "username", Message: "username is required"}
	}
	if password == "" {
		return nil, &domain.ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return nil, &domain.ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:              uuid.NewString(),
		Username:        username,
		PasswordHash:    string(hash),
		ProfileImageURL: identity.DefaultAvatarURL(username),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *service) UpdateAvatar(ctx context.Context, userID string, body io.Reader, contentType string) (string, error) {
	if s.avatars == nil {
		return "", fmt.Errorf("avatar storage is not configured")
	}

	url, err := s.avatars.Upload(ctx, userID, body, contentType)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateProfileImageURL(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:              user.ID,
		Username:        user.Username,
		ProfileImageURL: user.ProfileImageURL,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

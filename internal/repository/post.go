package repository

import (
	"context"

	"chirper/internal/domain"
)

// PostRepository exposes persistence operations for the posts relation.
// FindUnique returns (nil, nil) when no row matches; callers decide whether
// that is an error.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	FindMany(ctx context.Context, limit int) ([]domain.Post, error)
	FindManyByAuthor(ctx context.Context, authorID string) ([]domain.Post, error)
	FindUnique(ctx context.Context, id string) (*domain.Post, error)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chirper/internal/domain"
	"chirper/internal/identity"
	"chirper/internal/ratelimit"
	"chirper/internal/repository"
)

// feedLimit caps how many posts a single feed read returns.
const feedLimit = 100

// Publisher receives newly created posts, typically to fan them out to live
// feed subscribers. Implementations must not block.
type Publisher interface {
	Publish(post domain.PostWithAuthor)
}

// PostService orchestrates post reads and writes: validation, rate limiting,
// persistence, and author enrichment.
type PostService interface {
	GetAll(ctx context.Context) ([]domain.PostWithAuthor, error)
	GetByID(ctx context.Context, id string) (*domain.PostWithAuthor, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.PostWithAuthor, error)
	Create(ctx context.Context, authorID, content string) (*domain.Post, error)
}

type postService struct {
	posts     repository.PostRepository
	directory identity.Directory
	limiter   ratelimit.Limiter
	publisher Publisher
}

func NewPostService(posts repository.PostRepository, directory identity.Directory, limiter ratelimit.Limiter, publisher Publisher) PostService {
	return &postService{
		posts:     posts,
		directory: directory,
		limiter:   limiter,
		publisher: publisher,
	}
}

func (s *postService) GetAll(ctx context.Context) ([]domain.PostWithAuthor, error) {
	posts, err := s.posts.FindMany(ctx, feedLimit)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, posts)
}

func (s *postService) GetByID(ctx context.Context, id string) (*domain.PostWithAuthor, error) {
	post, err := s.posts.FindUnique(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}

	enriched, err := s.withAuthors(ctx, []domain.Post{*post})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

func (s *postService) GetByUserID(ctx context.Context, userID string) ([]domain.PostWithAuthor, error) {
	posts, err := s.posts.FindManyByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, posts)
}

func (s *postService) Create(ctx context.Context, authorID, content string) (*domain.Post, error) {
	if authorID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}

	ok, err := s.limiter.Allow(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !ok {
		return nil, domain.ErrTooManyRequests
	}

	post := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if enriched, err := s.withAuthors(ctx, []domain.Post{*post}); err == nil {
			s.publisher.Publish(enriched[0])
		}
	}

	return post, nil
}

// withAuthors joins a page of posts with their authors using a single batch
// directory lookup of the distinct author ids. A post whose author cannot be
// resolved to a user with a username fails the whole read: a dangling author
// id is a data-integrity problem, not something to paper over per row.
func (s *postService) withAuthors(ctx context.Context, posts []domain.Post) ([]domain.PostWithAuthor, error) {
	if len(posts) == 0 {
		return []domain.PostWithAuthor{}, nil
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].AuthorID
	}

	profiles, err := s.directory.ListUsers(ctx, ids, feedLimit)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	result := make([]domain.PostWithAuthor, len(posts))
	for i := range posts {
		author, ok := byID[posts[i].AuthorID]
		if !ok || author.Username == "" {
			return nil, fmt.Errorf("author for post %s: %w", posts[i].ID, domain.ErrNotFound)
		}
		result[i] = domain.PostWithAuthor{Post: posts[i], Author: author}
	}
	return result, nil
}

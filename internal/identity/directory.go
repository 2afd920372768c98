package identity

import (
	"context"
	"fmt"

	"chirper/internal/domain"
	"chirper/internal/repository"
)

// Directory looks up user identities by id. It is the narrow seam in front
// of whatever holds the accounts, so read paths can batch author lookups and
// tests can substitute a stand-in.
type Directory interface {
	ListUsers(ctx context.Context, ids []string, limit int) ([]domain.Profile, error)
}

type repoDirectory struct {
	users repository.UserRepository
}

// NewDirectory returns a Directory backed by the user repository.
func NewDirectory(users repository.UserRepository) Directory {
	return &repoDirectory{users: users}
}

func (d *repoDirectory) ListUsers(ctx context.Context, ids []string, limit int) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// collapse duplicates so a busy author costs one row, not one per post
	seen := make(map[string]struct{}, len(ids))
	distinct := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	users, err := d.users.ListByIDs(ctx, distinct, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	profiles := make([]domain.Profile, len(users))
	for i := range users {
		profiles[i] = domain.ProfileOf(&users[i])
	}
	return profiles, nil
}

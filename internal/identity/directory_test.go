package identity

import (
	"context"
	"testing"

	"chirper/internal/domain"
)

type recordingUserRepo struct {
	users  []domain.User
	gotIDs []string
}

func (r *recordingUserRepo) Init(context.Context) error { return nil }

func (r *recordingUserRepo) Create(context.Context, *domain.User) error { return nil }

func (r *recordingUserRepo) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, nil
}

func (r *recordingUserRepo) GetByID(context.Context, string) (*domain.User, error) {
	return nil, nil
}

func (r *recordingUserRepo) UpdateProfileImageURL(context.Context, string, string) error { return nil }

func (r *recordingUserRepo) ListByIDs(_ context.Context, ids []string, _ int) ([]domain.User, error) {
	r.gotIDs = ids
	return r.users, nil
}

func TestDirectory_CollapsesDuplicateIDs(t *testing.T) {
	repo := &recordingUserRepo{users: []domain.User{
		{ID: "u1", Username: "alice", PasswordHash: "secret"},
	}}
	dir := NewDirectory(repo)

	profiles, err := dir.ListUsers(context.Background(), []string{"u1", "u1", "u1"}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.gotIDs) != 1 {
		t.Fatalf("expected one distinct id, repo saw %v", repo.gotIDs)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected one profile, got %d", len(profiles))
	}
	if profiles[0].Username != "alice" {
		t.Fatalf("unexpected profile %+v", profiles[0])
	}
}

func TestDirectory_EmptyInput(t *testing.T) {
	dir := NewDirectory(&recordingUserRepo{})

	profiles, err := dir.ListUsers(context.Background(), nil, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected no profiles, got %d", len(profiles))
	}
}

func TestDefaultAvatarURL_EscapesSeed(t *testing.T) {
	url := DefaultAvatarURL("alice & bob")
	if url == DefaultAvatarURL("alice") {
		t.Fatalf("seeds must differ per username")
	}
	for _, r := range url {
		if r == ' ' {
			t.Fatalf("url must not contain raw spaces: %s", url)
		}
	}
}

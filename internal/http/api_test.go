package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"chirper/internal/auth"
	"chirper/internal/domain"
	"chirper/internal/service"
)

type fakePostService struct {
	feed      []domain.PostWithAuthor
	byID      map[string]*domain.PostWithAuthor
	createErr error
	created   []domain.Post
}

func (s *fakePostService) GetAll(context.Context) ([]domain.PostWithAuthor, error) {
	return s.feed, nil
}

func (s *fakePostService) GetByID(_ context.Context, id string) (*domain.PostWithAuthor, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *fakePostService) GetByUserID(_ context.Context, userID string) ([]domain.PostWithAuthor, error) {
	var out []domain.PostWithAuthor
	for _, p := range s.feed {
		if p.Post.AuthorID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePostService) Create(_ context.Context, authorID, content string) (*domain.Post, error) {
	if authorID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}
	if s.createErr != nil {
		return nil, s.createErr
	}
	post := domain.Post{ID: "p1", AuthorID: authorID, Content: content, CreatedAt: time.Now().UTC()}
	s.created = append(s.created, post)
	return &post, nil
}

type fakeProfileService struct {
	profiles map[string]*domain.Profile
}

func (s *fakeProfileService) GetUserByUsername(_ context.Context, username string) (*domain.Profile, error) {
	if p, ok := s.profiles[username]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

type fakeAccounts struct {
	users map[string]*domain.User // username -> user, password is "password123"
}

func (s *fakeAccounts) Register(_ context.Context, username, password string) (*domain.User, error) {
	if _, ok := s.users[username]; ok {
		return nil, domain.ErrAlreadyExists
	}
	user := &domain.User{ID: "u-" + username, Username: username}
	s.users[username] = user
	return user, nil
}

func (s *fakeAccounts) Authenticate(_ context.Context, username, password string) (*domain.User, error) {
	user, ok := s.users[username]
	if !ok || password != "password123" {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *fakeAccounts) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeAccounts) UpdateAvatar(context.Context, string, io.Reader, string) (string, error) {
	return "", domain.ErrNotFound
}

func newTestRouter(posts service.PostService, profiles service.ProfileService, accounts auth.Service) (*gin.Engine, *auth.TokenIssuer) {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	router := gin.New()
	NewHandler(posts, profiles, accounts, tokens, nil, nil).RegisterRoutes(router)
	return router, tokens
}

func doJSON(router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func feedFixture() []domain.PostWithAuthor {
	return []domain.PostWithAuthor{
		{
			Post:   domain.Post{ID: "p1", AuthorID: "u1", Content: "🎉", CreatedAt: time.Now().UTC()},
			Author: domain.Profile{ID: "u1", Username: "alice", ProfileImageURL: "https://example.com/a.png"},
		},
	}
}

func TestGetAllPosts(t *testing.T) {
	router, _ := newTestRouter(&fakePostService{feed: feedFixture()}, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})

	w := doJSON(router, http.MethodGet, "/api/posts", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp []PostWithAuthorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].Post.Content != "🎉" || resp[0].Author.Username != "alice" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGetPostByID_NotFound(t *testing.T) {
	router, _ := newTestRouter(&fakePostService{byID: map[string]*domain.PostWithAuthor{}}, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})

	w := doJSON(router, http.MethodGet, "/api/posts/ghost", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreatePost_RequiresAuth(t *testing.T) {
	router, _ := newTestRouter(&fakePostService{}, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})

	w := doJSON(router, http.MethodPost, "/api/posts", `{"content":"🎉"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreatePost_ValidationError(t *testing.T) {
	posts := &fakePostService{}
	router, tokens := newTestRouter(posts, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})
	token, _ := tokens.Issue(&domain.User{ID: "u1", Username: "alice"})

	w := doJSON(router, http.MethodPost, "/api/posts", `{"content":"not emoji"}`, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["field"] != "content" {
		t.Fatalf("expected field-level error on content, got %v", body)
	}
	if len(posts.created) != 0 {
		t.Fatalf("nothing should be created")
	}
}

func TestCreatePost_RateLimited(t *testing.T) {
	posts := &fakePostService{createErr: domain.ErrTooManyRequests}
	router, tokens := newTestRouter(posts, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})
	token, _ := tokens.Issue(&domain.User{ID: "u1", Username: "alice"})

	w := doJSON(router, http.MethodPost, "/api/posts", `{"content":"🎉"}`, token)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected a Retry-After header")
	}
}

func TestCreatePost_Success(t *testing.T) {
	posts := &fakePostService{}
	router, tokens := newTestRouter(posts, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})
	token, _ := tokens.Issue(&domain.User{ID: "u1", Username: "alice"})

	w := doJSON(router, http.MethodPost, "/api/posts", `{"content":"🎉"}`, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp PostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "🎉" || resp.AuthorID != "u1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGetPostsByUserID_EmptyIsOKAndEmpty(t *testing.T) {
	router, _ := newTestRouter(&fakePostService{}, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})

	w := doJSON(router, http.MethodGet, "/api/users/u9/posts", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestGetProfile(t *testing.T) {
	profiles := &fakeProfileService{profiles: map[string]*domain.Profile{
		"alice": {ID: "u1", Username: "alice", ProfileImageURL: "https://example.com/a.png"},
	}}
	router, _ := newTestRouter(&fakePostService{}, profiles, &fakeAccounts{users: map[string]*domain.User{}})

	w := doJSON(router, http.MethodGet, "/api/profile/alice", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/profile/ghost", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown profile, got %d", w.Code)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	router, _ := newTestRouter(&fakePostService{}, &fakeProfileService{}, &fakeAccounts{users: map[string]*domain.User{}})

	w := doJSON(router, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"password123"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var session SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected a session token")
	}

	w = doJSON(router, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", w.Code)
	}

	w = doJSON(router, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"password123"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

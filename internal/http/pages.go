package http

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"

	"chirper/internal/auth"
	"chirper/internal/domain"
	"chirper/internal/service"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const pageCacheSize = 512

// Pages serves the server-rendered views. Each page prefetches its data
// through the same services the API uses and embeds the result as a JSON
// snapshot (window.__STATE__) so the client view hydrates without a second
// fetch. Parameterized pages (profile, single post) are rendered on first
// demand and then served from an LRU cache; the feed is always fresh.
type Pages struct {
	posts    service.PostService
	profiles service.ProfileService
	accounts auth.Service
	tmpl     *template.Template
	cache    *lru.Cache
}

func NewPages(posts service.PostService, profiles service.ProfileService, accounts auth.Service) (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	cache, err := lru.New(pageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}

	return &Pages{
		posts:    posts,
		profiles: profiles,
		accounts: accounts,
		tmpl:     tmpl,
		cache:    cache,
	}, nil
}

func (p *Pages) RegisterRoutes(router *gin.Engine) {
	router.GET("/", p.home)
	router.GET("/signin", p.signin)
	router.GET("/post/:id", p.postPage)
	// "@username" slugs cannot be a gin route parameter, so they ride the
	// no-route fallback
	router.NoRoute(p.noRoute)
}

// snapshot is the serializable cache handed to the client for hydration,
// keyed the way the client query layer expects.
type snapshot struct {
	Queries     map[string]any   `json:"queries"`
	CurrentUser *ProfileResponse `json:"currentUser,omitempty"`
}

type pageData struct {
	Title       string
	State       template.JS
	Posts       []PostWithAuthorResponse
	Post        *PostWithAuthorResponse
	Profile     *ProfileResponse
	CurrentUser *ProfileResponse
}

func (p *Pages) home(c *gin.Context) {
	posts, err := p.posts.GetAll(c.Request.Context())
	if err != nil {
		p.renderError(c, err)
		return
	}

	resp := postsToResponse(posts)
	current := p.currentUser(c)

	snap := snapshot{
		Queries:     map[string]any{"posts.getAll": resp},
		CurrentUser: current,
	}
	p.render(c, http.StatusOK, "home.tmpl", pageData{
		Title:       "Chirper",
		State:       marshalState(snap),
		Posts:       resp,
		CurrentUser: current,
	})
}

func (p *Pages) signin(c *gin.Context) {
	p.render(c, http.StatusOK, "signin.tmpl", pageData{Title: "Sign in"})
}

func (p *Pages) postPage(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		p.renderError(c, fmt.Errorf("post id: %w", domain.ErrMissingParameter))
		return
	}

	if body, ok := p.cached(c.Request.URL.Path); ok {
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
		return
	}

	post, err := p.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		p.renderError(c, err)
		return
	}

	resp := postToResponse(*post)
	snap := snapshot{Queries: map[string]any{"posts.getById:" + id: resp}}
	body, err := p.renderToBytes("post.tmpl", pageData{
		Title: fmt.Sprintf("%s - @%s", resp.Post.Content, resp.Author.Username),
		State: marshalState(snap),
		Post:  &resp,
	})
	if err != nil {
		p.renderError(c, err)
		return
	}

	p.cache.Add(c.Request.URL.Path, body)
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (p *Pages) noRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if !strings.HasPrefix(path, "/@") {
		p.renderNotFound(c)
		return
	}

	username := strings.TrimPrefix(path, "/@")
	if username == "" || strings.Contains(username, "/") {
		p.renderError(c, fmt.Errorf("profile slug: %w", domain.ErrMissingParameter))
		return
	}

	if body, ok := p.cached(path); ok {
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
		return
	}

	profile, err := p.profiles.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		p.renderError(c, err)
		return
	}

	posts, err := p.posts.GetByUserID(c.Request.Context(), profile.ID)
	if err != nil {
		p.renderError(c, err)
		return
	}

	profileResp := profileToResponse(*profile)
	postsResp := postsToResponse(posts)
	snap := snapshot{Queries: map[string]any{
		"profile.getUserByUsername:" + username: profileResp,
		"posts.getByUserId:" + profile.ID:       postsResp,
	}}
	body, err := p.renderToBytes("profile.tmpl", pageData{
		Title:   "@" + profile.Username,
		State:   marshalState(snap),
		Profile: &profileResp,
		Posts:   postsResp,
	})
	if err != nil {
		p.renderError(c, err)
		return
	}

	p.cache.Add(path, body)
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (p *Pages) cached(key string) ([]byte, bool) {
	v, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}

func (p *Pages) currentUser(c *gin.Context) *ProfileResponse {
	userID := auth.UserID(c)
	if userID == "" {
		return nil
	}
	user, err := p.accounts.GetByID(c.Request.Context(), userID)
	if err != nil {
		return nil
	}
	return &ProfileResponse{
		ID:              user.ID,
		Username:        user.Username,
		ProfileImageURL: user.ProfileImageURL,
	}
}

func (p *Pages) render(c *gin.Context, status int, name string, data pageData) {
	body, err := p.renderToBytes(name, data)
	if err != nil {
		c.String(http.StatusInternalServerError, "render error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", body)
}

func (p *Pages) renderToBytes(name string, data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// renderError distinguishes not-found from everything else: missing data
// gets the dedicated 404 page, bad parameters a 400, the rest a plain 500.
func (p *Pages) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p.renderNotFound(c)
	case errors.Is(err, domain.ErrMissingParameter):
		c.String(http.StatusBadRequest, err.Error())
	default:
		c.String(http.StatusInternalServerError, "something went wrong")
	}
}

func (p *Pages) renderNotFound(c *gin.Context) {
	p.render(c, http.StatusNotFound, "notfound.tmpl", pageData{Title: "404"})
}

func marshalState(snap snapshot) template.JS {
	b, err := json.Marshal(snap)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(b)
}

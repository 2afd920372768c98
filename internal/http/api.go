package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chirper/internal/auth"
	"chirper/internal/domain"
	"chirper/internal/live"
	"chirper/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	posts    service.PostService
	profiles service.ProfileService
	accounts auth.Service
	tokens   *auth.TokenIssuer
	hub      *live.Hub
	pages    *Pages
}

func NewHandler(posts service.PostService, profiles service.ProfileService, accounts auth.Service, tokens *auth.TokenIssuer, hub *live.Hub, pages *Pages) *Handler {
	return &Handler{
		posts:    posts,
		profiles: profiles,
		accounts: accounts,
		tokens:   tokens,
		hub:      hub,
		pages:    pages,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(auth.Identify(h.tokens))

	api := router.Group("/api")
	{
		api.GET("/posts", h.getAllPosts)
		api.GET("/posts/:id", h.getPostByID)
		api.GET("/users/:userId/posts", h.getPostsByUserID)
		api.GET("/profile/:username", h.getUserByUsername)
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		private := api.Group("")
		private.Use(auth.Require())
		{
			private.POST("/posts", h.createPost)
			private.POST("/profile/avatar", h.uploadAvatar)
		}
	}

	if h.hub != nil {
		router.GET("/ws/feed", func(c *gin.Context) {
			h.hub.ServeWS(c.Writer, c.Request)
		})
	}

	if h.pages != nil {
		h.pages.RegisterRoutes(router)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) getAllPosts(c *gin.Context) {
	posts, err := h.posts.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getPostByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) getPostsByUserID(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	posts, err := h.posts.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getUserByUsername(c *gin.Context) {
	profile, err := h.profiles.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

type createPostRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "content"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), auth.UserID(c), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PostResponse{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt.Format(time.RFC3339),
	})
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.issueSession(c, user, http.StatusCreated)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.issueSession(c, user, http.StatusOK)
}

func (h *Handler) issueSession(c *gin.Context, user *domain.User, status int) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(status, SessionResponse{
		Token: token,
		User: ProfileResponse{
			ID:              user.ID,
			Username:        user.Username,
			ProfileImageURL: user.ProfileImageURL,
		},
	})
}

const maxAvatarBytes = 2 << 20

func (h *Handler) uploadAvatar(c *gin.Context) {
	contentType := c.ContentType()
	if contentType != "image/png" && contentType != "image/jpeg" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be image/png or image/jpeg"})
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes)
	url, err := h.accounts.UpdateAvatar(c.Request.Context(), auth.UserID(c), body, contentType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile_image_url": url})
}

// writeError maps domain errors onto HTTP statuses. Anything outside the
// taxonomy is a 500.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTooManyRequests):
		c.Header("Retry-After", strconv.Itoa(60))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrMissingParameter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type PostResponse struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type ProfileResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

type PostWithAuthorResponse struct {
	Post   PostResponse    `json:"post"`
	Author ProfileResponse `json:"author"`
}

type SessionResponse struct {
	Token string          `json:"token"`
	User  ProfileResponse `json:"user"`
}

func postToResponse(p domain.PostWithAuthor) PostWithAuthorResponse {
	return PostWithAuthorResponse{
		Post: PostResponse{
			ID:        p.Post.ID,
			AuthorID:  p.Post.AuthorID,
			Content:   p.Post.Content,
			CreatedAt: p.Post.CreatedAt.Format(time.RFC3339),
		},
		Author: profileToResponse(p.Author),
	}
}

func profileToResponse(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:              p.ID,
		Username:        p.Username,
		ProfileImageURL: p.ProfileImageURL,
	}
}

func postsToResponse(posts []domain.PostWithAuthor) []PostWithAuthorResponse {
	resp := make([]PostWithAuthorResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	return resp
}

package domain

import "time"

// Post is a single emoji message. Posts are insert-only: once written they
// are never updated or deleted.
type Post struct {
	ID        string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// Profile is the client-safe mirror of a user held by the identity
// directory: just enough to render an author next to a post.
type Profile struct {
	ID              string
	Username        string
	ProfileImageURL string
}

// PostWithAuthor pairs a post with its resolved author profile.
type PostWithAuthor struct {
	Post   Post
	Author Profile
}

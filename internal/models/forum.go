package models

import "time"

// Post is a community discussion thread.
type Post struct {
	ID           string    `db:"id" json:"id"`
	AuthorID     string    `db:"author_id" json:"author_id"`
	Title        string    `db:"title" json:"title"`
	Body         string    `db:"body" json:"body"`
	Tags         []string  `db:"-" json:"tags"`
	LikeCount    int       `db:"like_count" json:"like_count"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Like marks a user's appreciation of a post, at most one per user per post.
type Like struct {
	PostID    string    `db:"post_id" json:"post_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PostFilter captures forum listing filters.
type PostFilter struct {
	Tag       string
	AuthorID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

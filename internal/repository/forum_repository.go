package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

// ForumRepository provides persistence for community posts, comments and
// likes.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository creates a new forum repository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

type postRow struct {
	ID           string         `db:"id"`
	AuthorID     string         `db:"author_id"`
	Title        string         `db:"title"`
	Body         string         `db:"body"`
	Tags         pq.StringArray `db:"tags"`
	LikeCount    int            `db:"like_count"`
	CommentCount int            `db:"comment_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (row postRow) toModel() models.Post {
	return models.Post{
		ID:           row.ID,
		AuthorID:     row.AuthorID,
		Title:        row.Title,
		Body:         row.Body,
		Tags:         []string(row.Tags),
		LikeCount:    row.LikeCount,
		CommentCount: row.CommentCount,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

const postColumns = "id, author_id, title, body, tags, like_count, comment_count, created_at, updated_at"

// ListPosts returns posts matching the filter, newest first by default.
func (r *ForumRepository) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error) {
	base := "FROM posts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)+1))
		args = append(args, filter.Tag)
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)+1))
		args = append(args, filter.AuthorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR body ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"created_at": true, "like_count": true, "comment_count": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", postColumns, base, sortBy, order, size, offset)
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toModel())
	}
	return posts, total, nil
}

// FindPost loads a post by id.
func (r *ForumRepository) FindPost(ctx context.Context, id string) (*models.Post, error) {
	query := fmt.Sprintf("SELECT %s FROM posts WHERE id = $1", postColumns)
	var row postRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	post := row.toModel()
	return &post, nil
}

// CreatePost stores a new discussion thread.
func (r *ForumRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO posts (id, author_id, title, body, tags, like_count, comment_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, post.ID, post.AuthorID, post.Title, post.Body, pq.Array(post.Tags), post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// ListComments returns a post's comments oldest first.
func (r *ForumRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	const query = `SELECT id, post_id, author_id, body, created_at FROM comments WHERE post_id = $1 ORDER BY created_at ASC`
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CreateComment stores a comment and bumps the post's comment count.
func (r *ForumRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create comment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES (:id, :post_id, :author_id, :body, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}

	const bump = `UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, bump, comment.PostID); err != nil {
		return fmt.Errorf("bump comment count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create comment: %w", err)
	}
	return nil
}

// Like records a like; returns false when the user already liked the post.
func (r *ForumRepository) Like(ctx context.Context, postID, userID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin like: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO likes (post_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (post_id, user_id) DO NOTHING`
	result, err := tx.ExecContext(ctx, insert, postID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("like rows affected: %w", err)
	}
	if rows == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	const bump = `UPDATE posts SET like_count = like_count + 1 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, bump, postID); err != nil {
		return false, fmt.Errorf("bump like count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit like: %w", err)
	}
	return true, nil
}

// Unlike removes a like and decrements the counter when present.
func (r *ForumRepository) Unlike(ctx context.Context, postID, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unlike: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlike rows affected: %w", err)
	}
	if rows > 0 {
		if _, err = tx.ExecContext(ctx, `UPDATE posts SET like_count = like_count - 1 WHERE id = $1 AND like_count > 0`, postID); err != nil {
			return fmt.Errorf("drop like count: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit unlike: %w", err)
	}
	return nil
}

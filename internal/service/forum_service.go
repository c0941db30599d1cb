package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type forumRepository interface {
	ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, int, error)
	FindPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	Like(ctx context.Context, postID, userID string) (bool, error)
	Unlike(ctx context.Context, postID, userID string) error
}

// CreatePostRequest opens a new discussion thread.
type CreatePostRequest struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body" validate:"required"`
	Tags  []string `json:"tags" validate:"max=5,dive,min=1,max=50"`
}

// CreateCommentRequest replies to a post.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// ForumService provides the community discussion board.
type ForumService struct {
	repo      forumRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewForumService constructs a ForumService instance.
func NewForumService(repo forumRepository, validate *validator.Validate, logger *zap.Logger) *ForumService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ForumService{repo: repo, validator: validate, logger: logger}
}

// ListPosts returns discussion threads matching the filter.
func (s *ForumService) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, *models.Pagination, error) {
	posts, total, err := s.repo.ListPosts(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetPost returns a thread with its comments.
func (s *ForumService) GetPost(ctx context.Context, id string) (*models.Post, []models.Comment, error) {
	post, err := s.repo.FindPost(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch post")
	}
	comments, err := s.repo.ListComments(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return post, comments, nil
}

// CreatePost opens a new thread authored by the caller.
func (s *ForumService) CreatePost(ctx context.Context, authorID string, req CreatePostRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	post := &models.Post{
		AuthorID: authorID,
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	s.logger.Info("post created", zap.String("post_id", post.ID), zap.String("author_id", authorID))
	return post, nil
}

// AddComment replies to an existing thread.
func (s *ForumService) AddComment(ctx context.Context, authorID, postID string, req CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if _, err := s.repo.FindPost(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch post")
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Body:     req.Body,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// Like records a one-per-user like on a post.
func (s *ForumService) Like(ctx context.Context, userID, postID string) error {
	liked, err := s.repo.Like(ctx, postID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to like post")
	}
	if !liked {
		return appErrors.Clone(appErrors.ErrConflict, "post already liked")
	}
	return nil
}

// Unlike removes the caller's like from a post.
func (s *ForumService) Unlike(ctx context.Context, userID, postID string) error {
	if err := s.repo.Unlike(ctx, postID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlike post")
	}
	return nil
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/internal/service"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
	"github.com/blocklearn/blocklearn-api/pkg/response"
)

// ForumHandler wires HTTP endpoints to the forum service.
type ForumHandler struct {
	service *service.ForumService
}

// NewForumHandler creates a new handler.
func NewForumHandler(svc *service.ForumService) *ForumHandler {
	return &ForumHandler{service: svc}
}

// ListPosts godoc
// @Summary List discussion threads
// @Tags Forum
// @Produce json
// @Param tag query string false "Filter by tag"
// @Param search query string false "Search title and body"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forum/posts [get]
func (h *ForumHandler) ListPosts(c *gin.Context) {
	filter := models.PostFilter{
		Tag:       c.Query("tag"),
		AuthorID:  c.Query("author_id"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	posts, pagination, err := h.service.ListPosts(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, posts, pagination)
}

// GetPost godoc
// @Summary Get a thread with comments
// @Tags Forum
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forum/posts/{id} [get]
func (h *ForumHandler) GetPost(c *gin.Context) {
	post, comments, err := h.service.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"post": post, "comments": comments}, nil)
}

// CreatePost godoc
// @Summary Open a discussion thread
// @Tags Forum
// @Accept json
// @Produce json
// @Param payload body service.CreatePostRequest true "Post"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /forum/posts [post]
func (h *ForumHandler) CreatePost(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// AddComment godoc
// @Summary Reply to a thread
// @Tags Forum
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forum/posts/{id}/comments [post]
func (h *ForumHandler) AddComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// Like godoc
// @Summary Like a post
// @Tags Forum
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /forum/posts/{id}/like [post]
func (h *ForumHandler) Like(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Like(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Unlike godoc
// @Summary Remove a like
// @Tags Forum
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Router /forum/posts/{id}/like [delete]
func (h *ForumHandler) Unlike(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unlike(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

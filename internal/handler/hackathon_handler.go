package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/internal/service"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
	"github.com/blocklearn/blocklearn-api/pkg/response"
)

// HackathonHandler wires HTTP endpoints to the hackathon service.
type HackathonHandler struct {
	service *service.HackathonService
}

// NewHackathonHandler creates a new handler.
func NewHackathonHandler(svc *service.HackathonService) *HackathonHandler {
	return &HackathonHandler{service: svc}
}

// List godoc
// @Summary List hackathons
// @Description List events with status derived from their dates
// @Tags Hackathons
// @Produce json
// @Param status query string false "UPCOMING, ONGOING or ENDED"
// @Param search query string false "Search title"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /hackathons [get]
func (h *HackathonHandler) List(c *gin.Context) {
	filter := models.HackathonFilter{
		Status:    models.HackathonStatus(c.Query("status")),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	hackathons, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, hackathons, pagination)
}

// Get godoc
// @Summary Get a hackathon
// @Tags Hackathons
// @Produce json
// @Param id path string true "Hackathon ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /hackathons/{id} [get]
func (h *HackathonHandler) Get(c *gin.Context) {
	hackathon, registrations, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, hackathon, nil, map[string]interface{}{
		"registrations": registrations,
	})
}

// Create godoc
// @Summary Create a hackathon
// @Description Publish a new event. Admin only.
// @Tags Hackathons
// @Accept json
// @Produce json
// @Param payload body service.CreateHackathonRequest true "Hackathon"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hackathons [post]
func (h *HackathonHandler) Create(c *gin.Context) {
	var req service.CreateHackathonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid hackathon payload"))
		return
	}

	hackathon, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, hackathon)
}

// Register godoc
// @Summary Register for a hackathon
// @Tags Hackathons
// @Accept json
// @Produce json
// @Param id path string true "Hackathon ID"
// @Param payload body service.RegisterHackathonRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /hackathons/{id}/register [post]
func (h *HackathonHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RegisterHackathonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	registration, err := h.service.Register(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, registration)
}

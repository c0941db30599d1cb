package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/internal/service"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
	"github.com/blocklearn/blocklearn-api/pkg/response"
)

// InstructorHandler wires HTTP endpoints to instructor discovery, profile
// management and availability resolution.
type InstructorHandler struct {
	service      *service.InstructorService
	availability *service.AvailabilityService
}

// NewInstructorHandler creates a new handler.
func NewInstructorHandler(svc *service.InstructorService, availabilitySvc *service.AvailabilityService) *InstructorHandler {
	return &InstructorHandler{service: svc, availability: availabilitySvc}
}

// List godoc
// @Summary List instructors
// @Description Browse instructor profiles with discovery filters
// @Tags Instructors
// @Produce json
// @Param expertise query string false "Filter by expertise tag"
// @Param search query string false "Search by name or headline"
// @Param min_rating query number false "Minimum average rating"
// @Param max_rate query number false "Maximum hourly rate"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	filter := models.InstructorFilter{
		Expertise: c.Query("expertise"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := c.Query("min_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinRating = v
		}
	}
	if raw := c.Query("max_rate"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxRate = v
		}
	}

	profiles, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Get godoc
// @Summary Get instructor profile
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor user ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// UpsertProfile godoc
// @Summary Create or update own instructor profile
// @Tags Instructors
// @Accept json
// @Produce json
// @Param payload body service.UpsertInstructorProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructors/me [put]
func (h *InstructorHandler) UpsertProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertInstructorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.service.UpsertProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// GetTemplate godoc
// @Summary Get own availability template
// @Description Returns the saved weekly template, or the platform default when none is saved
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructors/me/availability-template [get]
func (h *InstructorHandler) GetTemplate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tmpl, err := h.service.GetTemplate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tmpl, nil)
}

// UpdateTemplate godoc
// @Summary Replace own availability template
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.UpdateTemplateRequest true "Template"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructors/me/availability-template [put]
func (h *InstructorHandler) UpdateTemplate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}

	tmpl, err := h.service.UpdateTemplate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tmpl, nil)
}

// Availability godoc
// @Summary Resolved bookable slots
// @Description Projects the instructor's weekly template over the booking horizon with held slots removed
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor user ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/availability [get]
func (h *InstructorHandler) Availability(c *gin.Context) {
	snapshot, err := h.availability.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, snapshot, nil)
}

// AvailableTimes godoc
// @Summary Open start times for a date
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor user ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructors/{id}/availability/times [get]
func (h *InstructorHandler) AvailableTimes(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	times, err := h.availability.TimesForDate(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"date": c.Query("date"), "times": times}, nil)
}

// DateSelectable godoc
// @Summary Check whether a date is bookable
// @Tags Availability
// @Produce json
// @Param id path string true "Instructor user ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructors/{id}/availability/selectable [get]
func (h *InstructorHandler) DateSelectable(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	selectable, err := h.availability.DateSelectable(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"date": c.Query("date"), "selectable": selectable}, nil)
}

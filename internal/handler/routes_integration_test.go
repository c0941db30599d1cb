package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/blocklearn/blocklearn-api/internal/middleware"
	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/internal/service"
)

const (
	integrationInstructorID = "7b69d3a4-1f5a-4f90-a1c2-3e6f8b0d2c41"
	integrationStudentID    = "e8b1f6d2-9c3a-47e5-b0d4-5a2c7f9e1b63"
)

type templateFinderStub struct{}

func (templateFinderStub) FindTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error) {
	return nil, nil
}

type activeListerStub struct {
	active []models.Booking
}

func (s *activeListerStub) ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.Booking, error) {
	return s.active, nil
}

type bookingRepoStub struct {
	created *models.Booking
}

func (s *bookingRepoStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	return nil, 0, nil
}

func (s *bookingRepoStub) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	return s.created, nil
}

func (s *bookingRepoStub) CreateIfSlotFree(ctx context.Context, booking *models.Booking) (bool, error) {
	booking.ID = "booking-1"
	s.created = booking
	return true, nil
}

func (s *bookingRepoStub) UpdateStatus(ctx context.Context, booking *models.Booking) error {
	return nil
}

func (s *bookingRepoStub) AttachReview(ctx context.Context, id string, rating int, comment string) error {
	return nil
}

type reviewAggregatorStub struct{}

func (reviewAggregatorStub) ApplyReview(ctx context.Context, userID string, rating int) error {
	return nil
}

type transactionWriterStub struct{}

func (transactionWriterStub) Create(ctx context.Context, tx *models.Transaction) error {
	return nil
}

func (transactionWriterStub) UpdateStatusByReference(ctx context.Context, referenceID string, status models.TransactionStatus) error {
	return nil
}

// nextWeekday returns the first weekday strictly after today, so the date is
// always inside the default 30 day booking window.
func nextWeekday() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func buildBookingRouter(active []models.Booking) (*gin.Engine, *bookingRepoStub) {
	gin.SetMode(gin.TestMode)

	availabilitySvc := service.NewAvailabilityService(
		templateFinderStub{},
		&activeListerStub{active: active},
		nil, nil, zap.NewNop(), 4, 0,
	)
	repo := &bookingRepoStub{}
	bookingSvc := service.NewBookingService(repo, reviewAggregatorStub{}, transactionWriterStub{}, availabilitySvc, nil, nil, zap.NewNop())

	bookingHandler := NewBookingHandler(bookingSvc)
	instructorHandler := NewInstructorHandler(nil, availabilitySvc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: integrationStudentID,
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	router.GET("/instructors/:id/availability", instructorHandler.Availability)
	router.POST("/bookings", internalmiddleware.RequireRoles(models.RoleStudent), bookingHandler.Create)

	return router, repo
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bookingPayload(date time.Time) []byte {
	payload, _ := json.Marshal(map[string]any{
		"instructor_id": integrationInstructorID,
		"date":          date.Format("2006-01-02"),
		"time":          "09:00",
		"duration":      "60min",
		"price":         50,
		"topic":         "Solidity storage layout",
	})
	return payload
}

func TestBookingRoutesIntegration(t *testing.T) {
	slotDate := nextWeekday()

	t.Run("availability is public", func(t *testing.T) {
		router, _ := buildBookingRouter(nil)
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/instructors/%s/availability", integrationInstructorID), nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"slots"`)
	})

	t.Run("booking requires authentication", func(t *testing.T) {
		router, _ := buildBookingRouter(nil)
		req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewReader(bookingPayload(slotDate)))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("instructors cannot book sessions", func(t *testing.T) {
		router, _ := buildBookingRouter(nil)
		req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewReader(bookingPayload(slotDate)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleInstructor))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("student books an open slot", func(t *testing.T) {
		router, repo := buildBookingRouter(nil)
		req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewReader(bookingPayload(slotDate)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.NotNil(t, repo.created)
		require.Equal(t, models.BookingPending, repo.created.Status)
	})

	t.Run("held slot returns conflict", func(t *testing.T) {
		router, repo := buildBookingRouter([]models.Booking{{
			InstructorID: integrationInstructorID,
			Date:         slotDate,
			Time:         "09:00",
			Status:       models.BookingUpcoming,
		}})
		req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewReader(bookingPayload(slotDate)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), "SLOT_TAKEN")
		require.Nil(t, repo.created)
	})

	t.Run("malformed payload is rejected", func(t *testing.T) {
		router, _ := buildBookingRouter(nil)
		req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(`{"instructor_id":`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

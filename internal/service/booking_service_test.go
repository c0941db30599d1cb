package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type mockBookingRepo struct {
	bookings map[string]*models.Booking

	insertFree bool
	created    *models.Booking
	updated    *models.Booking
	reviewed   bool
}

func (m *mockBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	out := make([]models.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (m *mockBookingRepo) CreateIfSlotFree(ctx context.Context, booking *models.Booking) (bool, error) {
	if !m.insertFree {
		return false, nil
	}
	booking.ID = "booking-1"
	m.created = booking
	return true, nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, booking *models.Booking) error {
	m.updated = booking
	return nil
}

func (m *mockBookingRepo) AttachReview(ctx context.Context, id string, rating int, comment string) error {
	m.reviewed = true
	return nil
}

type mockReviewAggregator struct {
	userID string
	rating int
}

func (m *mockReviewAggregator) ApplyReview(ctx context.Context, userID string, rating int) error {
	m.userID = userID
	m.rating = rating
	return nil
}

type mockTransactionWriter struct {
	created  []*models.Transaction
	statuses map[string]models.TransactionStatus
}

func (m *mockTransactionWriter) Create(ctx context.Context, tx *models.Transaction) error {
	m.created = append(m.created, tx)
	return nil
}

func (m *mockTransactionWriter) UpdateStatusByReference(ctx context.Context, referenceID string, status models.TransactionStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.TransactionStatus)
	}
	m.statuses[referenceID] = status
	return nil
}

type mockTemplateFinder struct {
	template *models.AvailabilityTemplate
}

func (m *mockTemplateFinder) FindTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error) {
	return m.template, nil
}

type mockActiveLister struct {
	active []models.Booking
}

func (m *mockActiveLister) ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.Booking, error) {
	return m.active, nil
}

const (
	testInstructorID = "7b69d3a4-1f5a-4f90-a1c2-3e6f8b0d2c41"
	testStudentID    = "e8b1f6d2-9c3a-47e5-b0d4-5a2c7f9e1b63"
)

// bookingTestNow is a Wednesday.
var bookingTestNow = time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC)

func newTestBookingService(repo *mockBookingRepo, txw *mockTransactionWriter, agg *mockReviewAggregator, active []models.Booking) *BookingService {
	availabilitySvc := NewAvailabilityService(
		&mockTemplateFinder{},
		&mockActiveLister{active: active},
		nil, nil, zap.NewNop(), 4, 0,
	)
	availabilitySvc.now = func() time.Time { return bookingTestNow }

	svc := NewBookingService(repo, agg, txw, availabilitySvc, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return bookingTestNow }
	return svc
}

func TestCreateBookingReservesOpenSlot(t *testing.T) {
	repo := &mockBookingRepo{insertFree: true}
	txw := &mockTransactionWriter{}
	svc := newTestBookingService(repo, txw, &mockReviewAggregator{}, nil)

	// Friday of the current week, a weekday slot from the default template.
	booking, err := svc.Create(context.Background(), testStudentID, CreateBookingRequest{
		InstructorID: testInstructorID,
		Date:         "2024-03-08",
		Time:         "10:00",
		Duration:     "30min",
		Price:        50,
		Topic:        "Solidity basics",
	})
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "10:00", booking.Time)
	assert.Equal(t, testStudentID, booking.StudentID)

	require.Len(t, txw.created, 1)
	assert.Equal(t, models.TransactionPending, txw.created[0].Status)
	assert.Equal(t, booking.ID, txw.created[0].ReferenceID)
}

func TestCreateBookingRejectsHeldSlot(t *testing.T) {
	held := []models.Booking{{
		InstructorID: testInstructorID,
		Date:         time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC),
		Time:         "10:00",
		Status:       models.BookingUpcoming,
	}}
	repo := &mockBookingRepo{insertFree: true}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, held)

	_, err := svc.Create(context.Background(), testStudentID, CreateBookingRequest{
		InstructorID: testInstructorID,
		Date:         "2024-03-08",
		Time:         "10:00",
		Duration:     "30min",
		Topic:        "Solidity basics",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestCreateBookingLosesInsertRace(t *testing.T) {
	repo := &mockBookingRepo{insertFree: false}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)

	_, err := svc.Create(context.Background(), testStudentID, CreateBookingRequest{
		InstructorID: testInstructorID,
		Date:         "2024-03-08",
		Time:         "10:00",
		Duration:     "30min",
		Topic:        "Solidity basics",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErrors.FromError(err).Code)
}

func TestCreateBookingRejectsDateOutsideWindow(t *testing.T) {
	repo := &mockBookingRepo{insertFree: true}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)

	// 31 days out, past the default 30 day advance window.
	_, err := svc.Create(context.Background(), testStudentID, CreateBookingRequest{
		InstructorID: testInstructorID,
		Date:         "2024-04-06",
		Time:         "10:00",
		Duration:     "30min",
		Topic:        "Solidity basics",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAcceptBookingMovesToUpcoming(t *testing.T) {
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			StudentID:    testStudentID,
			Status:       models.BookingPending,
			Price:        50,
		},
	}}
	txw := &mockTransactionWriter{}
	svc := newTestBookingService(repo, txw, &mockReviewAggregator{}, nil)
	actor := &models.JWTClaims{UserID: testInstructorID, Role: models.RoleInstructor}

	booking, err := svc.Accept(context.Background(), actor, "booking-1", AcceptBookingRequest{
		MeetingLink: "https://meet.example.com/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingUpcoming, booking.Status)
	require.NotNil(t, booking.MeetingLink)
	assert.Equal(t, "https://meet.example.com/abc", *booking.MeetingLink)
	assert.Equal(t, models.TransactionCompleted, txw.statuses["booking-1"])
}

func TestAcceptBookingRejectsNonPending(t *testing.T) {
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			Status:       models.BookingCompleted,
		},
	}}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)
	actor := &models.JWTClaims{UserID: testInstructorID, Role: models.RoleInstructor}

	_, err := svc.Accept(context.Background(), actor, "booking-1", AcceptBookingRequest{
		MeetingLink: "https://meet.example.com/abc",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCancelBookingRefundsAndRecordsReason(t *testing.T) {
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			StudentID:    testStudentID,
			Status:       models.BookingUpcoming,
			Price:        50,
		},
	}}
	txw := &mockTransactionWriter{}
	svc := newTestBookingService(repo, txw, &mockReviewAggregator{}, nil)
	actor := &models.JWTClaims{UserID: testStudentID, Role: models.RoleStudent}

	booking, err := svc.Cancel(context.Background(), actor, "booking-1", CancelBookingRequest{
		Reason: "schedule conflict",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
	require.NotNil(t, booking.CancellationReason)
	assert.Equal(t, "schedule conflict", *booking.CancellationReason)
	assert.Equal(t, models.TransactionRefunded, txw.statuses["booking-1"])
}

func TestCancelBookingRejectsTerminalStates(t *testing.T) {
	for _, status := range []models.BookingStatus{models.BookingCompleted, models.BookingCancelled} {
		repo := &mockBookingRepo{bookings: map[string]*models.Booking{
			"booking-1": {
				ID:           "booking-1",
				InstructorID: testInstructorID,
				StudentID:    testStudentID,
				Status:       status,
			},
		}}
		svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)
		actor := &models.JWTClaims{UserID: testStudentID, Role: models.RoleStudent}

		_, err := svc.Cancel(context.Background(), actor, "booking-1", CancelBookingRequest{})
		require.Error(t, err, "status %s", status)
		assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	}
}

func TestCancelBookingRejectsOutsiders(t *testing.T) {
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			StudentID:    testStudentID,
			Status:       models.BookingPending,
		},
	}}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)
	actor := &models.JWTClaims{UserID: "someone-else", Role: models.RoleStudent}

	_, err := svc.Cancel(context.Background(), actor, "booking-1", CancelBookingRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCompleteBookingRequiresUpcoming(t *testing.T) {
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			Status:       models.BookingPending,
		},
	}}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)
	actor := &models.JWTClaims{UserID: testInstructorID, Role: models.RoleInstructor}

	_, err := svc.Complete(context.Background(), actor, "booking-1", CompleteBookingRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestReviewBookingFoldsRatingIntoAggregates(t *testing.T) {
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			StudentID:    testStudentID,
			Status:       models.BookingCompleted,
		},
	}}
	agg := &mockReviewAggregator{}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, agg, nil)
	actor := &models.JWTClaims{UserID: testStudentID, Role: models.RoleStudent}

	booking, err := svc.Review(context.Background(), actor, "booking-1", ReviewBookingRequest{
		Rating:  5,
		Comment: "great session",
	})
	require.NoError(t, err)
	assert.True(t, repo.reviewed)
	assert.Equal(t, testInstructorID, agg.userID)
	assert.Equal(t, 5, agg.rating)
	require.NotNil(t, booking.ReviewRating)
	assert.Equal(t, 5, *booking.ReviewRating)
}

func TestReviewBookingOnlyOnce(t *testing.T) {
	rating := 4
	repo := &mockBookingRepo{bookings: map[string]*models.Booking{
		"booking-1": {
			ID:           "booking-1",
			InstructorID: testInstructorID,
			StudentID:    testStudentID,
			Status:       models.BookingCompleted,
			ReviewRating: &rating,
		},
	}}
	svc := newTestBookingService(repo, &mockTransactionWriter{}, &mockReviewAggregator{}, nil)
	actor := &models.JWTClaims{UserID: testStudentID, Role: models.RoleStudent}

	_, err := svc.Review(context.Background(), actor, "booking-1", ReviewBookingRequest{Rating: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

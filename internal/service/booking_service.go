package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	CreateIfSlotFree(ctx context.Context, booking *models.Booking) (bool, error)
	UpdateStatus(ctx context.Context, booking *models.Booking) error
	AttachReview(ctx context.Context, id string, rating int, comment string) error
}

type reviewAggregator interface {
	ApplyReview(ctx context.Context, userID string, rating int) error
}

type transactionWriter interface {
	Create(ctx context.Context, tx *models.Transaction) error
	UpdateStatusByReference(ctx context.Context, referenceID string, status models.TransactionStatus) error
}

// CreateBookingRequest is the booking submission payload.
type CreateBookingRequest struct {
	InstructorID string  `json:"instructor_id" validate:"required,uuid4"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string  `json:"time" validate:"required,datetime=15:04"`
	Duration     string  `json:"duration" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	Topic        string  `json:"topic" validate:"required,max=200"`
	Message      string  `json:"message" validate:"max=2000"`
}

// AcceptBookingRequest confirms a pending booking.
type AcceptBookingRequest struct {
	MeetingLink string `json:"meeting_link" validate:"required,url"`
}

// CancelBookingRequest cancels an active booking.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CompleteBookingRequest marks a confirmed session as held.
type CompleteBookingRequest struct {
	Recording *string `json:"recording" validate:"omitempty,url"`
}

// ReviewBookingRequest attaches a student review to a completed session.
type ReviewBookingRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// BookingService owns the booking lifecycle: slot reservation, the status
// state machine, the payment ledger entries and post-session reviews.
type BookingService struct {
	repo         bookingRepository
	instructors  reviewAggregator
	transactions transactionWriter
	availability *AvailabilityService
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger

	now func() time.Time
}

// NewBookingService constructs a BookingService instance.
func NewBookingService(repo bookingRepository, instructors reviewAggregator, transactions transactionWriter, availabilitySvc *AvailabilityService, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookingService{
		repo:         repo,
		instructors:  instructors,
		transactions: transactions,
		availability: availabilitySvc,
		validator:    validate,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// List returns bookings visible to the caller. Students see their own
// bookings, instructors see sessions booked with them, admins see all.
func (s *BookingService) List(ctx context.Context, actor *models.JWTClaims, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleInstructor:
		filter.InstructorID = actor.UserID
	}
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a booking if the caller participates in it.
func (s *BookingService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Booking, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(actor, booking) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this booking")
	}
	return booking, nil
}

// Create reserves a slot for the student. The slot must be open in the
// instructor's resolved availability, and the insert is guarded against a
// concurrent reservation of the same slot.
func (s *BookingService) Create(ctx context.Context, studentID string, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if studentID == req.InstructorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot book a session with yourself")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid booking date")
	}

	selectable, err := s.availability.DateSelectable(ctx, req.InstructorID, date)
	if err != nil {
		return nil, err
	}
	if !selectable {
		s.recordOutcome("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is outside the instructor's booking window")
	}

	open, err := s.availability.SlotOpen(ctx, req.InstructorID, date, req.Time)
	if err != nil {
		return nil, err
	}
	if !open {
		s.recordOutcome("slot_taken")
		return nil, appErrors.Clone(appErrors.ErrSlotTaken, "slot is not available")
	}

	booking := &models.Booking{
		InstructorID: req.InstructorID,
		StudentID:    studentID,
		Date:         date,
		Time:         req.Time,
		Duration:     req.Duration,
		Price:        req.Price,
		Status:       models.BookingPending,
		Topic:        req.Topic,
		Message:      req.Message,
	}
	inserted, err := s.repo.CreateIfSlotFree(ctx, booking)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	if !inserted {
		s.recordOutcome("slot_taken")
		return nil, appErrors.Clone(appErrors.ErrSlotTaken, "slot was just booked by someone else")
	}

	if s.transactions != nil && booking.Price > 0 {
		ledger := &models.Transaction{
			Type:        models.TransactionBooking,
			Status:      models.TransactionPending,
			PayerID:     studentID,
			PayeeID:     req.InstructorID,
			ReferenceID: booking.ID,
			Amount:      booking.Price,
			Description: fmt.Sprintf("Session booking: %s", booking.Topic),
		}
		if err := s.transactions.Create(ctx, ledger); err != nil {
			s.logger.Error("failed to record booking transaction",
				zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}

	s.availability.InvalidateFor(ctx, req.InstructorID)
	s.recordOutcome("created")
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("instructor_id", req.InstructorID),
		zap.String("date", req.Date),
		zap.String("time", req.Time))
	return booking, nil
}

// Accept confirms a pending booking. Instructor only.
func (s *BookingService) Accept(ctx context.Context, actor *models.JWTClaims, id string, req AcceptBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid accept payload")
	}
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the instructor can accept a booking")
	}
	if err := s.transition(booking, models.BookingUpcoming); err != nil {
		return nil, err
	}
	booking.MeetingLink = &req.MeetingLink
	if err := s.repo.UpdateStatus(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept booking")
	}
	if s.transactions != nil {
		if err := s.transactions.UpdateStatusByReference(ctx, booking.ID, models.TransactionCompleted); err != nil {
			s.logger.Error("failed to settle booking transaction",
				zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
	s.logger.Info("booking accepted", zap.String("booking_id", id))
	return booking, nil
}

// Decline cancels a pending booking from the instructor side.
func (s *BookingService) Decline(ctx context.Context, actor *models.JWTClaims, id string, req CancelBookingRequest) (*models.Booking, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the instructor can decline a booking")
	}
	if booking.Status != models.BookingPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot decline a %s booking", booking.Status))
	}
	return s.cancel(ctx, booking, req.Reason)
}

// Cancel cancels an active booking. Either participant may cancel.
func (s *BookingService) Cancel(ctx context.Context, actor *models.JWTClaims, id string, req CancelBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(actor, booking) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this booking")
	}
	return s.cancel(ctx, booking, req.Reason)
}

// Complete marks an upcoming session as held and bumps the instructor's
// session count via the review aggregates table.
func (s *BookingService) Complete(ctx context.Context, actor *models.JWTClaims, id string, req CompleteBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complete payload")
	}
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.InstructorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the instructor can complete a booking")
	}
	if err := s.transition(booking, models.BookingCompleted); err != nil {
		return nil, err
	}
	booking.Recording = req.Recording
	if err := s.repo.UpdateStatus(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete booking")
	}
	s.logger.Info("booking completed", zap.String("booking_id", id))
	return booking, nil
}

// Review attaches a one-time student review to a completed session and folds
// the rating into the instructor's aggregates.
func (s *BookingService) Review(ctx context.Context, actor *models.JWTClaims, id string, req ReviewBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the student can review a session")
	}
	if booking.Status != models.BookingCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only completed sessions can be reviewed")
	}
	if booking.ReviewRating != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already reviewed")
	}

	if err := s.repo.AttachReview(ctx, id, req.Rating, req.Comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store review")
	}
	if err := s.instructors.ApplyReview(ctx, booking.InstructorID, req.Rating); err != nil {
		s.logger.Error("failed to fold review into instructor aggregates",
			zap.String("instructor_id", booking.InstructorID), zap.Error(err))
	}

	booking.ReviewRating = &req.Rating
	booking.ReviewComment = &req.Comment
	s.logger.Info("booking reviewed", zap.String("booking_id", id), zap.Int("rating", req.Rating))
	return booking, nil
}

func (s *BookingService) cancel(ctx context.Context, booking *models.Booking, reason string) (*models.Booking, error) {
	if err := s.transition(booking, models.BookingCancelled); err != nil {
		return nil, err
	}
	if reason != "" {
		booking.CancellationReason = &reason
	}
	if err := s.repo.UpdateStatus(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	if s.transactions != nil && booking.Price > 0 {
		if err := s.transactions.UpdateStatusByReference(ctx, booking.ID, models.TransactionRefunded); err != nil {
			s.logger.Error("failed to refund booking transaction",
				zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
	s.availability.InvalidateFor(ctx, booking.InstructorID)
	s.logger.Info("booking cancelled", zap.String("booking_id", booking.ID))
	return booking, nil
}

func (s *BookingService) transition(booking *models.Booking, to models.BookingStatus) error {
	if !models.CanTransition(booking.Status, to) {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move booking from %s to %s", booking.Status, to))
	}
	booking.Status = to
	return nil
}

func (s *BookingService) findBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch booking")
	}
	return booking, nil
}

func (s *BookingService) canAccess(actor *models.JWTClaims, booking *models.Booking) bool {
	return actor.Role == models.RoleAdmin ||
		booking.StudentID == actor.UserID ||
		booking.InstructorID == actor.UserID
}

func (s *BookingService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBookingCreated(outcome)
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/availability"
	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorProfile, int, error)
	FindByUserID(ctx context.Context, userID string) (*models.InstructorProfile, error)
	Upsert(ctx context.Context, profile *models.InstructorProfile) error
	FindTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error)
	SaveTemplate(ctx context.Context, tmpl *models.AvailabilityTemplate) error
}

// UpsertInstructorProfileRequest carries the editable profile fields.
type UpsertInstructorProfileRequest struct {
	Headline   string   `json:"headline" validate:"required,max=200"`
	Expertise  []string `json:"expertise" validate:"required,min=1,dive,min=1"`
	HourlyRate float64  `json:"hourly_rate" validate:"required,gt=0"`
}

// UpdateTemplateRequest replaces the instructor's availability template.
type UpdateTemplateRequest struct {
	Slots              []models.WeeklySlot `json:"slots" validate:"required,dive"`
	BufferTime         int                 `json:"buffer_time" validate:"min=0"`
	AdvanceBookingDays int                 `json:"advance_booking_days" validate:"min=1,max=365"`
	SessionDurations   []string            `json:"session_durations"`
	Pricing            map[string]float64  `json:"pricing"`
}

// InstructorService provides instructor discovery and profile management.
type InstructorService struct {
	repo      instructorRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs an InstructorService instance.
func NewInstructorService(repo instructorRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InstructorService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns instructor profiles matching the discovery filter.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorProfile, *models.Pagination, error) {
	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return profiles, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single instructor profile by user id.
func (s *InstructorService) Get(ctx context.Context, userID string) (*models.InstructorProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch instructor")
	}
	return profile, nil
}

// UpsertProfile creates or updates the caller's instructor profile.
func (s *InstructorService) UpsertProfile(ctx context.Context, userID string, req UpsertInstructorProfileRequest) (*models.InstructorProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile := &models.InstructorProfile{
		UserID:     userID,
		Headline:   req.Headline,
		Expertise:  req.Expertise,
		HourlyRate: req.HourlyRate,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save instructor profile")
	}

	s.logger.Info("instructor profile saved", zap.String("instructor_id", userID))
	return s.Get(ctx, userID)
}

// GetTemplate returns the instructor's availability template, falling back to
// the platform default when none has been saved yet.
func (s *InstructorService) GetTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error) {
	tmpl, err := s.repo.FindTemplate(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch availability template")
	}
	if tmpl == nil {
		def := availability.DefaultTemplate()
		def.InstructorID = instructorID
		return &def, nil
	}
	return tmpl, nil
}

// UpdateTemplate validates and replaces the instructor's availability
// template, then invalidates cached slot projections for that instructor.
func (s *InstructorService) UpdateTemplate(ctx context.Context, instructorID string, req UpdateTemplateRequest) (*models.AvailabilityTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	for i, slot := range req.Slots {
		if err := validateWeeklySlot(slot); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %d: %v", i, err))
		}
	}

	tmpl := &models.AvailabilityTemplate{
		InstructorID:       instructorID,
		Slots:              req.Slots,
		BufferTime:         req.BufferTime,
		AdvanceBookingDays: req.AdvanceBookingDays,
		SessionDurations:   req.SessionDurations,
		Pricing:            req.Pricing,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.repo.SaveTemplate(ctx, tmpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability template")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:*", instructorID))
	}
	s.logger.Info("availability template updated",
		zap.String("instructor_id", instructorID),
		zap.Int("slots", len(req.Slots)))
	return tmpl, nil
}

func validateWeeklySlot(slot models.WeeklySlot) error {
	start, err := time.Parse(availability.ClockLayout, slot.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start time %q", slot.StartTime)
	}
	end, err := time.Parse(availability.ClockLayout, slot.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end time %q", slot.EndTime)
	}
	if !start.Before(end) {
		return fmt.Errorf("start time %s must be before end time %s", slot.StartTime, slot.EndTime)
	}
	return nil
}

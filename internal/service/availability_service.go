package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/availability"
	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type templateFinder interface {
	FindTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error)
}

type activeBookingLister interface {
	ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.Booking, error)
}

// AvailabilitySnapshot is the resolved bookable state for one instructor.
type AvailabilitySnapshot struct {
	InstructorID       string                `json:"instructor_id"`
	AdvanceBookingDays int                   `json:"advance_booking_days"`
	SessionDurations   []string              `json:"session_durations"`
	Pricing            map[string]float64    `json:"pricing"`
	Slots              []models.ResolvedSlot `json:"slots"`
}

// AvailabilityService resolves an instructor's weekly template into concrete
// bookable slots with active bookings removed.
type AvailabilityService struct {
	templates    templateFinder
	bookings     activeBookingLister
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	horizonWeeks int
	cacheTTL     time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewAvailabilityService constructs an AvailabilityService instance.
func NewAvailabilityService(templates templateFinder, bookings activeBookingLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger, horizonWeeks int, cacheTTL time.Duration) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if horizonWeeks <= 0 {
		horizonWeeks = availability.DefaultHorizonWeeks
	}
	return &AvailabilityService{
		templates:    templates,
		bookings:     bookings,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		horizonWeeks: horizonWeeks,
		cacheTTL:     cacheTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Resolve produces the bookable slot set for an instructor over the
// configured horizon. Saved templates are used when present, the platform
// default otherwise, and every slot already held by a pending or upcoming
// booking is removed.
func (s *AvailabilityService) Resolve(ctx context.Context, instructorID string) (*AvailabilitySnapshot, error) {
	started := time.Now()

	cacheKey := fmt.Sprintf("availability:%s:resolved", instructorID)
	if s.cache != nil && s.cache.Enabled() {
		var cached AvailabilitySnapshot
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	tmpl, err := s.templates.FindTemplate(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}
	if tmpl == nil {
		def := availability.DefaultTemplate()
		def.InstructorID = instructorID
		tmpl = &def
	}

	projected := availability.ProjectWeekly(tmpl.Slots, s.horizonWeeks, s.now())

	active, err := s.bookings.ListActiveByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active bookings")
	}
	open := availability.ExcludeBooked(projected, active)

	snapshot := &AvailabilitySnapshot{
		InstructorID:       instructorID,
		AdvanceBookingDays: tmpl.AdvanceBookingDays,
		SessionDurations:   tmpl.SessionDurations,
		Pricing:            tmpl.Pricing,
		Slots:              open,
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, snapshot, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache availability snapshot", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveSlotResolution(time.Since(started))
	}
	return snapshot, nil
}

// TimesForDate returns the open start times for one calendar day, sorted by
// wall clock.
func (s *AvailabilityService) TimesForDate(ctx context.Context, instructorID string, date time.Time) ([]string, error) {
	snapshot, err := s.Resolve(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	return availability.TimesForDate(snapshot.Slots, date), nil
}

// DateSelectable reports whether a calendar date can be offered in a booking
// flow for the instructor.
func (s *AvailabilityService) DateSelectable(ctx context.Context, instructorID string, date time.Time) (bool, error) {
	snapshot, err := s.Resolve(ctx, instructorID)
	if err != nil {
		return false, err
	}
	return availability.DateSelectable(date, s.now(), snapshot.AdvanceBookingDays, snapshot.Slots), nil
}

// SlotOpen reports whether a specific (date, time) pair is currently
// bookable for the instructor.
func (s *AvailabilityService) SlotOpen(ctx context.Context, instructorID string, date time.Time, clock string) (bool, error) {
	times, err := s.TimesForDate(ctx, instructorID, date)
	if err != nil {
		return false, err
	}
	for _, t := range times {
		if t == clock {
			return true, nil
		}
	}
	return false, nil
}

// InvalidateFor drops any cached projections for the instructor. Called
// after bookings or templates change.
func (s *AvailabilityService) InvalidateFor(ctx context.Context, instructorID string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:*", instructorID)); err != nil {
		s.logger.Warn("failed to invalidate availability cache",
			zap.String("instructor_id", instructorID), zap.Error(err))
	}
}

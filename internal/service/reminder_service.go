package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	"github.com/blocklearn/blocklearn-api/pkg/jobs"
)

type upcomingBookingLister interface {
	ListUpcomingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type reminderUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ReminderPayload is the job payload for one session reminder.
type ReminderPayload struct {
	BookingID    string    `json:"booking_id"`
	StudentID    string    `json:"student_id"`
	InstructorID string    `json:"instructor_id"`
	Date         time.Time `json:"date"`
	Time         string    `json:"time"`
	Topic        string    `json:"topic"`
}

// ReminderService periodically scans for upcoming sessions and dispatches
// reminder jobs through the background queue. Each booking is reminded at
// most once per process lifetime.
type ReminderService struct {
	bookings upcomingBookingLister
	users    reminderUserReader
	logger   *zap.Logger
	leadTime time.Duration
	interval time.Duration

	queue *jobs.Queue

	mu         sync.Mutex
	dispatched map[string]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReminderService constructs a ReminderService instance.
func NewReminderService(bookings upcomingBookingLister, users reminderUserReader, logger *zap.Logger, leadTime time.Duration, workers, retries int) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if leadTime <= 0 {
		leadTime = time.Hour
	}
	s := &ReminderService{
		bookings:   bookings,
		users:      users,
		logger:     logger,
		leadTime:   leadTime,
		interval:   5 * time.Minute,
		dispatched: make(map[string]struct{}),
	}
	s.queue = jobs.NewQueue("session-reminders", s.handleReminder, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers and the periodic scanner.
func (s *ReminderService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.scan(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scan(ctx)
			}
		}
	}()
}

// Stop halts the scanner and drains the queue workers.
func (s *ReminderService) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.queue.Stop()
}

func (s *ReminderService) scan(ctx context.Context) {
	now := time.Now().UTC()
	from := truncateDay(now)
	to := truncateDay(now.Add(s.leadTime)).AddDate(0, 0, 1)

	bookings, err := s.bookings.ListUpcomingBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("reminder scan failed", zap.Error(err))
		return
	}

	for _, b := range bookings {
		start, err := sessionStart(b)
		if err != nil {
			s.logger.Warn("skipping booking with unparseable start",
				zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		if start.Before(now) || start.After(now.Add(s.leadTime)) {
			continue
		}
		if !s.markDispatched(b.ID) {
			continue
		}

		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "session-reminder",
			Payload: ReminderPayload{
				BookingID:    b.ID,
				StudentID:    b.StudentID,
				InstructorID: b.InstructorID,
				Date:         b.Date,
				Time:         b.Time,
				Topic:        b.Topic,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue reminder",
				zap.String("booking_id", b.ID), zap.Error(err))
			s.unmarkDispatched(b.ID)
		}
	}
}

func (s *ReminderService) handleReminder(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ReminderPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	for _, userID := range []string{payload.StudentID, payload.InstructorID} {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("load reminder recipient %s: %w", userID, err)
		}
		if !user.EmailReminders {
			continue
		}
		// Delivery is handled by the notification pipeline; the reminder
		// event itself is what we emit here.
		s.logger.Info("session reminder",
			zap.String("booking_id", payload.BookingID),
			zap.String("recipient", user.Email),
			zap.String("date", payload.Date.Format("2006-01-02")),
			zap.String("time", payload.Time),
			zap.String("topic", payload.Topic))
	}
	return nil
}

func (s *ReminderService) markDispatched(bookingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.dispatched[bookingID]; seen {
		return false
	}
	s.dispatched[bookingID] = struct{}{}
	return true
}

func (s *ReminderService) unmarkDispatched(bookingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dispatched, bookingID)
}

func sessionStart(b models.Booking) (time.Time, error) {
	clock, err := time.Parse("15:04", b.Time)
	if err != nil {
		return time.Time{}, err
	}
	d := b.Date
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

const bookingColumns = "id, instructor_id, student_id, date, time, duration, price, status, topic, message, meeting_link, recording, cancellation_reason, review_rating, review_comment, created_at, updated_at"

// BookingRepository provides persistence for session bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"date": true, "created_at": true, "status": true}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, time ASC LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListActiveByInstructor returns PENDING and UPCOMING bookings for an
// instructor, the set the availability resolver subtracts from open slots.
func (r *BookingRepository) ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE instructor_id = $1 AND status IN ($2, $3)", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, instructorID, models.BookingPending, models.BookingUpcoming); err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// CreateIfSlotFree inserts a booking only when no active booking already
// occupies the same (instructor, date, time). The database arbitrates
// concurrent attempts; the caller receives false when the slot was lost.
func (r *BookingRepository) CreateIfSlotFree(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, instructor_id, student_id, date, time, duration, price, status, topic, message, created_at, updated_at)
		SELECT :id, :instructor_id, :student_id, :date, :time, :duration, :price, :status, :topic, :message, :created_at, :updated_at
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings
			WHERE instructor_id = :instructor_id AND date = :date AND time = :time AND status IN ('PENDING', 'UPCOMING')
		)`
	result, err := r.db.NamedExecContext(ctx, query, booking)
	if err != nil {
		return false, fmt.Errorf("create booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create booking rows affected: %w", err)
	}
	return rows == 1, nil
}

// UpdateStatus transitions a booking and stores the transition's side data.
func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET status = :status, meeting_link = :meeting_link, recording = :recording, cancellation_reason = :cancellation_reason, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// AttachReview stores a review on a completed booking.
func (r *BookingRepository) AttachReview(ctx context.Context, id string, rating int, comment string) error {
	const query = `UPDATE bookings SET review_rating = $2, review_comment = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rating, comment, time.Now().UTC()); err != nil {
		return fmt.Errorf("attach booking review: %w", err)
	}
	return nil
}

// ListUpcomingBetween returns UPCOMING bookings starting within the window,
// used by the reminder dispatcher.
func (r *BookingRepository) ListUpcomingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE status = $1 AND date >= $2 AND date < $3", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, models.BookingUpcoming, from, to); err != nil {
		return nil, fmt.Errorf("list upcoming bookings: %w", err)
	}
	return bookings, nil
}

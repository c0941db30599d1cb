package models

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingUpcoming  BookingStatus = "UPCOMING"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// bookingTransitions lists the allowed status progressions. COMPLETED and
// CANCELLED are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:  {BookingUpcoming, BookingCancelled},
	BookingUpcoming: {BookingCompleted, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsActive reports whether the status still occupies a slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingUpcoming
}

// Booking represents a session reservation between a student and an
// instructor. Date carries day precision; Time is the "HH:MM" start time
// matching a weekly slot of the instructor's template.
type Booking struct {
	ID                 string        `db:"id" json:"id"`
	InstructorID       string        `db:"instructor_id" json:"instructor_id"`
	StudentID          string        `db:"student_id" json:"student_id"`
	Date               time.Time     `db:"date" json:"date"`
	Time               string        `db:"time" json:"time"`
	Duration           string        `db:"duration" json:"duration"`
	Price              float64       `db:"price" json:"price"`
	Status             BookingStatus `db:"status" json:"status"`
	Topic              string        `db:"topic" json:"topic"`
	Message            string        `db:"message" json:"message"`
	MeetingLink        *string       `db:"meeting_link" json:"meeting_link,omitempty"`
	Recording          *string       `db:"recording" json:"recording,omitempty"`
	CancellationReason *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ReviewRating       *int          `db:"review_rating" json:"review_rating,omitempty"`
	ReviewComment      *string       `db:"review_comment" json:"review_comment,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter captures filtering criteria for listing bookings.
type BookingFilter struct {
	InstructorID string
	StudentID    string
	Status       *BookingStatus
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

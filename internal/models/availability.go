package models

import "time"

// WeeklySlot is a recurring availability rule keyed by day-of-week and
// time-of-day, not a concrete date. DayOfWeek follows time.Weekday numbering
// (0 = Sunday .. 6 = Saturday); StartTime and EndTime are "HH:MM" strings.
type WeeklySlot struct {
	DayOfWeek   int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	IsAvailable bool   `json:"is_available"`
}

// AvailabilityTemplate is an instructor's recurring weekly availability
// pattern together with booking policy settings.
//
// BufferTime is stored as instructor-declared configuration but is not
// consumed by slot generation.
type AvailabilityTemplate struct {
	InstructorID       string             `json:"instructor_id"`
	Slots              []WeeklySlot       `json:"slots"`
	BufferTime         int                `json:"buffer_time"`
	AdvanceBookingDays int                `json:"advance_booking_days"`
	SessionDurations   []string           `json:"session_durations"`
	Pricing            map[string]float64 `json:"pricing"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ResolvedSlot is a concrete (date, time) pair produced by projecting weekly
// slots onto an actual calendar range. It is derived, never persisted.
type ResolvedSlot struct {
	Date time.Time `json:"date"`
	Time string    `json:"time"`
}

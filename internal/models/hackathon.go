package models

import "time"

// HackathonStatus is derived from the event dates, never stored.
type HackathonStatus string

const (
	HackathonUpcoming HackathonStatus = "UPCOMING"
	HackathonOngoing  HackathonStatus = "ONGOING"
	HackathonEnded    HackathonStatus = "ENDED"
)

// Hackathon is a listed event students may register for.
type Hackathon struct {
	ID                   string    `db:"id" json:"id"`
	Title                string    `db:"title" json:"title"`
	Description          string    `db:"description" json:"description"`
	PrizePool            float64   `db:"prize_pool" json:"prize_pool"`
	StartsAt             time.Time `db:"starts_at" json:"starts_at"`
	EndsAt               time.Time `db:"ends_at" json:"ends_at"`
	RegistrationDeadline time.Time `db:"registration_deadline" json:"registration_deadline"`
	Location             string    `db:"location" json:"location"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`

	Status HackathonStatus `db:"-" json:"status"`
}

// StatusAt derives the event status for the given instant.
func (h Hackathon) StatusAt(now time.Time) HackathonStatus {
	switch {
	case now.Before(h.StartsAt):
		return HackathonUpcoming
	case now.Before(h.EndsAt):
		return HackathonOngoing
	default:
		return HackathonEnded
	}
}

// HackathonRegistration links a user to a hackathon.
type HackathonRegistration struct {
	ID           string    `db:"id" json:"id"`
	HackathonID  string    `db:"hackathon_id" json:"hackathon_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	TeamName     string    `db:"team_name" json:"team_name"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// HackathonFilter captures listing filters.
type HackathonFilter struct {
	Status    HackathonStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// InstructorProfile describes the public marketplace profile of an
// instructor. Rating fields are aggregates maintained from booking reviews.
type InstructorProfile struct {
	UserID       string    `db:"user_id" json:"user_id"`
	Headline     string    `db:"headline" json:"headline"`
	Expertise    []string  `db:"-" json:"expertise"`
	HourlyRate   float64   `db:"hourly_rate" json:"hourly_rate"`
	RatingAvg    float64   `db:"rating_avg" json:"rating_avg"`
	RatingCount  int       `db:"rating_count" json:"rating_count"`
	SessionCount int       `db:"session_count" json:"session_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	FullName  string `db:"full_name" json:"full_name"`
	Bio       string `db:"bio" json:"bio"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
}

// InstructorFilter captures discovery filters for the instructor listing.
type InstructorFilter struct {
	Expertise string
	Search    string
	MinRating float64
	MaxRate   float64
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// JobPosting is a job board entry.
type JobPosting struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Company   string    `db:"company" json:"company"`
	Location  string    `db:"location" json:"location"`
	Remote    bool      `db:"remote" json:"remote"`
	SalaryMin float64   `db:"salary_min" json:"salary_min"`
	SalaryMax float64   `db:"salary_max" json:"salary_max"`
	Tags      []string  `db:"-" json:"tags"`
	Body      string    `db:"body" json:"body"`
	PostedBy  string    `db:"posted_by" json:"posted_by"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JobApplication records a user applying for a posting.
type JobApplication struct {
	ID        string    `db:"id" json:"id"`
	JobID     string    `db:"job_id" json:"job_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ResumeURL string    `db:"resume_url" json:"resume_url"`
	CoverNote string    `db:"cover_note" json:"cover_note"`
	AppliedAt time.Time `db:"applied_at" json:"applied_at"`
}

// JobFilter captures job board listing filters.
type JobFilter struct {
	Tag       string
	Location  string
	Remote    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// Course represents a catalog entry.
type Course struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Level        string    `db:"level" json:"level"`
	Category     string    `db:"category" json:"category"`
	Price        float64   `db:"price" json:"price"`
	Published    bool      `db:"published" json:"published"`
	LessonCount  int       `db:"lesson_count" json:"lesson_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Lessons []Lesson `db:"-" json:"lessons,omitempty"`
}

// Lesson is a single playable unit within a course.
type Lesson struct {
	ID              string    `db:"id" json:"id"`
	CourseID        string    `db:"course_id" json:"course_id"`
	Title           string    `db:"title" json:"title"`
	VideoURL        string    `db:"video_url" json:"video_url"`
	DurationSeconds int       `db:"duration_seconds" json:"duration_seconds"`
	Position        int       `db:"position" json:"position"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// LessonProgress records per-lesson playback state for a student.
type LessonProgress struct {
	ID              string    `db:"id" json:"id"`
	LessonID        string    `db:"lesson_id" json:"lesson_id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	PositionSeconds int       `db:"position_seconds" json:"position_seconds"`
	Completed       bool      `db:"completed" json:"completed"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CourseProgress summarises a student's completion of a course.
type CourseProgress struct {
	CourseID         string  `json:"course_id"`
	TotalLessons     int     `json:"total_lessons"`
	CompletedLessons int     `json:"completed_lessons"`
	Percentage       float64 `json:"percentage"`
}

// CourseFilter captures catalog listing filters.
type CourseFilter struct {
	Category     string
	Level        string
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

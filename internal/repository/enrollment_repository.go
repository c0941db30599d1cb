package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

// EnrollmentRepository provides persistence for enrollments and playback
// progress.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create enrolls a student; returns false when already enrolled.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}

	const query = `INSERT INTO enrollments (id, course_id, student_id, enrolled_at)
		VALUES (:id, :course_id, :student_id, :enrolled_at)
		ON CONFLICT (course_id, student_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create enrollment rows affected: %w", err)
	}
	return rows == 1, nil
}

// Exists reports whether the student is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, courseID, studentID string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, "SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 LIMIT 1", courseID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListByStudent returns a student's enrollments, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, enrolled_at FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpsertProgress records playback position for a lesson.
func (r *EnrollmentRepository) UpsertProgress(ctx context.Context, progress *models.LessonProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	progress.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO lesson_progress (id, lesson_id, student_id, position_seconds, completed, updated_at)
		VALUES (:id, :lesson_id, :student_id, :position_seconds, :completed, :updated_at)
		ON CONFLICT (lesson_id, student_id) DO UPDATE SET position_seconds = :position_seconds, completed = :completed, updated_at = :updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("upsert lesson progress: %w", err)
	}
	return nil
}

// CourseProgress summarises completed lessons for a student in a course.
func (r *EnrollmentRepository) CourseProgress(ctx context.Context, courseID, studentID string) (*models.CourseProgress, error) {
	const query = `SELECT
			COUNT(l.id) AS total,
			COUNT(p.id) FILTER (WHERE p.completed) AS completed
		FROM lessons l
		LEFT JOIN lesson_progress p ON p.lesson_id = l.id AND p.student_id = $2
		WHERE l.course_id = $1`
	var row struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	if err := r.db.GetContext(ctx, &row, query, courseID, studentID); err != nil {
		return nil, fmt.Errorf("course progress: %w", err)
	}

	progress := &models.CourseProgress{
		CourseID:         courseID,
		TotalLessons:     row.Total,
		CompletedLessons: row.Completed,
	}
	if row.Total > 0 {
		progress.Percentage = float64(row.Completed) / float64(row.Total) * 100
	}
	return progress, nil
}

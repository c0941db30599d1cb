package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

// InstructorRepository provides persistence for instructor profiles and
// their availability templates.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository creates a new instructor repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

type instructorRow struct {
	UserID       string         `db:"user_id"`
	Headline     string         `db:"headline"`
	Expertise    pq.StringArray `db:"expertise"`
	HourlyRate   float64        `db:"hourly_rate"`
	RatingAvg    float64        `db:"rating_avg"`
	RatingCount  int            `db:"rating_count"`
	SessionCount int            `db:"session_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	FullName     string         `db:"full_name"`
	Bio          string         `db:"bio"`
	AvatarURL    string         `db:"avatar_url"`
}

func (row instructorRow) toModel() models.InstructorProfile {
	return models.InstructorProfile{
		UserID:       row.UserID,
		Headline:     row.Headline,
		Expertise:    []string(row.Expertise),
		HourlyRate:   row.HourlyRate,
		RatingAvg:    row.RatingAvg,
		RatingCount:  row.RatingCount,
		SessionCount: row.SessionCount,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		FullName:     row.FullName,
		Bio:          row.Bio,
		AvatarURL:    row.AvatarURL,
	}
}

const instructorSelect = `SELECT p.user_id, p.headline, p.expertise, p.hourly_rate, p.rating_avg, p.rating_count, p.session_count, p.created_at, p.updated_at, u.full_name, u.bio, u.avatar_url
	FROM instructor_profiles p JOIN users u ON u.id = p.user_id`

// List returns instructor profiles matching the discovery filter.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorProfile, int, error) {
	base := " WHERE u.active = TRUE"
	var conditions []string
	var args []interface{}

	if filter.Expertise != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(p.expertise)", len(args)+1))
		args = append(args, filter.Expertise)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE $%d OR p.headline ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.MinRating > 0 {
		conditions = append(conditions, fmt.Sprintf("p.rating_avg >= $%d", len(args)+1))
		args = append(args, filter.MinRating)
	}
	if filter.MaxRate > 0 {
		conditions = append(conditions, fmt.Sprintf("p.hourly_rate <= $%d", len(args)+1))
		args = append(args, filter.MaxRate)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"rating":      "p.rating_avg",
		"rate":        "p.hourly_rate",
		"sessions":    "p.session_count",
		"created_at":  "p.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "p.rating_avg"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", instructorSelect, base, column, order, size, offset)
	var rows []instructorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM instructor_profiles p JOIN users u ON u.id = p.user_id" + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}

	profiles := make([]models.InstructorProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toModel())
	}
	return profiles, total, nil
}

// FindByUserID loads an instructor profile.
func (r *InstructorRepository) FindByUserID(ctx context.Context, userID string) (*models.InstructorProfile, error) {
	query := instructorSelect + " WHERE p.user_id = $1"
	var row instructorRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, err
	}
	profile := row.toModel()
	return &profile, nil
}

// Upsert creates or updates an instructor profile.
func (r *InstructorRepository) Upsert(ctx context.Context, profile *models.InstructorProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO instructor_profiles (user_id, headline, expertise, hourly_rate, rating_avg, rating_count, session_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET headline = $2, expertise = $3, hourly_rate = $4, updated_at = $9`
	_, err := r.db.ExecContext(ctx, query,
		profile.UserID, profile.Headline, pq.Array(profile.Expertise), profile.HourlyRate,
		profile.RatingAvg, profile.RatingCount, profile.SessionCount, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert instructor profile: %w", err)
	}
	return nil
}

// ApplyReview folds a new review rating into the aggregate and bumps the
// session count.
func (r *InstructorRepository) ApplyReview(ctx context.Context, userID string, rating int) error {
	const query = `UPDATE instructor_profiles
		SET rating_avg = (rating_avg * rating_count + $2) / (rating_count + 1),
		    rating_count = rating_count + 1,
		    session_count = session_count + 1,
		    updated_at = $3
		WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, rating, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply instructor review: %w", err)
	}
	return nil
}

type templateRow struct {
	InstructorID       string    `db:"instructor_id"`
	Slots              []byte    `db:"slots"`
	BufferTime         int       `db:"buffer_time"`
	AdvanceBookingDays int       `db:"advance_booking_days"`
	SessionDurations   []byte    `db:"session_durations"`
	Pricing            []byte    `db:"pricing"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// FindTemplate loads the stored availability template for an instructor.
// A missing template returns (nil, nil) so callers can apply the default.
func (r *InstructorRepository) FindTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error) {
	const query = `SELECT instructor_id, slots, buffer_time, advance_booking_days, session_durations, pricing, updated_at
		FROM availability_templates WHERE instructor_id = $1`
	var row templateRow
	if err := r.db.GetContext(ctx, &row, query, instructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find availability template: %w", err)
	}

	tmpl := models.AvailabilityTemplate{
		InstructorID:       row.InstructorID,
		BufferTime:         row.BufferTime,
		AdvanceBookingDays: row.AdvanceBookingDays,
		UpdatedAt:          row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Slots, &tmpl.Slots); err != nil {
		return nil, fmt.Errorf("decode template slots: %w", err)
	}
	if err := json.Unmarshal(row.SessionDurations, &tmpl.SessionDurations); err != nil {
		return nil, fmt.Errorf("decode template durations: %w", err)
	}
	if err := json.Unmarshal(row.Pricing, &tmpl.Pricing); err != nil {
		return nil, fmt.Errorf("decode template pricing: %w", err)
	}
	return &tmpl, nil
}

// SaveTemplate stores the availability template, replacing any previous one.
func (r *InstructorRepository) SaveTemplate(ctx context.Context, tmpl *models.AvailabilityTemplate) error {
	slots, err := json.Marshal(tmpl.Slots)
	if err != nil {
		return fmt.Errorf("encode template slots: %w", err)
	}
	durations, err := json.Marshal(tmpl.SessionDurations)
	if err != nil {
		return fmt.Errorf("encode template durations: %w", err)
	}
	pricing, err := json.Marshal(tmpl.Pricing)
	if err != nil {
		return fmt.Errorf("encode template pricing: %w", err)
	}
	tmpl.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO availability_templates (instructor_id, slots, buffer_time, advance_booking_days, session_durations, pricing, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (instructor_id) DO UPDATE SET slots = $2, buffer_time = $3, advance_booking_days = $4, session_durations = $5, pricing = $6, updated_at = $7`
	_, err = r.db.ExecContext(ctx, query,
		tmpl.InstructorID, slots, tmpl.BufferTime, tmpl.AdvanceBookingDays, durations, pricing, tmpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save availability template: %w", err)
	}
	return nil
}

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

const hackathonColumns = "id, title, description, prize_pool, starts_at, ends_at, registration_deadline, location, created_at"

// HackathonRepository provides persistence for hackathon listings and
// registrations.
type HackathonRepository struct {
	db *sqlx.DB
}

// NewHackathonRepository creates a new hackathon repository.
func NewHackathonRepository(db *sqlx.DB) *HackathonRepository {
	return &HackathonRepository{db: db}
}

// List returns hackathons matching the filter. Status filtering is applied
// by the service since status is derived from dates.
func (r *HackathonRepository) List(ctx context.Context, filter models.HackathonFilter) ([]models.Hackathon, int, error) {
	base := "FROM hackathons WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"starts_at": true, "prize_pool": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "starts_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", hackathonColumns, base, sortBy, order, size, offset)
	var hackathons []models.Hackathon
	if err := r.db.SelectContext(ctx, &hackathons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list hackathons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count hackathons: %w", err)
	}

	return hackathons, total, nil
}

// FindByID loads a hackathon by id.
func (r *HackathonRepository) FindByID(ctx context.Context, id string) (*models.Hackathon, error) {
	query := fmt.Sprintf("SELECT %s FROM hackathons WHERE id = $1", hackathonColumns)
	var hackathon models.Hackathon
	if err := r.db.GetContext(ctx, &hackathon, query, id); err != nil {
		return nil, err
	}
	return &hackathon, nil
}

// Create stores a new hackathon listing.
func (r *HackathonRepository) Create(ctx context.Context, hackathon *models.Hackathon) error {
	if hackathon.ID == "" {
		hackathon.ID = uuid.NewString()
	}
	if hackathon.CreatedAt.IsZero() {
		hackathon.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO hackathons (id, title, description, prize_pool, starts_at, ends_at, registration_deadline, location, created_at)
		VALUES (:id, :title, :description, :prize_pool, :starts_at, :ends_at, :registration_deadline, :location, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hackathon); err != nil {
		return fmt.Errorf("create hackathon: %w", err)
	}
	return nil
}

// Register enrolls a user; returns false when already registered.
func (r *HackathonRepository) Register(ctx context.Context, reg *models.HackathonRegistration) (bool, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}

	const query = `INSERT INTO hackathon_registrations (id, hackathon_id, user_id, team_name, registered_at)
		VALUES (:id, :hackathon_id, :user_id, :team_name, :registered_at)
		ON CONFLICT (hackathon_id, user_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, reg)
	if err != nil {
		return false, fmt.Errorf("register for hackathon: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("register rows affected: %w", err)
	}
	return rows == 1, nil
}

// CountRegistrations returns how many users registered for a hackathon.
func (r *HackathonRepository) CountRegistrations(ctx context.Context, hackathonID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM hackathon_registrations WHERE hackathon_id = $1", hackathonID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return total, nil
}

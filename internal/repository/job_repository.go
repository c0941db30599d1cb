package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

// JobRepository provides persistence for the job board.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

type jobRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Company   string         `db:"company"`
	Location  string         `db:"location"`
	Remote    bool           `db:"remote"`
	SalaryMin float64        `db:"salary_min"`
	SalaryMax float64        `db:"salary_max"`
	Tags      pq.StringArray `db:"tags"`
	Body      string         `db:"body"`
	PostedBy  string         `db:"posted_by"`
	Active    bool           `db:"active"`
	CreatedAt time.Time      `db:"created_at"`
}

func (row jobRow) toModel() models.JobPosting {
	return models.JobPosting{
		ID:        row.ID,
		Title:     row.Title,
		Company:   row.Company,
		Location:  row.Location,
		Remote:    row.Remote,
		SalaryMin: row.SalaryMin,
		SalaryMax: row.SalaryMax,
		Tags:      []string(row.Tags),
		Body:      row.Body,
		PostedBy:  row.PostedBy,
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
	}
}

const jobColumns = "id, title, company, location, remote, salary_min, salary_max, tags, body, posted_by, active, created_at"

// List returns active job postings matching the filter.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, int, error) {
	base := "FROM job_postings WHERE active = TRUE"
	var conditions []string
	var args []interface{}

	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)+1))
		args = append(args, filter.Tag)
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Location+"%")
	}
	if filter.Remote != nil {
		conditions = append(conditions, fmt.Sprintf("remote = $%d", len(args)+1))
		args = append(args, *filter.Remote)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR company ILIKE $%d OR body ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"created_at": true, "salary_max": true, "company": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", jobColumns, base, sortBy, order, size, offset)
	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list job postings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count job postings: %w", err)
	}

	postings := make([]models.JobPosting, 0, len(rows))
	for _, row := range rows {
		postings = append(postings, row.toModel())
	}
	return postings, total, nil
}

// FindByID loads a job posting by id.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.JobPosting, error) {
	query := fmt.Sprintf("SELECT %s FROM job_postings WHERE id = $1", jobColumns)
	var row jobRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	posting := row.toModel()
	return &posting, nil
}

// Create stores a new job posting.
func (r *JobRepository) Create(ctx context.Context, posting *models.JobPosting) error {
	if posting.ID == "" {
		posting.ID = uuid.NewString()
	}
	if posting.CreatedAt.IsZero() {
		posting.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO job_postings (id, title, company, location, remote, salary_min, salary_max, tags, body, posted_by, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		posting.ID, posting.Title, posting.Company, posting.Location, posting.Remote,
		posting.SalaryMin, posting.SalaryMax, pq.Array(posting.Tags), posting.Body,
		posting.PostedBy, posting.Active, posting.CreatedAt)
	if err != nil {
		return fmt.Errorf("create job posting: %w", err)
	}
	return nil
}

// Apply records an application; returns false when the user already applied.
func (r *JobRepository) Apply(ctx context.Context, application *models.JobApplication) (bool, error) {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.AppliedAt.IsZero() {
		application.AppliedAt = time.Now().UTC()
	}

	const query = `INSERT INTO job_applications (id, job_id, user_id, resume_url, cover_note, applied_at)
		VALUES (:id, :job_id, :user_id, :resume_url, :cover_note, :applied_at)
		ON CONFLICT (job_id, user_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, application)
	if err != nil {
		return false, fmt.Errorf("apply to job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListApplications returns applications for a posting, oldest first.
func (r *JobRepository) ListApplications(ctx context.Context, jobID string) ([]models.JobApplication, error) {
	const query = `SELECT id, job_id, user_id, resume_url, cover_note, applied_at FROM job_applications WHERE job_id = $1 ORDER BY applied_at ASC`
	var applications []models.JobApplication
	if err := r.db.SelectContext(ctx, &applications, query, jobID); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return applications, nil
}

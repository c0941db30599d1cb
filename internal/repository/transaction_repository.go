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

const transactionColumns = "id, type, status, payer_id, payee_id, reference_id, amount, description, created_at, updated_at"

// TransactionRepository provides persistence for the payments ledger.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// List returns ledger entries involving the user as payer or payee.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	base := "FROM transactions WHERE (payer_id = $1 OR payee_id = $1)"
	args := []interface{}{filter.UserID}
	var conditions []string

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"created_at": true, "amount": true}
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", transactionColumns, base, sortBy, order, size, offset)
	var transactions []models.Transaction
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	return transactions, total, nil
}

// Create stores a new ledger entry.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	const query = `INSERT INTO transactions (id, type, status, payer_id, payee_id, reference_id, amount, description, created_at, updated_at)
		VALUES (:id, :type, :status, :payer_id, :payee_id, :reference_id, :amount, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// UpdateStatusByReference settles or refunds entries tied to a booking or
// enrollment.
func (r *TransactionRepository) UpdateStatusByReference(ctx context.Context, referenceID string, status models.TransactionStatus) error {
	const query = `UPDATE transactions SET status = $2, updated_at = $3 WHERE reference_id = $1`
	if _, err := r.db.ExecContext(ctx, query, referenceID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

// EarningsTotals aggregates an instructor's completed and pending amounts.
func (r *TransactionRepository) EarningsTotals(ctx context.Context, instructorID string) (*models.EarningsSummary, error) {
	const query = `SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0) AS total_earned,
			COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0) AS pending_amount,
			COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed_count,
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count
		FROM transactions WHERE payee_id = $1`
	var row struct {
		TotalEarned    float64 `db:"total_earned"`
		PendingAmount  float64 `db:"pending_amount"`
		CompletedCount int     `db:"completed_count"`
		PendingCount   int     `db:"pending_count"`
	}
	if err := r.db.GetContext(ctx, &row, query, instructorID); err != nil {
		return nil, fmt.Errorf("earnings totals: %w", err)
	}

	return &models.EarningsSummary{
		InstructorID:   instructorID,
		TotalEarned:    row.TotalEarned,
		PendingAmount:  row.PendingAmount,
		CompletedCount: row.CompletedCount,
		PendingCount:   row.PendingCount,
	}, nil
}

// MonthlyEarnings aggregates completed earnings per calendar month, newest
// first, limited to the most recent twelve months with activity.
func (r *TransactionRepository) MonthlyEarnings(ctx context.Context, instructorID string) ([]models.MonthlyEarnings, error) {
	const query = `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
			COALESCE(SUM(amount), 0) AS amount,
			COUNT(*) AS count
		FROM transactions
		WHERE payee_id = $1 AND status = 'COMPLETED'
		GROUP BY date_trunc('month', created_at)
		ORDER BY date_trunc('month', created_at) DESC
		LIMIT 12`
	var monthly []models.MonthlyEarnings
	if err := r.db.SelectContext(ctx, &monthly, query, instructorID); err != nil {
		return nil, fmt.Errorf("monthly earnings: %w", err)
	}
	return monthly, nil
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
	"github.com/blocklearn/blocklearn-api/pkg/export"
)

type transactionReader interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
	EarningsTotals(ctx context.Context, instructorID string) (*models.EarningsSummary, error)
	MonthlyEarnings(ctx context.Context, instructorID string) ([]models.MonthlyEarnings, error)
}

// PaymentService provides payment history and the instructor earnings
// dashboard with CSV and PDF exports.
type PaymentService struct {
	repo     transactionReader
	cache    *CacheService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewPaymentService constructs a PaymentService instance.
func NewPaymentService(repo transactionReader, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:     repo,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// History returns the caller's payment history.
func (s *PaymentService) History(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, *models.Pagination, error) {
	filter.UserID = userID
	transactions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	return transactions, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Earnings returns the instructor's earnings dashboard, cached per
// instructor.
func (s *PaymentService) Earnings(ctx context.Context, instructorID string) (*models.EarningsSummary, error) {
	cacheKey := fmt.Sprintf("earnings:%s", instructorID)
	if s.cache != nil && s.cache.Enabled() {
		var cached models.EarningsSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	summary, err := s.repo.EarningsTotals(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute earnings")
	}
	monthly, err := s.repo.MonthlyEarnings(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute monthly earnings")
	}
	summary.InstructorID = instructorID
	summary.Monthly = monthly
	summary.GeneratedAt = time.Now().UTC()

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache earnings summary", zap.Error(err))
		}
	}
	return summary, nil
}

// ExportEarningsCSV renders the monthly earnings breakdown as CSV.
func (s *PaymentService) ExportEarningsCSV(ctx context.Context, instructorID string) ([]byte, error) {
	summary, err := s.Earnings(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(earningsDataset(summary))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return data, nil
}

// ExportEarningsPDF renders the monthly earnings breakdown as a PDF report.
func (s *PaymentService) ExportEarningsPDF(ctx context.Context, instructorID string) ([]byte, error) {
	summary, err := s.Earnings(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(earningsDataset(summary), "Earnings Report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return data, nil
}

func earningsDataset(summary *models.EarningsSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(summary.Monthly))
	for _, m := range summary.Monthly {
		rows = append(rows, map[string]string{
			"Month":    m.Month,
			"Amount":   strconv.FormatFloat(m.Amount, 'f', 2, 64),
			"Sessions": strconv.Itoa(m.Count),
		})
	}
	return export.Dataset{
		Headers: []string{"Month", "Amount", "Sessions"},
		Rows:    rows,
	}
}

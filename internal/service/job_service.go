package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type jobRepository interface {
	List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, int, error)
	FindByID(ctx context.Context, id string) (*models.JobPosting, error)
	Create(ctx context.Context, posting *models.JobPosting) error
	Apply(ctx context.Context, application *models.JobApplication) (bool, error)
	ListApplications(ctx context.Context, jobID string) ([]models.JobApplication, error)
}

// CreateJobRequest publishes a job posting.
type CreateJobRequest struct {
	Title     string   `json:"title" validate:"required,max=200"`
	Company   string   `json:"company" validate:"required,max=200"`
	Location  string   `json:"location" validate:"required,max=200"`
	Remote    bool     `json:"remote"`
	SalaryMin float64  `json:"salary_min" validate:"gte=0"`
	SalaryMax float64  `json:"salary_max" validate:"gte=0,gtefield=SalaryMin"`
	Tags      []string `json:"tags" validate:"max=10,dive,min=1,max=50"`
	Body      string   `json:"body" validate:"required"`
}

// ApplyJobRequest submits an application for a posting.
type ApplyJobRequest struct {
	ResumeURL string `json:"resume_url" validate:"required,url"`
	CoverNote string `json:"cover_note" validate:"max=5000"`
}

// JobService provides the job board.
type JobService struct {
	repo      jobRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJobService constructs a JobService instance.
func NewJobService(repo jobRepository, validate *validator.Validate, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JobService{repo: repo, validator: validate, logger: logger}
}

// List returns active postings matching the filter.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.JobPosting, *models.Pagination, error) {
	postings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list job postings")
	}
	return postings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single posting.
func (s *JobService) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	posting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job posting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch job posting")
	}
	return posting, nil
}

// Create publishes a posting owned by the caller.
func (s *JobService) Create(ctx context.Context, postedBy string, req CreateJobRequest) (*models.JobPosting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}
	posting := &models.JobPosting{
		Title:     req.Title,
		Company:   req.Company,
		Location:  req.Location,
		Remote:    req.Remote,
		SalaryMin: req.SalaryMin,
		SalaryMax: req.SalaryMax,
		Tags:      req.Tags,
		Body:      req.Body,
		PostedBy:  postedBy,
		Active:    true,
	}
	if err := s.repo.Create(ctx, posting); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job posting")
	}
	s.logger.Info("job posting created", zap.String("job_id", posting.ID))
	return posting, nil
}

// Apply submits an application. Duplicate applications are rejected.
func (s *JobService) Apply(ctx context.Context, userID, jobID string, req ApplyJobRequest) (*models.JobApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	posting, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !posting.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job posting is closed")
	}

	application := &models.JobApplication{
		JobID:     jobID,
		UserID:    userID,
		ResumeURL: req.ResumeURL,
		CoverNote: req.CoverNote,
	}
	created, err := s.repo.Apply(ctx, application)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already applied for this job")
	}
	return application, nil
}

// Applications lists applications for a posting. Restricted to the poster
// and admins.
func (s *JobService) Applications(ctx context.Context, actor *models.JWTClaims, jobID string) ([]models.JobApplication, error) {
	posting, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if posting.PostedBy != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the posting owner")
	}
	applications, err := s.repo.ListApplications(ctx, jobID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return applications, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type hackathonRepository interface {
	List(ctx context.Context, filter models.HackathonFilter) ([]models.Hackathon, int, error)
	FindByID(ctx context.Context, id string) (*models.Hackathon, error)
	Create(ctx context.Context, hackathon *models.Hackathon) error
	Register(ctx context.Context, reg *models.HackathonRegistration) (bool, error)
	CountRegistrations(ctx context.Context, hackathonID string) (int, error)
}

// CreateHackathonRequest is the admin event submission payload.
type CreateHackathonRequest struct {
	Title                string    `json:"title" validate:"required,max=200"`
	Description          string    `json:"description" validate:"required"`
	PrizePool            float64   `json:"prize_pool" validate:"gte=0"`
	StartsAt             time.Time `json:"starts_at" validate:"required"`
	EndsAt               time.Time `json:"ends_at" validate:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required"`
	Location             string    `json:"location" validate:"required,max=200"`
}

// RegisterHackathonRequest signs the caller up for an event.
type RegisterHackathonRequest struct {
	TeamName string `json:"team_name" validate:"max=100"`
}

// HackathonService provides event listings and registrations. Event status
// is derived from the dates at read time, never stored.
type HackathonService struct {
	repo      hackathonRepository
	validator *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewHackathonService constructs a HackathonService instance.
func NewHackathonService(repo hackathonRepository, validate *validator.Validate, logger *zap.Logger) *HackathonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HackathonService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns events with derived status, applying the status filter after
// derivation.
func (s *HackathonService) List(ctx context.Context, filter models.HackathonFilter) ([]models.Hackathon, *models.Pagination, error) {
	wantStatus := filter.Status
	filter.Status = ""

	hackathons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hackathons")
	}

	now := s.now()
	out := hackathons[:0]
	for _, h := range hackathons {
		h.Status = h.StatusAt(now)
		if wantStatus != "" && h.Status != wantStatus {
			total--
			continue
		}
		out = append(out, h)
	}
	return out, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single event with its derived status and registration count.
func (s *HackathonService) Get(ctx context.Context, id string) (*models.Hackathon, int, error) {
	hackathon, err := s.findHackathon(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	hackathon.Status = hackathon.StatusAt(s.now())
	count, err := s.repo.CountRegistrations(ctx, id)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	return hackathon, count, nil
}

// Create publishes a new event.
func (s *HackathonService) Create(ctx context.Context, req CreateHackathonRequest) (*models.Hackathon, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hackathon payload")
	}
	if !req.StartsAt.Before(req.EndsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event must start before it ends")
	}
	if req.RegistrationDeadline.After(req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline must not be after the event start")
	}

	hackathon := &models.Hackathon{
		Title:                req.Title,
		Description:          req.Description,
		PrizePool:            req.PrizePool,
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		RegistrationDeadline: req.RegistrationDeadline,
		Location:             req.Location,
	}
	if err := s.repo.Create(ctx, hackathon); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hackathon")
	}
	hackathon.Status = hackathon.StatusAt(s.now())
	s.logger.Info("hackathon created", zap.String("hackathon_id", hackathon.ID))
	return hackathon, nil
}

// Register signs the caller up before the registration deadline. Duplicate
// registrations are rejected.
func (s *HackathonService) Register(ctx context.Context, userID, hackathonID string, req RegisterHackathonRequest) (*models.HackathonRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	hackathon, err := s.findHackathon(ctx, hackathonID)
	if err != nil {
		return nil, err
	}
	if s.now().After(hackathon.RegistrationDeadline) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline has passed")
	}

	reg := &models.HackathonRegistration{
		HackathonID: hackathonID,
		UserID:      userID,
		TeamName:    req.TeamName,
	}
	created, err := s.repo.Register(ctx, reg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "already registered for this hackathon")
	}

	s.logger.Info("hackathon registration",
		zap.String("hackathon_id", hackathonID), zap.String("user_id", userID))
	return reg, nil
}

func (s *HackathonService) findHackathon(ctx context.Context, id string) (*models.Hackathon, error) {
	hackathon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hackathon not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch hackathon")
	}
	return hackathon, nil
}

package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
	appErrors "github.com/blocklearn/blocklearn-api/pkg/errors"
)

type mockInstructorRepo struct {
	template *models.AvailabilityTemplate
	saved    *models.AvailabilityTemplate
	profile  *models.InstructorProfile
}

func (m *mockInstructorRepo) List(ctx context.Context, filter models.InstructorFilter) ([]models.InstructorProfile, int, error) {
	if m.profile == nil {
		return nil, 0, nil
	}
	return []models.InstructorProfile{*m.profile}, 1, nil
}

func (m *mockInstructorRepo) FindByUserID(ctx context.Context, userID string) (*models.InstructorProfile, error) {
	if m.profile == nil {
		return nil, sql.ErrNoRows
	}
	return m.profile, nil
}

func (m *mockInstructorRepo) Upsert(ctx context.Context, profile *models.InstructorProfile) error {
	m.profile = profile
	return nil
}

func (m *mockInstructorRepo) FindTemplate(ctx context.Context, instructorID string) (*models.AvailabilityTemplate, error) {
	return m.template, nil
}

func (m *mockInstructorRepo) SaveTemplate(ctx context.Context, tmpl *models.AvailabilityTemplate) error {
	m.saved = tmpl
	return nil
}

func TestGetTemplateFallsBackToDefault(t *testing.T) {
	repo := &mockInstructorRepo{}
	svc := NewInstructorService(repo, nil, nil, zap.NewNop())

	tmpl, err := svc.GetTemplate(context.Background(), testInstructorID)
	require.NoError(t, err)

	assert.Equal(t, testInstructorID, tmpl.InstructorID)
	assert.Len(t, tmpl.Slots, 80)
	assert.Equal(t, 30, tmpl.AdvanceBookingDays)
}

func TestGetTemplateReturnsSaved(t *testing.T) {
	saved := &models.AvailabilityTemplate{
		InstructorID: testInstructorID,
		Slots: []models.WeeklySlot{
			{DayOfWeek: 2, StartTime: "10:00", EndTime: "10:30", IsAvailable: true},
		},
		AdvanceBookingDays: 21,
	}
	repo := &mockInstructorRepo{template: saved}
	svc := NewInstructorService(repo, nil, nil, zap.NewNop())

	tmpl, err := svc.GetTemplate(context.Background(), testInstructorID)
	require.NoError(t, err)
	assert.Equal(t, saved, tmpl)
}

func TestUpdateTemplateRejectsInvertedSlot(t *testing.T) {
	repo := &mockInstructorRepo{}
	svc := NewInstructorService(repo, nil, nil, zap.NewNop())

	_, err := svc.UpdateTemplate(context.Background(), testInstructorID, UpdateTemplateRequest{
		Slots: []models.WeeklySlot{
			{DayOfWeek: 1, StartTime: "10:00", EndTime: "09:00", IsAvailable: true},
		},
		AdvanceBookingDays: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.saved)
}

func TestUpdateTemplateRejectsMalformedClock(t *testing.T) {
	repo := &mockInstructorRepo{}
	svc := NewInstructorService(repo, nil, nil, zap.NewNop())

	_, err := svc.UpdateTemplate(context.Background(), testInstructorID, UpdateTemplateRequest{
		Slots: []models.WeeklySlot{
			{DayOfWeek: 1, StartTime: "9am", EndTime: "10:00", IsAvailable: true},
		},
		AdvanceBookingDays: 30,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateTemplatePersistsSlots(t *testing.T) {
	repo := &mockInstructorRepo{}
	svc := NewInstructorService(repo, nil, nil, zap.NewNop())

	tmpl, err := svc.UpdateTemplate(context.Background(), testInstructorID, UpdateTemplateRequest{
		Slots: []models.WeeklySlot{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:30", IsAvailable: true},
			{DayOfWeek: 3, StartTime: "14:00", EndTime: "14:30", IsAvailable: true},
		},
		BufferTime:         15,
		AdvanceBookingDays: 14,
		SessionDurations:   []string{"30min", "60min"},
		Pricing:            map[string]float64{"30min": 40, "60min": 75},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.saved)

	assert.Equal(t, testInstructorID, tmpl.InstructorID)
	assert.Len(t, repo.saved.Slots, 2)
	assert.Equal(t, 14, repo.saved.AdvanceBookingDays)
	assert.Equal(t, 15, repo.saved.BufferTime)
}

func TestUpsertProfileValidatesPayload(t *testing.T) {
	repo := &mockInstructorRepo{}
	svc := NewInstructorService(repo, nil, nil, zap.NewNop())

	_, err := svc.UpsertProfile(context.Background(), testInstructorID, UpsertInstructorProfileRequest{
		Headline:   "Smart contract auditor",
		Expertise:  nil,
		HourlyRate: 80,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

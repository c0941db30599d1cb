package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

func newInstructorRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInstructorRepositoryFindTemplateMissing(t *testing.T) {
	db, mock, cleanup := newInstructorRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectQuery("FROM availability_templates WHERE instructor_id =").
		WithArgs("i1").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id", "slots", "buffer_time", "advance_booking_days", "session_durations", "pricing", "updated_at"}))

	tmpl, err := repo.FindTemplate(context.Background(), "i1")
	require.NoError(t, err)
	assert.Nil(t, tmpl, "missing template must return nil so callers can fall back to the default")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryFindTemplate(t *testing.T) {
	db, mock, cleanup := newInstructorRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	slots := []models.WeeklySlot{{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:30", IsAvailable: true}}
	slotsJSON, err := json.Marshal(slots)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"instructor_id", "slots", "buffer_time", "advance_booking_days", "session_durations", "pricing", "updated_at"}).
		AddRow("i1", slotsJSON, 15, 30, []byte(`["60 minutes"]`), []byte(`{"60 minutes":45}`), time.Now())
	mock.ExpectQuery("FROM availability_templates WHERE instructor_id =").
		WithArgs("i1").
		WillReturnRows(rows)

	tmpl, err := repo.FindTemplate(context.Background(), "i1")
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, slots, tmpl.Slots)
	assert.Equal(t, 30, tmpl.AdvanceBookingDays)
	assert.Equal(t, 45.0, tmpl.Pricing["60 minutes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositorySaveTemplate(t *testing.T) {
	db, mock, cleanup := newInstructorRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	tmpl := &models.AvailabilityTemplate{
		InstructorID:       "i1",
		Slots:              []models.WeeklySlot{{DayOfWeek: 2, StartTime: "09:00", EndTime: "09:30", IsAvailable: true}},
		BufferTime:         15,
		AdvanceBookingDays: 30,
		SessionDurations:   []string{"30 minutes"},
		Pricing:            map[string]float64{"30 minutes": 25},
	}

	mock.ExpectExec("INSERT INTO availability_templates").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveTemplate(context.Background(), tmpl))
	assert.False(t, tmpl.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryApplyReview(t *testing.T) {
	db, mock, cleanup := newInstructorRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectExec("UPDATE instructor_profiles").
		WithArgs("i1", 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ApplyReview(context.Background(), "i1", 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

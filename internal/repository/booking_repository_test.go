package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "instructor_id", "student_id", "date", "time", "duration", "price", "status",
		"topic", "message", "meeting_link", "recording", "cancellation_reason",
		"review_rating", "review_comment", "created_at", "updated_at",
	})
}

func TestBookingRepositoryListActiveByInstructor(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := bookingRows().
		AddRow("b1", "i1", "s1", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), "10:00", "60 minutes", 45.0,
			"PENDING", "Solidity basics", "", nil, nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE instructor_id = (.+) AND status IN").
		WithArgs("i1", models.BookingPending, models.BookingUpcoming).
		WillReturnRows(rows)

	bookings, err := repo.ListActiveByInstructor(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingPending, bookings[0].Status)
	assert.Equal(t, "10:00", bookings[0].Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateIfSlotFree(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	booking := &models.Booking{
		InstructorID: "i1",
		StudentID:    "s1",
		Date:         time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Time:         "10:00",
		Duration:     "60 minutes",
		Price:        45,
		Status:       models.BookingPending,
		Topic:        "Smart contract audit walkthrough",
	}

	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.CreateIfSlotFree(context.Background(), booking)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, booking.ID)

	// Second attempt on an occupied slot inserts nothing.
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.CreateIfSlotFree(context.Background(), &models.Booking{
		InstructorID: "i1",
		StudentID:    "s2",
		Date:         booking.Date,
		Time:         booking.Time,
		Status:       models.BookingPending,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	link := "https://meet.example.com/abc"
	booking := &models.Booking{
		ID:          "b1",
		Status:      models.BookingUpcoming,
		MeetingLink: &link,
	}

	mock.ExpectExec("UPDATE bookings SET status =").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), booking))
	assert.False(t, booking.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListUpcomingBetween(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	from := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE status = ")).
		WithArgs(models.BookingUpcoming, from, to).
		WillReturnRows(bookingRows())

	bookings, err := repo.ListUpcomingBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

// availabilityTestNow is a Wednesday.
var availabilityTestNow = time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC)

func newTestAvailabilityService(tmpl *models.AvailabilityTemplate, active []models.Booking) *AvailabilityService {
	svc := NewAvailabilityService(
		&mockTemplateFinder{template: tmpl},
		&mockActiveLister{active: active},
		nil, nil, zap.NewNop(), 4, 0,
	)
	svc.now = func() time.Time { return availabilityTestNow }
	return svc
}

func TestResolveFallsBackToDefaultTemplate(t *testing.T) {
	svc := newTestAvailabilityService(nil, nil)

	snapshot, err := svc.Resolve(context.Background(), testInstructorID)
	require.NoError(t, err)

	// 4 weeks of 5 weekdays with 16 half-hour starts each.
	assert.Len(t, snapshot.Slots, 4*5*16)
	assert.Equal(t, 30, snapshot.AdvanceBookingDays)
	assert.Equal(t, testInstructorID, snapshot.InstructorID)
}

func TestResolveUsesSavedTemplate(t *testing.T) {
	tmpl := &models.AvailabilityTemplate{
		InstructorID: testInstructorID,
		Slots: []models.WeeklySlot{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:30", IsAvailable: true},
			{DayOfWeek: 1, StartTime: "09:30", EndTime: "10:00", IsAvailable: false},
		},
		AdvanceBookingDays: 14,
	}
	svc := newTestAvailabilityService(tmpl, nil)

	snapshot, err := svc.Resolve(context.Background(), testInstructorID)
	require.NoError(t, err)

	// One available Monday slot per projected week.
	assert.Len(t, snapshot.Slots, 4)
	for _, slot := range snapshot.Slots {
		assert.Equal(t, time.Monday, slot.Date.Weekday())
		assert.Equal(t, "09:00", slot.Time)
	}
	assert.Equal(t, 14, snapshot.AdvanceBookingDays)
}

func TestResolveExcludesActiveBookings(t *testing.T) {
	tmpl := &models.AvailabilityTemplate{
		InstructorID: testInstructorID,
		Slots: []models.WeeklySlot{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:30", IsAvailable: true},
		},
		AdvanceBookingDays: 30,
	}
	active := []models.Booking{
		{
			InstructorID: testInstructorID,
			Date:         time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
			Time:         "09:00",
			Status:       models.BookingPending,
		},
	}
	svc := newTestAvailabilityService(tmpl, active)

	snapshot, err := svc.Resolve(context.Background(), testInstructorID)
	require.NoError(t, err)

	assert.Len(t, snapshot.Slots, 3)
	for _, slot := range snapshot.Slots {
		assert.False(t, slot.Date.Equal(active[0].Date) && slot.Time == "09:00")
	}
}

func TestTimesForDateReturnsSortedClocks(t *testing.T) {
	tmpl := &models.AvailabilityTemplate{
		InstructorID: testInstructorID,
		Slots: []models.WeeklySlot{
			{DayOfWeek: 5, StartTime: "14:00", EndTime: "14:30", IsAvailable: true},
			{DayOfWeek: 5, StartTime: "09:00", EndTime: "09:30", IsAvailable: true},
		},
		AdvanceBookingDays: 30,
	}
	svc := newTestAvailabilityService(tmpl, nil)

	times, err := svc.TimesForDate(context.Background(), testInstructorID,
		time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "14:00"}, times)
}

func TestSlotOpen(t *testing.T) {
	tmpl := &models.AvailabilityTemplate{
		InstructorID: testInstructorID,
		Slots: []models.WeeklySlot{
			{DayOfWeek: 5, StartTime: "09:00", EndTime: "09:30", IsAvailable: true},
		},
		AdvanceBookingDays: 30,
	}
	svc := newTestAvailabilityService(tmpl, nil)
	friday := time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC)

	open, err := svc.SlotOpen(context.Background(), testInstructorID, friday, "09:00")
	require.NoError(t, err)
	assert.True(t, open)

	open, err = svc.SlotOpen(context.Background(), testInstructorID, friday, "09:30")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestDateSelectableHonoursAdvanceWindow(t *testing.T) {
	tmpl := &models.AvailabilityTemplate{
		InstructorID: testInstructorID,
		Slots: []models.WeeklySlot{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "09:30", IsAvailable: true},
		},
		AdvanceBookingDays: 7,
	}
	svc := newTestAvailabilityService(tmpl, nil)

	// Monday within the 7 day window.
	ok, err := svc.DateSelectable(context.Background(), testInstructorID,
		time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)

	// Monday of the following week, past the window.
	ok, err = svc.DateSelectable(context.Background(), testInstructorID,
		time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

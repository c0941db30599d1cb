package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

// Wednesday 2024-03-06 15:00 UTC; its week starts Sunday 2024-03-03.
var refNow = time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)

func TestDefaultTemplateShape(t *testing.T) {
	tmpl := DefaultTemplate()

	require.Len(t, tmpl.Slots, 80, "5 weekdays x 16 half-hour slots")

	perDay := make(map[int]int)
	for _, slot := range tmpl.Slots {
		perDay[slot.DayOfWeek]++
		assert.True(t, slot.IsAvailable)
	}
	for day := 1; day <= 5; day++ {
		assert.Equal(t, 16, perDay[day], "day %d", day)
	}
	assert.Zero(t, perDay[0], "no Sunday slots")
	assert.Zero(t, perDay[6], "no Saturday slots")

	first := tmpl.Slots[0]
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "09:30", first.EndTime)

	last := tmpl.Slots[15]
	assert.Equal(t, "16:30", last.StartTime)
	assert.Equal(t, "17:00", last.EndTime, "no slot may overstep 17:00")
}

func TestDefaultTemplateMinuteRollover(t *testing.T) {
	tmpl := DefaultTemplate()

	for _, slot := range tmpl.Slots {
		if slot.StartTime == "09:30" {
			assert.Equal(t, "10:00", slot.EndTime, "09:30 must roll over to 10:00, not 09:60")
		}
		_, err := time.Parse(ClockLayout, slot.EndTime)
		assert.NoError(t, err, "end time %q must be a valid clock value", slot.EndTime)
	}
}

func TestProjectWeeklyHorizon(t *testing.T) {
	slots := []models.WeeklySlot{
		{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:30", IsAvailable: true},
	}

	resolved := ProjectWeekly(slots, 4, refNow)
	require.Len(t, resolved, 4, "one Monday per horizon week")

	weekStart := StartOfWeek(refNow)
	weekEnd := weekStart.AddDate(0, 0, 28)
	for _, slot := range resolved {
		assert.False(t, slot.Date.Before(weekStart), "date %v before week start", slot.Date)
		assert.True(t, slot.Date.Before(weekEnd), "date %v beyond horizon", slot.Date)
	}

	// The first Monday of the horizon (2024-03-04) is already in the past
	// relative to refNow; projection intentionally keeps it.
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), resolved[0].Date)
}

func TestProjectWeeklyEdgeCases(t *testing.T) {
	slots := []models.WeeklySlot{
		{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:30", IsAvailable: true},
		{DayOfWeek: 2, StartTime: "11:00", EndTime: "11:30", IsAvailable: false},
		{DayOfWeek: 3, StartTime: "bogus", EndTime: "10:30", IsAvailable: true},
	}

	assert.Nil(t, ProjectWeekly(slots, 0, refNow))
	assert.Nil(t, ProjectWeekly(slots, -2, refNow))

	resolved := ProjectWeekly(slots, 2, refNow)
	require.Len(t, resolved, 2, "unavailable and malformed slots are skipped")
	for _, slot := range resolved {
		assert.Equal(t, time.Monday, slot.Date.Weekday())
	}
}

func TestExcludeBookedRemovesExactSlot(t *testing.T) {
	slots := []models.WeeklySlot{
		{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:30", IsAvailable: true},
	}
	resolved := ProjectWeekly(slots, 4, refNow)
	require.Len(t, resolved, 4)

	booking := models.Booking{
		Date:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Time:   "10:00",
		Status: models.BookingUpcoming,
	}

	open := ExcludeBooked(resolved, []models.Booking{booking})
	require.Len(t, open, 3, "exactly the booked Monday is removed")
	for _, slot := range open {
		assert.False(t, slot.Date.Equal(booking.Date), "booked date must not remain")
	}
}

func TestExcludeBookedNormalisesDateKeys(t *testing.T) {
	resolved := []models.ResolvedSlot{
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Time: "10:00"},
	}
	// Stored instant carries a time-of-day component; same calendar day.
	booking := models.Booking{
		Date: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		Time: "10:00",
	}

	open := ExcludeBooked(resolved, []models.Booking{booking})
	assert.Empty(t, open)
}

func TestExcludeBookedIsIdempotent(t *testing.T) {
	slots := []models.WeeklySlot{
		{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:30", IsAvailable: true},
		{DayOfWeek: 4, StartTime: "14:00", EndTime: "14:30", IsAvailable: true},
	}
	resolved := ProjectWeekly(slots, 3, refNow)
	bookings := []models.Booking{
		{Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), Time: "10:00", Status: models.BookingPending},
		{Date: time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC), Time: "14:00", Status: models.BookingUpcoming},
	}

	once := ExcludeBooked(resolved, bookings)
	twice := ExcludeBooked(once, bookings)
	assert.Equal(t, once, twice)
}

func TestExcludeBookedEmptyBookings(t *testing.T) {
	resolved := []models.ResolvedSlot{
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Time: "10:00"},
	}
	assert.Equal(t, resolved, ExcludeBooked(resolved, nil))
}

func TestTimesForDateSortsByWallClock(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	resolved := []models.ResolvedSlot{
		{Date: day, Time: "14:00"},
		{Date: day, Time: "09:00"},
		{Date: day, Time: "11:30"},
		{Date: day.AddDate(0, 0, 1), Time: "08:00"},
	}

	times := TimesForDate(resolved, day)
	assert.Equal(t, []string{"09:00", "11:30", "14:00"}, times)

	// Deterministic across repeated calls with identical input.
	assert.Equal(t, times, TimesForDate(resolved, day))

	// The date argument's own time-of-day is ignored.
	assert.Equal(t, times, TimesForDate(resolved, day.Add(13*time.Hour)))
}

func TestDateSelectableBoundaries(t *testing.T) {
	today := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)

	at := func(days int) time.Time { return today.AddDate(0, 0, days) }
	resolved := []models.ResolvedSlot{
		{Date: truncateToDay(at(-1)), Time: "10:00"},
		{Date: truncateToDay(at(0)), Time: "10:00"},
		{Date: truncateToDay(at(30)), Time: "10:00"},
		{Date: truncateToDay(at(31)), Time: "10:00"},
	}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"yesterday", at(-1), false},
		{"today", at(0), true},
		{"exactly 30 days out", at(30), true},
		{"31 days out", at(31), false},
		{"in window but no slots", at(10), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DateSelectable(tc.date, today, 30, resolved))
		})
	}
}

func TestStartOfWeekSundayAligned(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{refNow, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StartOfWeek(tc.in))
	}
}

// Package availability resolves an instructor's recurring weekly template
// into concrete bookable (date, time) slots over a bounded future horizon.
//
// Every function here is a pure computation over already-fetched data: no
// I/O, no shared state, safe to call from any goroutine.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/blocklearn/blocklearn-api/internal/models"
)

const (
	// ClockLayout is the wall-clock format used by weekly slots ("HH:MM").
	ClockLayout = "15:04"

	dayKeyLayout = "2006-01-02"

	// DefaultHorizonWeeks is the forward-looking window offered to students.
	DefaultHorizonWeeks = 4
)

// DefaultTemplate returns the availability pattern used when an instructor
// has not configured one: weekdays, 09:00 to 17:00 split into contiguous
// 30-minute slots.
func DefaultTemplate() models.AvailabilityTemplate {
	var slots []models.WeeklySlot
	for day := 1; day <= 5; day++ {
		for hour := 9; hour < 17; hour++ {
			for _, minute := range []int{0, 30} {
				endMinute := (minute + 30) % 60
				endHour := hour
				if minute+30 == 60 {
					endHour = hour + 1
				}
				slots = append(slots, models.WeeklySlot{
					DayOfWeek:   day,
					StartTime:   fmt.Sprintf("%02d:%02d", hour, minute),
					EndTime:     fmt.Sprintf("%02d:%02d", endHour, endMinute),
					IsAvailable: true,
				})
			}
		}
	}
	return models.AvailabilityTemplate{
		Slots:              slots,
		BufferTime:         15,
		AdvanceBookingDays: 30,
		SessionDurations:   []string{"30 minutes", "60 minutes"},
		Pricing:            map[string]float64{"30 minutes": 25, "60 minutes": 45},
	}
}

// ProjectWeekly projects weekly slots onto concrete dates, starting from the
// Sunday-aligned beginning of now's week and covering horizonWeeks weeks.
//
// Dates earlier than now are deliberately not filtered out here; the lower
// bound is applied at selection time by DateSelectable. Output order is not
// guaranteed. Slots with an unparseable start time are skipped rather than
// failing the whole projection.
func ProjectWeekly(slots []models.WeeklySlot, horizonWeeks int, now time.Time) []models.ResolvedSlot {
	if horizonWeeks <= 0 {
		return nil
	}

	anchor := StartOfWeek(now)
	var resolved []models.ResolvedSlot
	for week := 0; week < horizonWeeks; week++ {
		for offset := 0; offset < 7; offset++ {
			date := anchor.AddDate(0, 0, week*7+offset)
			weekday := int(date.Weekday())
			for _, slot := range slots {
				if !slot.IsAvailable || slot.DayOfWeek != weekday {
					continue
				}
				if _, err := time.Parse(ClockLayout, slot.StartTime); err != nil {
					continue
				}
				resolved = append(resolved, models.ResolvedSlot{Date: date, Time: slot.StartTime})
			}
		}
	}
	return resolved
}

// ExcludeBooked removes every resolved slot already occupied by an active
// booking. The caller is responsible for pre-filtering bookings to active
// statuses (PENDING, UPCOMING).
//
// Bookings may carry a stored instant with any time-of-day component;
// comparison is by calendar day, normalised through formatting, never by
// time.Time equality.
func ExcludeBooked(resolved []models.ResolvedSlot, active []models.Booking) []models.ResolvedSlot {
	if len(active) == 0 {
		return resolved
	}

	booked := make(map[string]struct{}, len(active))
	for _, b := range active {
		booked[slotKey(b.Date, b.Time)] = struct{}{}
	}

	open := make([]models.ResolvedSlot, 0, len(resolved))
	for _, slot := range resolved {
		if _, taken := booked[slotKey(slot.Date, slot.Time)]; taken {
			continue
		}
		open = append(open, slot)
	}
	return open
}

// TimesForDate returns the start times of slots falling on date's calendar
// day, sorted ascending by wall-clock time.
func TimesForDate(resolved []models.ResolvedSlot, date time.Time) []string {
	day := date.Format(dayKeyLayout)
	var times []string
	for _, slot := range resolved {
		if slot.Date.Format(dayKeyLayout) == day {
			times = append(times, slot.Time)
		}
	}
	sort.Slice(times, func(i, j int) bool {
		return clockMinutes(times[i]) < clockMinutes(times[j])
	})
	return times
}

// DateSelectable reports whether a student may pick the given date: it must
// not be before today, must fall within the advance-booking window, and must
// have at least one resolved slot. Comparisons are calendar-day based.
func DateSelectable(date, today time.Time, advanceBookingDays int, resolved []models.ResolvedSlot) bool {
	day := truncateToDay(date)
	lower := truncateToDay(today)
	upper := lower.AddDate(0, 0, advanceBookingDays)

	if day.Before(lower) || day.After(upper) {
		return false
	}

	key := day.Format(dayKeyLayout)
	for _, slot := range resolved {
		if slot.Date.Format(dayKeyLayout) == key {
			return true
		}
	}
	return false
}

// StartOfWeek returns midnight of the Sunday beginning t's week, in t's
// location.
func StartOfWeek(t time.Time) time.Time {
	day := truncateToDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func slotKey(date time.Time, clock string) string {
	return date.Format(dayKeyLayout) + "-" + clock
}

func clockMinutes(clock string) int {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

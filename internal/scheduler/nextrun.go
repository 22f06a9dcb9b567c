package scheduler

import (
	"fmt"
	"time"

	"github.com/feedline/feedline/internal/model"
)

// NextRun computes the next fire instant for a schedule from frequency,
// time of day, and day of week/month, relative to now.
//
// A weekly schedule whose day is today but whose time already passed rolls a
// full week ahead, same as daily rolls a day and monthly rolls a month.
func NextRun(s *model.Schedule, now time.Time) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(s.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	switch s.Frequency {
	case model.FrequencyDaily:
		candidate := at(now, now.Day(), hour, minute)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case model.FrequencyWeekly:
		if s.DayOfWeek == nil || *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return time.Time{}, fmt.Errorf("weekly schedule %s has no valid day_of_week", s.ID)
		}
		days := (7 + *s.DayOfWeek - int(now.Weekday())) % 7
		candidate := at(now, now.Day(), hour, minute).AddDate(0, 0, days)
		if days == 0 && !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate, nil

	case model.FrequencyMonthly:
		if s.DayOfMonth == nil || *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("monthly schedule %s has no valid day_of_month", s.ID)
		}
		candidate := monthlyAt(now.Year(), now.Month(), *s.DayOfMonth, hour, minute, now.Location())
		if !candidate.After(now) {
			year, month := now.Year(), now.Month()+1
			if month > time.December {
				year, month = year+1, time.January
			}
			candidate = monthlyAt(year, month, *s.DayOfMonth, hour, minute, now.Location())
		}
		return candidate, nil

	default:
		return time.Time{}, fmt.Errorf("schedule %s has unknown frequency %q", s.ID, s.Frequency)
	}
}

func parseTimeOfDay(tod string) (hour, minute int, err error) {
	if _, err := time.Parse("15:04", tod); err != nil {
		return 0, 0, fmt.Errorf("invalid time_of_day %q: %w", tod, err)
	}
	fmt.Sscanf(tod, "%d:%d", &hour, &minute)
	return hour, minute, nil
}

func at(now time.Time, day, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, now.Location())
}

// monthlyAt clamps days 29-31 to the target month's last day.
func monthlyAt(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

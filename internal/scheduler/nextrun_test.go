package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedline/feedline/internal/model"
)

func intp(v int) *int { return &v }

func TestNextRun(t *testing.T) {
	// A Monday at noon UTC.
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		sched *model.Schedule
		now   time.Time
		want  time.Time
	}{
		{
			name:  "daily time already passed rolls to tomorrow",
			sched: &model.Schedule{Frequency: model.FrequencyDaily, TimeOfDay: "08:00"},
			now:   now,
			want:  time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "daily time still ahead fires today",
			sched: &model.Schedule{Frequency: model.FrequencyDaily, TimeOfDay: "15:30"},
			now:   now,
			want:  time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC),
		},
		{
			name:  "weekly wednesday from monday is two days ahead",
			sched: &model.Schedule{Frequency: model.FrequencyWeekly, TimeOfDay: "09:00", DayOfWeek: intp(3)},
			now:   now,
			want:  time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "weekly same day with passed time rolls a full week",
			sched: &model.Schedule{Frequency: model.FrequencyWeekly, TimeOfDay: "08:00", DayOfWeek: intp(1)},
			now:   now,
			want:  time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "weekly same day with time ahead fires today",
			sched: &model.Schedule{Frequency: model.FrequencyWeekly, TimeOfDay: "15:00", DayOfWeek: intp(1)},
			now:   now,
			want:  time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC),
		},
		{
			name:  "monthly day ahead fires this month",
			sched: &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "10:00", DayOfMonth: intp(15)},
			now:   now,
			want:  time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "monthly same day with passed time rolls to next month",
			sched: &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "08:00", DayOfMonth: intp(9)},
			now:   now,
			want:  time.Date(2026, 4, 9, 8, 0, 0, 0, time.UTC),
		},
		{
			name:  "monthly day 31 clamps to february's last day",
			sched: &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "10:00", DayOfMonth: intp(31)},
			now:   time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "monthly clamped day already passed rolls to next month's real day",
			sched: &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "10:00", DayOfMonth: intp(31)},
			now:   time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "monthly rolls across year end",
			sched: &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "10:00", DayOfMonth: intp(5)},
			now:   time.Date(2026, 12, 20, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2027, 1, 5, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextRun(tc.sched, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextRun_InvalidConfig(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		sched *model.Schedule
	}{
		{"bad time of day", &model.Schedule{Frequency: model.FrequencyDaily, TimeOfDay: "25:99"}},
		{"weekly without day of week", &model.Schedule{Frequency: model.FrequencyWeekly, TimeOfDay: "08:00"}},
		{"weekly day out of range", &model.Schedule{Frequency: model.FrequencyWeekly, TimeOfDay: "08:00", DayOfWeek: intp(7)}},
		{"monthly without day of month", &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "08:00"}},
		{"monthly day out of range", &model.Schedule{Frequency: model.FrequencyMonthly, TimeOfDay: "08:00", DayOfMonth: intp(32)}},
		{"unknown frequency", &model.Schedule{Frequency: "HOURLY", TimeOfDay: "08:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NextRun(tc.sched, now)
			assert.Error(t, err)
		})
	}
}

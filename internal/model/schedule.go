package model

import "time"

// Schedule frequencies.
const (
	FrequencyDaily   = "DAILY"
	FrequencyWeekly  = "WEEKLY"
	FrequencyMonthly = "MONTHLY"
)

// Schedule describes one recurring export job: which source to pull, which
// transformation to apply, and which destination to push to, on what cadence.
type Schedule struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	SourceID         string     `json:"source_id"`
	TransformationID *string    `json:"transformation_id,omitempty"`
	DestinationID    string     `json:"destination_id"`
	Frequency        string     `json:"frequency"`
	// TimeOfDay is "HH:MM" in the schedule's location (UTC for now).
	TimeOfDay  string     `json:"time_of_day"`
	DayOfWeek  *int       `json:"day_of_week,omitempty"`  // 0=Sunday .. 6=Saturday, WEEKLY only
	DayOfMonth *int       `json:"day_of_month,omitempty"` // 1..31, MONTHLY only
	Active     bool       `json:"active"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

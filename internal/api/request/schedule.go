package request

import (
	"fmt"

	"github.com/feedline/feedline/internal/model"
)

// CreateSchedule is the payload for creating a recurring export schedule.
type CreateSchedule struct {
	UserID           string  `json:"user_id" validate:"required"`
	SourceID         string  `json:"source_id" validate:"required"`
	TransformationID *string `json:"transformation_id,omitempty"`
	DestinationID    string  `json:"destination_id" validate:"required"`
	Frequency        string  `json:"frequency" validate:"required,oneof=DAILY WEEKLY MONTHLY"`
	TimeOfDay        string  `json:"time_of_day" validate:"required,hhmm"`
	DayOfWeek        *int    `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	DayOfMonth       *int    `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
}

// UpdateSchedule carries the mutable cadence fields. Nil fields are left
// unchanged.
type UpdateSchedule struct {
	TransformationID *string `json:"transformation_id,omitempty"`
	Frequency        *string `json:"frequency,omitempty" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY"`
	TimeOfDay        *string `json:"time_of_day,omitempty" validate:"omitempty,hhmm"`
	DayOfWeek        *int    `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	DayOfMonth       *int    `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
}

// ValidateCadence enforces the cross-field rules a struct tag cannot
// express: weekly schedules need a weekday, monthly schedules a day of
// month.
func ValidateCadence(frequency string, dayOfWeek, dayOfMonth *int) error {
	switch frequency {
	case model.FrequencyWeekly:
		if dayOfWeek == nil {
			return fmt.Errorf("day_of_week is required for WEEKLY schedules")
		}
	case model.FrequencyMonthly:
		if dayOfMonth == nil {
			return fmt.Errorf("day_of_month is required for MONTHLY schedules")
		}
	}
	return nil
}

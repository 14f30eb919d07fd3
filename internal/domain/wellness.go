package domain

import (
	"fmt"
	"time"
)

// WellnessEntry is one day's self-reported metrics for a student.
type WellnessEntry struct {
	ID              string
	UserID          string
	EntryDate       time.Time
	Mood            int
	SleepHours      float64
	ExerciseMinutes int
	Stress          int
	Note            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks metric ranges before persistence.
func (e WellnessEntry) Validate() error {
	if e.Mood < 1 || e.Mood > 5 {
		return fmt.Errorf("%w: mood must be between 1 and 5", ErrValidation)
	}
	if e.Stress < 1 || e.Stress > 5 {
		return fmt.Errorf("%w: stress must be between 1 and 5", ErrValidation)
	}
	if e.SleepHours < 0 || e.SleepHours > 24 {
		return fmt.Errorf("%w: sleep hours must be between 0 and 24", ErrValidation)
	}
	if e.ExerciseMinutes < 0 || e.ExerciseMinutes > 24*60 {
		return fmt.Errorf("%w: exercise minutes out of range", ErrValidation)
	}
	return nil
}

// WellnessSummary aggregates entries over a date range for trend views.
type WellnessSummary struct {
	Entries          int
	AvgMood          float64
	AvgSleepHours    float64
	AvgStress        float64
	TotalExerciseMin int
	From             time.Time
	To               time.Time
}

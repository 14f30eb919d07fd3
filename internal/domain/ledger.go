package domain

import "time"

// SpendLedger accumulates confirmed transfer amounts for one sender within a
// billing period. The spent total only ever increases; the cap is enforced at
// confirmation time so abandoned intents never reserve budget.
type SpendLedger struct {
	SenderID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	SpentMinor  int64
	CapMinor    int64
	UpdatedAt   time.Time
}

// Remaining returns the budget left in the period, never negative.
func (l SpendLedger) Remaining() int64 {
	if l.SpentMinor >= l.CapMinor {
		return 0
	}
	return l.CapMinor - l.SpentMinor
}

// PeriodStart truncates t to the first instant of its calendar month in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the first instant of the month after t in UTC.
func PeriodEnd(t time.Time) time.Time {
	return PeriodStart(t).AddDate(0, 1, 0)
}

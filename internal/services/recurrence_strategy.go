// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring transactions: each
// interval has a schedule that computes the k-th occurrence after the
// template's own date.

package services

import (
	"fmt"

	"financas/internal/core"
)

// Schedule is the strategy interface for one recurring interval.
type Schedule interface {
	// Occurrence returns anchor advanced by k intervals. Month-based
	// schedules keep the anchor's day of month, clamped to the month end.
	Occurrence(anchor core.Date, k int) core.Date
}

// DailySchedule repeats every day.
type DailySchedule struct{}

func (DailySchedule) Occurrence(anchor core.Date, k int) core.Date {
	return anchor.AddDays(k)
}

// WeeklySchedule repeats every 7 days.
type WeeklySchedule struct{}

func (WeeklySchedule) Occurrence(anchor core.Date, k int) core.Date {
	return anchor.AddDays(7 * k)
}

// MonthlySchedule repeats on the anchor's day of month.
type MonthlySchedule struct{}

func (MonthlySchedule) Occurrence(anchor core.Date, k int) core.Date {
	return core.AddMonthsClamped(anchor, k)
}

// YearlySchedule repeats on the anchor's month and day; Feb 29 falls back
// to Feb 28 in common years.
type YearlySchedule struct{}

func (YearlySchedule) Occurrence(anchor core.Date, k int) core.Date {
	return core.AddMonthsClamped(anchor, 12*k)
}

var schedules = map[core.RecurringInterval]Schedule{
	core.Daily:   DailySchedule{},
	core.Weekly:  WeeklySchedule{},
	core.Monthly: MonthlySchedule{},
	core.Yearly:  YearlySchedule{},
}

// GetSchedule returns the schedule for an interval.
func GetSchedule(interval core.RecurringInterval) (Schedule, error) {
	s, ok := schedules[interval]
	if !ok {
		return nil, fmt.Errorf("unknown recurring interval: %q", interval)
	}
	return s, nil
}

// DueOccurrences lists the occurrences of a template strictly after last
// (or after the anchor when nothing was materialized yet) and on or before
// today. At most limit dates are returned.
func DueOccurrences(s Schedule, anchor, last, today core.Date, limit int) []core.Date {
	var out []core.Date
	for k := 1; len(out) < limit; k++ {
		d := s.Occurrence(anchor, k)
		if d.After(today.Time) {
			break
		}
		if !d.After(last.Time) {
			continue
		}
		out = append(out, d)
	}
	return out
}

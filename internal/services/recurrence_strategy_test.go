package services

import (
	"testing"

	"financas/internal/core"
)

func TestSchedules_Occurrence(t *testing.T) {
	tests := []struct {
		name     string
		interval core.RecurringInterval
		anchor   core.Date
		k        int
		want     core.Date
	}{
		{"daily next", core.Daily, core.NewDate(2024, 1, 31), 1, core.NewDate(2024, 2, 1)},
		{"daily across year", core.Daily, core.NewDate(2024, 12, 31), 1, core.NewDate(2025, 1, 1)},
		{"weekly", core.Weekly, core.NewDate(2024, 1, 1), 2, core.NewDate(2024, 1, 15)},
		{"monthly plain", core.Monthly, core.NewDate(2024, 1, 15), 1, core.NewDate(2024, 2, 15)},
		{"monthly clamps to leap february", core.Monthly, core.NewDate(2024, 1, 31), 1, core.NewDate(2024, 2, 29)},
		{"monthly clamps to april", core.Monthly, core.NewDate(2024, 1, 31), 3, core.NewDate(2024, 4, 30)},
		{"monthly recovers day after clamp", core.Monthly, core.NewDate(2024, 1, 31), 2, core.NewDate(2024, 3, 31)},
		{"yearly", core.Yearly, core.NewDate(2023, 6, 10), 1, core.NewDate(2024, 6, 10)},
		{"yearly leap day", core.Yearly, core.NewDate(2024, 2, 29), 1, core.NewDate(2025, 2, 28)},
		{"yearly leap day returns", core.Yearly, core.NewDate(2024, 2, 29), 4, core.NewDate(2028, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GetSchedule(tt.interval)
			if err != nil {
				t.Fatalf("GetSchedule(%q) error = %v", tt.interval, err)
			}
			if got := s.Occurrence(tt.anchor, tt.k); !got.Equal(tt.want.Time) {
				t.Errorf("Occurrence(%s, %d) = %s, want %s", tt.anchor, tt.k, got, tt.want)
			}
		})
	}
}

func TestGetSchedule_Unknown(t *testing.T) {
	if _, err := GetSchedule("hourly"); err == nil {
		t.Error("expected error for unknown interval")
	}
}

func TestDueOccurrences(t *testing.T) {
	anchor := core.NewDate(2024, 1, 31)
	today := core.NewDate(2024, 5, 10)

	tests := []struct {
		name  string
		last  core.Date
		limit int
		want  []string
	}{
		{"nothing materialized", anchor, 100, []string{"2024-02-29", "2024-03-31", "2024-04-30"}},
		{"resume after last", core.NewDate(2024, 3, 31), 100, []string{"2024-04-30"}},
		{"up to date", core.NewDate(2024, 4, 30), 100, nil},
		{"limited", anchor, 2, []string{"2024-02-29", "2024-03-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueOccurrences(MonthlySchedule{}, anchor, tt.last, today, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("DueOccurrences() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].String() != tt.want[i] {
					t.Errorf("DueOccurrences()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDueOccurrences_TodayIncluded(t *testing.T) {
	got := DueOccurrences(DailySchedule{}, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 3), 10)
	if len(got) != 2 || got[1].String() != "2024-03-03" {
		t.Errorf("DueOccurrences() = %v", got)
	}
}

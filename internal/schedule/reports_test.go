package schedule_test

import (
	"testing"
	"time"

	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/schedule"
)

func report(date time.Time, minutes int, credit bool) models.ServiceReport {
	return models.ServiceReport{Date: date, Minutes: minutes, MinistryCredit: credit}
}

func TestSummarizeMonth(t *testing.T) {
	april := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	reports := []models.ServiceReport{
		report(time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC), 90, false),
		report(time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC), 60, false),
		report(time.Date(2023, 4, 20, 0, 0, 0, 0, time.UTC), 120, true),
		// Same month, different year: excluded.
		report(time.Date(2022, 4, 20, 0, 0, 0, 0, time.UTC), 500, false),
		report(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), 30, false),
	}

	got := schedule.SummarizeMonth(reports, april)
	want := schedule.MonthSummary{Minutes: 150, CreditMinutes: 120, Reports: 3}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSummarizeMonthEmpty(t *testing.T) {
	got := schedule.SummarizeMonth(nil, time.Now())
	if got != (schedule.MonthSummary{}) {
		t.Errorf("got %+v, want zero summary", got)
	}
}

func TestGoalProgress(t *testing.T) {
	cases := []struct {
		name      string
		minutes   int
		goalHours int
		want      float64
	}{
		{"half way", 300, 10, 0.5},
		{"complete", 600, 10, 1},
		{"over goal clamps", 900, 10, 1},
		{"zero goal", 300, 0, 0},
		{"negative goal", 300, -5, 0},
		{"no minutes", 0, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := schedule.GoalProgress(tc.minutes, tc.goalHours); got != tc.want {
				t.Errorf("GoalProgress(%d, %d) = %v, want %v", tc.minutes, tc.goalHours, got, tc.want)
			}
		})
	}
}

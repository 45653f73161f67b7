package schedule

import (
	"time"

	"github.com/starford/fieldwork/internal/models"
)

// MonthSummary aggregates service time for one calendar month.
type MonthSummary struct {
	Minutes       int `json:"minutes"`
	CreditMinutes int `json:"creditMinutes"`
	Reports       int `json:"reports"`
}

// SummarizeMonth totals the reports dated in the same calendar month and
// year as month. Ministry-credit time is totalled separately because it
// counts toward a different ceiling than field minutes.
func SummarizeMonth(reports []models.ServiceReport, month time.Time) MonthSummary {
	var sum MonthSummary
	for _, r := range reports {
		if !sameMonth(r.Date, month) {
			continue
		}
		sum.Reports++
		if r.MinistryCredit {
			sum.CreditMinutes += r.Minutes
		} else {
			sum.Minutes += r.Minutes
		}
	}
	return sum
}

// GoalProgress returns the fraction of an hour goal covered by minutes,
// clamped to [0, 1]. A non-positive goal yields 0.
func GoalProgress(minutes, goalHours int) float64 {
	if goalHours <= 0 {
		return 0
	}
	p := float64(minutes) / float64(goalHours*60)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

package models

import "time"

// ServiceReport is one block of recorded ministry time. Time is stored in
// minutes; hour totals are derived at query time.
type ServiceReport struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Minutes        int       `json:"minutes"`
	MinistryCredit bool      `json:"ministryCredit,omitempty"`
	Note           string    `json:"note,omitempty"`
}

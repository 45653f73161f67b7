package api

import (
	"github.com/starford/fieldwork/internal/importer"
	"github.com/starford/fieldwork/internal/models"
	"github.com/starford/fieldwork/internal/schedule"
)

// ContactListResponse wraps a contact listing.
type ContactListResponse struct {
	Contacts []models.Contact `json:"contacts"`
	Total    int              `json:"total"`
}

// ConversationListResponse wraps a conversation listing.
type ConversationListResponse struct {
	Conversations []models.Conversation `json:"conversations"`
	Total         int                   `json:"total"`
}

// DismissRequest suppresses a contact until a preset duration elapses or an
// explicit timestamp passes. Exactly one of the two should be set; until wins
// when both are.
type DismissRequest struct {
	Preset string `json:"preset,omitempty"`
	Until  string `json:"until,omitempty"`
}

// StudiesResponse is the monthly distinct-contact study count.
type StudiesResponse struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// FollowUpsResponse lists upcoming follow-up conversations, sorted by
// follow-up date ascending.
type FollowUpsResponse struct {
	Conversations []models.Conversation `json:"conversations"`
}

// ImportConflictResponse is returned with status 409 when an import needs a
// resolution decision. The client re-submits with ?resolution=keep|replace
// (or copy, for an active-set conflict).
type ImportConflictResponse struct {
	Error    string            `json:"error"`
	Conflict importer.Conflict `json:"conflict"`
	Existing models.Contact    `json:"existing"`
}

// ImportResponse reports a committed import.
type ImportResponse struct {
	ContactID string `json:"contactId"`
}

// ReportSummaryResponse is the monthly service-time rollup.
type ReportSummaryResponse struct {
	Month     string                `json:"month"`
	Summary   schedule.MonthSummary `json:"summary"`
	GoalHours int                   `json:"goalHours,omitempty"`
	Progress  float64               `json:"progress"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionItemStatus represents the workflow status of a committed action item.
type ActionItemStatus string

const (
	ActionItemOpen      ActionItemStatus = "open"
	ActionItemAssigned  ActionItemStatus = "assigned"
	ActionItemCompleted ActionItemStatus = "completed"
)

// ActionItem is a committed action produced by promoting an
// ActionItemCandidate (or entered directly, in which case
// SelectedFromCandidateID is nil).
// Stored in the rcfa_action_items table; a unique index on
// selected_from_candidate_id guarantees at most one promotion per candidate.
type ActionItem struct {
	ID                      uuid.UUID        `json:"id"`
	InvestigationID         uuid.UUID        `json:"investigation_id"`
	ActionText              string           `json:"action_text"`
	Description             string           `json:"description,omitempty"`
	Priority                string           `json:"priority"`
	DueDate                 *time.Time       `json:"due_date,omitempty"`
	Status                  ActionItemStatus `json:"status"`
	SelectedFromCandidateID *uuid.UUID       `json:"selected_from_candidate_id,omitempty"`
	CreatedByUserID         uuid.UUID        `json:"created_by_user_id"`
	CreatedAt               time.Time        `json:"created_at"`
}

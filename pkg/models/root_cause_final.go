package models

import (
	"time"

	"github.com/google/uuid"
)

// RootCauseFinal is a committed root-cause determination produced by promoting
// a RootCauseCandidate (or entered directly, in which case
// SelectedFromCandidateID is nil).
// Stored in the rcfa_root_cause_finals table; a unique index on
// selected_from_candidate_id guarantees at most one promotion per candidate.
type RootCauseFinal struct {
	ID                      uuid.UUID  `json:"id"`
	InvestigationID         uuid.UUID  `json:"investigation_id"`
	Statement               string     `json:"statement"`
	Detail                  string     `json:"detail,omitempty"`
	SelectedFromCandidateID *uuid.UUID `json:"selected_from_candidate_id,omitempty"`
	CreatedByUserID         uuid.UUID  `json:"created_by_user_id"`
	CreatedAt               time.Time  `json:"created_at"`
}

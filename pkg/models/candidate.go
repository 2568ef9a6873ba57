package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate priority values suggested by the producer.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriorities contains all valid priority values.
var ValidPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// IsValidPriority checks if the given priority is valid.
func IsValidPriority(p string) bool {
	for _, v := range ValidPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// RootCauseCandidate is a generated root-cause hypothesis awaiting review.
// All fields are immutable after creation.
// Stored in the rcfa_root_cause_candidates table.
type RootCauseCandidate struct {
	ID              uuid.UUID `json:"id"`
	InvestigationID uuid.UUID `json:"investigation_id"`
	Text            string    `json:"text"`
	Rationale       string    `json:"rationale,omitempty"`
	Confidence      float64   `json:"confidence,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FollowupQuestion is a generated question for the investigation owner.
// Only the answer subset (AnswerText, AnsweredByUserID, AnsweredAt) is
// mutable; re-answering overwrites the previous answer silently.
// Stored in the rcfa_followup_questions table.
type FollowupQuestion struct {
	ID               uuid.UUID  `json:"id"`
	InvestigationID  uuid.UUID  `json:"investigation_id"`
	QuestionText     string     `json:"question_text"`
	Rationale        string     `json:"rationale,omitempty"`
	AnswerText       *string    `json:"answer_text,omitempty"`
	AnsweredByUserID *uuid.UUID `json:"answered_by_user_id,omitempty"`
	AnsweredAt       *time.Time `json:"answered_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsAnswered returns true if the question has been answered at least once.
func (q *FollowupQuestion) IsAnswered() bool {
	return q.AnsweredAt != nil
}

// ActionItemCandidate is a generated action-item suggestion awaiting review.
// All fields are immutable after creation.
// Stored in the rcfa_action_item_candidates table.
type ActionItemCandidate struct {
	ID                uuid.UUID  `json:"id"`
	InvestigationID   uuid.UUID  `json:"investigation_id"`
	ActionText        string     `json:"action_text"`
	Rationale         string     `json:"rationale,omitempty"`
	SuggestedPriority string     `json:"suggested_priority"`
	SuggestedDueDate  *time.Time `json:"suggested_due_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types. One per state-changing operation.
const (
	EventInvestigationCreated = "investigation_created"
	EventStatusAdvanced       = "investigation_status_advanced"
	EventInvestigationDeleted = "investigation_deleted"
	EventActionItemPromoted   = "action_item_promoted"
	EventRootCausePromoted    = "root_cause_promoted"
	EventFollowupAnswered     = "followup_answered"
	EventCandidatesIngested   = "candidates_ingested"
)

// AuditEvent is one immutable entry in the per-investigation ledger.
// Entries are never updated or deleted. Within an investigation, events are
// totally ordered by (CreatedAt, Seq); Seq is a monotonic tiebreaker assigned
// by the database.
// Stored in the rcfa_audit_events table.
type AuditEvent struct {
	Seq             int64          `json:"seq"`
	ID              uuid.UUID      `json:"id"`
	InvestigationID uuid.UUID      `json:"investigation_id"`
	ActorUserID     uuid.UUID      `json:"actor_user_id"`
	EventType       string         `json:"event_type"`
	Payload         map[string]any `json:"payload,omitempty"` // Schema varies by event type
	CreatedAt       time.Time      `json:"created_at"`
}

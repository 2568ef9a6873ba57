package models

import (
	"time"

	"github.com/google/uuid"
)

// InvestigationStatus represents the lifecycle status of an RCFA investigation.
type InvestigationStatus string

const (
	StatusIntake        InvestigationStatus = "intake"
	StatusInvestigation InvestigationStatus = "investigation"
	StatusClosed        InvestigationStatus = "closed"
)

// ValidInvestigationStatuses contains all valid status values.
var ValidInvestigationStatuses = []InvestigationStatus{
	StatusIntake,
	StatusInvestigation,
	StatusClosed,
}

// IsValidInvestigationStatus checks if the given status is valid.
func IsValidInvestigationStatus(s InvestigationStatus) bool {
	for _, v := range ValidInvestigationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Investigation represents a single RCFA case.
// Stored in the rcfa_investigations table.
type Investigation struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	OwnerUserID uuid.UUID           `json:"owner_user_id"`
	Status      InvestigationStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	ClosedAt    *time.Time          `json:"closed_at,omitempty"`
	DeletedAt   *time.Time          `json:"deleted_at,omitempty"` // Tombstone; hidden from all normal paths when set
}

// IsDeleted returns true if the investigation has been tombstoned.
func (i *Investigation) IsDeleted() bool {
	return i.DeletedAt != nil
}

// IsClosed returns true if the investigation reached its terminal status.
func (i *Investigation) IsClosed() bool {
	return i.Status == StatusClosed
}

// IsOwnedBy returns true if the given user owns this investigation.
func (i *Investigation) IsOwnedBy(userID uuid.UUID) bool {
	return i.OwnerUserID == userID
}

// CanTransitionTo reports whether the status machine permits moving to next.
// Legal transitions: intake -> investigation, investigation -> closed.
func (i *Investigation) CanTransitionTo(next InvestigationStatus) bool {
	switch i.Status {
	case StatusIntake:
		return next == StatusInvestigation
	case StatusInvestigation:
		return next == StatusClosed
	default:
		return false
	}
}

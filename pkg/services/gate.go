package services

import (
	"fmt"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/models"
)

// gate.go centralizes every status and authorization decision for an
// investigation. Services call these helpers instead of comparing fields
// inline so the rules live in exactly one place.
//
// Authorization is deliberately asymmetric: promotion is permitted to the
// owner or an admin, while answering a follow-up question is owner-only with
// no admin override, and an ownership mismatch there surfaces as NotFound so
// that non-owners cannot probe for investigation existence.

// checkInvestigationVisible rejects absent and tombstoned investigations.
// Both cases are indistinguishable to the caller.
func checkInvestigationVisible(inv *models.Investigation) error {
	if inv == nil || inv.IsDeleted() {
		return fmt.Errorf("investigation: %w", apperrors.ErrNotFound)
	}
	return nil
}

// checkPromotionAccess permits the investigation owner or an admin.
func checkPromotionAccess(inv *models.Investigation, principal models.Principal) error {
	if principal.IsAdmin() || inv.IsOwnedBy(principal.UserID) {
		return nil
	}
	return fmt.Errorf("promotion requires ownership or admin role: %w", apperrors.ErrForbidden)
}

// checkPromotionStatus requires the investigation to be in the active
// investigation phase. Intake and closed investigations reject promotion.
func checkPromotionStatus(inv *models.Investigation) error {
	if inv.Status != models.StatusInvestigation {
		return apperrors.NewConflict(apperrors.CodeNotInInvestigation,
			"investigation %s has status %q", inv.ID, inv.Status)
	}
	return nil
}

// checkAnswerAccess permits only the investigation owner. A mismatch is
// reported as NotFound, never Forbidden.
func checkAnswerAccess(inv *models.Investigation, principal models.Principal) error {
	if !inv.IsOwnedBy(principal.UserID) {
		return fmt.Errorf("investigation: %w", apperrors.ErrNotFound)
	}
	return nil
}

// checkIngestStatus rejects writes of new candidate material into a closed
// investigation.
func checkIngestStatus(inv *models.Investigation) error {
	if inv.IsClosed() {
		return apperrors.NewConflict(apperrors.CodeInvestigationClosed,
			"investigation %s is closed", inv.ID)
	}
	return nil
}

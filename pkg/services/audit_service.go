package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/repositories"
)

// AuditService records and reads the per-investigation audit trail.
// Every state-changing operation appends exactly one event; the ledger is
// append-only and survives tombstoning of its investigation.
type AuditService interface {
	// Record appends one event. When called inside a transaction the append
	// commits or rolls back together with the operation it describes.
	Record(ctx context.Context, investigationID, actorUserID uuid.UUID, eventType string, payload map[string]any) error

	// ListByInvestigation returns the full trail in occurrence order.
	// Fails with NotFound when the investigation is absent or tombstoned.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.AuditEvent, error)
}

type auditService struct {
	auditRepo repositories.AuditRepository
	invRepo   repositories.InvestigationRepository
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(
	auditRepo repositories.AuditRepository,
	invRepo repositories.InvestigationRepository,
	logger *zap.Logger,
) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		invRepo:   invRepo,
		logger:    logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, investigationID, actorUserID uuid.UUID, eventType string, payload map[string]any) error {
	event := &models.AuditEvent{
		InvestigationID: investigationID,
		ActorUserID:     actorUserID,
		EventType:       eventType,
		Payload:         payload,
	}

	if err := s.auditRepo.Append(ctx, event); err != nil {
		s.logger.Error("Failed to append audit event",
			zap.String("investigation_id", investigationID.String()),
			zap.String("event_type", eventType),
			zap.Error(err))
		return fmt.Errorf("append audit event: %w", err)
	}

	return nil
}

func (s *auditService) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.AuditEvent, error) {
	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("get investigation: %w", err)
	}
	if inv == nil || inv.IsDeleted() {
		return nil, fmt.Errorf("investigation: %w", apperrors.ErrNotFound)
	}

	events, err := s.auditRepo.ListByInvestigation(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	return events, nil
}

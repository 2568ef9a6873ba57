package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/repositories"
)

// defaultListLimit caps List when the caller does not specify one.
const defaultListLimit = 100

// InvestigationService manages the investigation lifecycle: creation in
// intake, forward-only status advancement, and tombstoning. Every mutation
// appends an audit event in the same transaction.
type InvestigationService interface {
	// Create opens a new investigation in intake status owned by the caller.
	Create(ctx context.Context, title string, principal models.Principal) (*models.Investigation, error)

	// Get returns an investigation. Fails with NotFound when absent or
	// tombstoned.
	Get(ctx context.Context, id uuid.UUID) (*models.Investigation, error)

	// List returns live investigations, newest first.
	List(ctx context.Context, limit int) ([]*models.Investigation, error)

	// AdvanceStatus moves the investigation forward through the state
	// machine. Only intake to investigation and investigation to closed
	// are legal.
	AdvanceStatus(ctx context.Context, id uuid.UUID, next models.InvestigationStatus, principal models.Principal) (*models.Investigation, error)

	// SoftDelete tombstones an investigation. Admin only; the audit trail
	// survives.
	SoftDelete(ctx context.Context, id uuid.UUID, principal models.Principal) error
}

type investigationService struct {
	tx      database.TxRunner
	invRepo repositories.InvestigationRepository
	audit   AuditService
	logger  *zap.Logger
}

// NewInvestigationService creates a new InvestigationService.
func NewInvestigationService(
	tx database.TxRunner,
	invRepo repositories.InvestigationRepository,
	audit AuditService,
	logger *zap.Logger,
) InvestigationService {
	return &investigationService{
		tx:      tx,
		invRepo: invRepo,
		audit:   audit,
		logger:  logger.Named("investigation-service"),
	}
}

var _ InvestigationService = (*investigationService)(nil)

func (s *investigationService) Create(ctx context.Context, title string, principal models.Principal) (*models.Investigation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title must not be empty: %w", apperrors.ErrInvalidInput)
	}

	inv := &models.Investigation{
		Title:       title,
		OwnerUserID: principal.UserID,
		Status:      models.StatusIntake,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.invRepo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create investigation: %w", err)
		}
		return s.audit.Record(ctx, inv.ID, principal.UserID, models.EventInvestigationCreated, map[string]any{
			"title": inv.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created investigation",
		zap.String("investigation_id", inv.ID.String()),
		zap.String("owner_user_id", principal.UserID.String()))

	return inv, nil
}

func (s *investigationService) Get(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	inv, err := s.invRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get investigation: %w", err)
	}
	if err := checkInvestigationVisible(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *investigationService) List(ctx context.Context, limit int) ([]*models.Investigation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	investigations, err := s.invRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	return investigations, nil
}

func (s *investigationService) AdvanceStatus(ctx context.Context, id uuid.UUID, next models.InvestigationStatus, principal models.Principal) (*models.Investigation, error) {
	if !models.IsValidInvestigationStatus(next) {
		return nil, fmt.Errorf("unknown status %q: %w", next, apperrors.ErrInvalidInput)
	}

	inv, err := s.invRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get investigation: %w", err)
	}
	if err := checkInvestigationVisible(inv); err != nil {
		return nil, err
	}
	if err := checkPromotionAccess(inv, principal); err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err = s.invRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("re-read investigation: %w", err)
		}
		if err := checkInvestigationVisible(inv); err != nil {
			return err
		}
		if !inv.CanTransitionTo(next) {
			return apperrors.NewConflict(apperrors.CodeInvalidTransition,
				"cannot advance from %q to %q", inv.Status, next)
		}

		from := inv.Status
		var closedAt *time.Time
		if next == models.StatusClosed {
			now := time.Now()
			closedAt = &now
		}
		if err := s.invRepo.UpdateStatus(ctx, id, next, closedAt); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		inv.Status = next
		inv.ClosedAt = closedAt

		return s.audit.Record(ctx, id, principal.UserID, models.EventStatusAdvanced, map[string]any{
			"from": string(from),
			"to":   string(next),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Advanced investigation status",
		zap.String("investigation_id", id.String()),
		zap.String("status", string(next)))

	return inv, nil
}

func (s *investigationService) SoftDelete(ctx context.Context, id uuid.UUID, principal models.Principal) error {
	if !principal.IsAdmin() {
		return fmt.Errorf("tombstoning requires admin role: %w", apperrors.ErrForbidden)
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("re-read investigation: %w", err)
		}
		if err := checkInvestigationVisible(inv); err != nil {
			return err
		}
		if err := s.invRepo.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("soft-delete investigation: %w", err)
		}
		return s.audit.Record(ctx, id, principal.UserID, models.EventInvestigationDeleted, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Tombstoned investigation",
		zap.String("investigation_id", id.String()),
		zap.String("actor_user_id", principal.UserID.String()))

	return nil
}

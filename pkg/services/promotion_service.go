package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/repositories"
)

// PromotionService converts reviewed candidates into committed records.
// Each promotion is an atomic unit: the investigation is re-read under lock,
// the duplicate check runs inside the same transaction as the insert, and the
// audit append commits with it or not at all. The unique index on
// selected_from_candidate_id is the backstop when two promotions of the same
// candidate race past the in-transaction check.
type PromotionService interface {
	// PromoteActionItem turns an action-item candidate into an open action
	// item. At most one action item ever references a given candidate.
	PromoteActionItem(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.ActionItem, error)

	// PromoteRootCause turns a root-cause candidate into a confirmed
	// finding under the same protocol.
	PromoteRootCause(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.RootCauseFinal, error)

	// ListActionItems returns the promoted action items of an investigation.
	ListActionItems(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error)

	// ListRootCauseFinals returns the confirmed findings of an investigation.
	ListRootCauseFinals(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error)
}

type promotionService struct {
	tx             database.TxRunner
	invRepo        repositories.InvestigationRepository
	actionCandRepo repositories.ActionItemCandidateRepository
	rootCandRepo   repositories.RootCauseCandidateRepository
	itemRepo       repositories.ActionItemRepository
	finalRepo      repositories.RootCauseFinalRepository
	audit          AuditService
	logger         *zap.Logger
}

// NewPromotionService creates a new PromotionService.
func NewPromotionService(
	tx database.TxRunner,
	invRepo repositories.InvestigationRepository,
	actionCandRepo repositories.ActionItemCandidateRepository,
	rootCandRepo repositories.RootCauseCandidateRepository,
	itemRepo repositories.ActionItemRepository,
	finalRepo repositories.RootCauseFinalRepository,
	audit AuditService,
	logger *zap.Logger,
) PromotionService {
	return &promotionService{
		tx:             tx,
		invRepo:        invRepo,
		actionCandRepo: actionCandRepo,
		rootCandRepo:   rootCandRepo,
		itemRepo:       itemRepo,
		finalRepo:      finalRepo,
		audit:          audit,
		logger:         logger.Named("promotion-service"),
	}
}

var _ PromotionService = (*promotionService)(nil)

func (s *promotionService) PromoteActionItem(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.ActionItem, error) {
	// Cheap rejections before the transaction. Correctness does not depend
	// on these; the same checks run again under lock below.
	candidate, err := s.precheckActionItem(ctx, investigationID, candidateID, principal)
	if err != nil {
		return nil, err
	}

	var item *models.ActionItem
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invRepo.GetByIDForUpdate(ctx, investigationID)
		if err != nil {
			return fmt.Errorf("re-read investigation: %w", err)
		}
		if err := checkInvestigationVisible(inv); err != nil {
			return err
		}
		if err := checkPromotionStatus(inv); err != nil {
			return err
		}

		candidate, err = s.actionCandRepo.GetByID(ctx, candidateID)
		if err != nil {
			return fmt.Errorf("re-read candidate: %w", err)
		}
		if candidate == nil || candidate.InvestigationID != investigationID {
			return fmt.Errorf("action-item candidate: %w", apperrors.ErrNotFound)
		}

		existing, err := s.itemRepo.GetBySelectedCandidate(ctx, candidateID)
		if err != nil {
			return fmt.Errorf("check existing promotion: %w", err)
		}
		if existing != nil {
			return apperrors.NewConflict(apperrors.CodeAlreadyPromoted,
				"candidate %s already promoted to action item %s", candidateID, existing.ID)
		}

		item = &models.ActionItem{
			InvestigationID:         investigationID,
			ActionText:              candidate.ActionText,
			Description:             candidate.Rationale,
			Priority:                candidate.SuggestedPriority,
			DueDate:                 candidate.SuggestedDueDate,
			Status:                  models.ActionItemOpen,
			SelectedFromCandidateID: &candidate.ID,
			CreatedByUserID:         principal.UserID,
		}
		if err := s.itemRepo.Create(ctx, item); err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.NewConflict(apperrors.CodeAlreadyPromoted,
					"candidate %s already promoted", candidateID)
			}
			return fmt.Errorf("create action item: %w", err)
		}

		return s.audit.Record(ctx, investigationID, principal.UserID, models.EventActionItemPromoted, map[string]any{
			"candidateId":       candidateID.String(),
			"actionItemId":      item.ID.String(),
			"actionText":        item.ActionText,
			"actionDescription": item.Description,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Promoted action-item candidate",
		zap.String("investigation_id", investigationID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.String("action_item_id", item.ID.String()))

	return item, nil
}

func (s *promotionService) PromoteRootCause(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.RootCauseFinal, error) {
	if err := s.precheckRootCause(ctx, investigationID, candidateID, principal); err != nil {
		return nil, err
	}

	var final *models.RootCauseFinal
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invRepo.GetByIDForUpdate(ctx, investigationID)
		if err != nil {
			return fmt.Errorf("re-read investigation: %w", err)
		}
		if err := checkInvestigationVisible(inv); err != nil {
			return err
		}
		if err := checkPromotionStatus(inv); err != nil {
			return err
		}

		candidate, err := s.rootCandRepo.GetByID(ctx, candidateID)
		if err != nil {
			return fmt.Errorf("re-read candidate: %w", err)
		}
		if candidate == nil || candidate.InvestigationID != investigationID {
			return fmt.Errorf("root-cause candidate: %w", apperrors.ErrNotFound)
		}

		existing, err := s.finalRepo.GetBySelectedCandidate(ctx, candidateID)
		if err != nil {
			return fmt.Errorf("check existing promotion: %w", err)
		}
		if existing != nil {
			return apperrors.NewConflict(apperrors.CodeAlreadyPromoted,
				"candidate %s already promoted to finding %s", candidateID, existing.ID)
		}

		final = &models.RootCauseFinal{
			InvestigationID:         investigationID,
			Statement:               candidate.Text,
			Detail:                  candidate.Rationale,
			SelectedFromCandidateID: &candidate.ID,
			CreatedByUserID:         principal.UserID,
		}
		if err := s.finalRepo.Create(ctx, final); err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.NewConflict(apperrors.CodeAlreadyPromoted,
					"candidate %s already promoted", candidateID)
			}
			return fmt.Errorf("create root-cause finding: %w", err)
		}

		return s.audit.Record(ctx, investigationID, principal.UserID, models.EventRootCausePromoted, map[string]any{
			"candidateId": candidateID.String(),
			"rootCauseId": final.ID.String(),
			"statement":   final.Statement,
			"detail":      final.Detail,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Promoted root-cause candidate",
		zap.String("investigation_id", investigationID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.String("root_cause_id", final.ID.String()))

	return final, nil
}

// precheckActionItem runs the pre-transaction rejections in contract order:
// unknown investigation, unknown or foreign candidate, unauthorized actor,
// wrong status.
func (s *promotionService) precheckActionItem(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.ActionItemCandidate, error) {
	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("get investigation: %w", err)
	}
	if err := checkInvestigationVisible(inv); err != nil {
		return nil, err
	}

	candidate, err := s.actionCandRepo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if candidate == nil || candidate.InvestigationID != investigationID {
		return nil, fmt.Errorf("action-item candidate: %w", apperrors.ErrNotFound)
	}

	if err := checkPromotionAccess(inv, principal); err != nil {
		return nil, err
	}
	if err := checkPromotionStatus(inv); err != nil {
		return nil, err
	}

	return candidate, nil
}

func (s *promotionService) precheckRootCause(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) error {
	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return fmt.Errorf("get investigation: %w", err)
	}
	if err := checkInvestigationVisible(inv); err != nil {
		return err
	}

	candidate, err := s.rootCandRepo.GetByID(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("get candidate: %w", err)
	}
	if candidate == nil || candidate.InvestigationID != investigationID {
		return fmt.Errorf("root-cause candidate: %w", apperrors.ErrNotFound)
	}

	if err := checkPromotionAccess(inv, principal); err != nil {
		return err
	}
	return checkPromotionStatus(inv)
}

func (s *promotionService) ListActionItems(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error) {
	if err := s.requireVisible(ctx, investigationID); err != nil {
		return nil, err
	}
	items, err := s.itemRepo.ListByInvestigation(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	return items, nil
}

func (s *promotionService) ListRootCauseFinals(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error) {
	if err := s.requireVisible(ctx, investigationID); err != nil {
		return nil, err
	}
	finals, err := s.finalRepo.ListByInvestigation(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list root-cause findings: %w", err)
	}
	return finals, nil
}

func (s *promotionService) requireVisible(ctx context.Context, investigationID uuid.UUID) error {
	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return fmt.Errorf("get investigation: %w", err)
	}
	return checkInvestigationVisible(inv)
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/repositories"
)

// CandidateBatch is one delivery from the external producer. Any subset of
// the three kinds may be present.
type CandidateBatch struct {
	RootCauses  []*models.RootCauseCandidate
	Followups   []*models.FollowupQuestion
	ActionItems []*models.ActionItemCandidate
}

// IsEmpty returns true when the batch carries nothing.
func (b *CandidateBatch) IsEmpty() bool {
	return len(b.RootCauses) == 0 && len(b.Followups) == 0 && len(b.ActionItems) == 0
}

// CandidateService ingests producer-generated candidate material and serves
// the per-investigation candidate lists. Candidates are immutable once
// written; review happens through promotion, never through edits here.
type CandidateService interface {
	// IngestCandidates stores one producer batch atomically with a single
	// audit event. Fails with Conflict when the investigation is closed.
	IngestCandidates(ctx context.Context, investigationID uuid.UUID, principal models.Principal, batch CandidateBatch) error

	// ListRootCauseCandidates returns the root-cause hypotheses of an
	// investigation, oldest first.
	ListRootCauseCandidates(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseCandidate, error)

	// ListActionItemCandidates returns the suggested action items of an
	// investigation, oldest first.
	ListActionItemCandidates(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItemCandidate, error)
}

type candidateService struct {
	tx             database.TxRunner
	invRepo        repositories.InvestigationRepository
	rootCandRepo   repositories.RootCauseCandidateRepository
	questionRepo   repositories.FollowupQuestionRepository
	actionCandRepo repositories.ActionItemCandidateRepository
	audit          AuditService
	logger         *zap.Logger
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(
	tx database.TxRunner,
	invRepo repositories.InvestigationRepository,
	rootCandRepo repositories.RootCauseCandidateRepository,
	questionRepo repositories.FollowupQuestionRepository,
	actionCandRepo repositories.ActionItemCandidateRepository,
	audit AuditService,
	logger *zap.Logger,
) CandidateService {
	return &candidateService{
		tx:             tx,
		invRepo:        invRepo,
		rootCandRepo:   rootCandRepo,
		questionRepo:   questionRepo,
		actionCandRepo: actionCandRepo,
		audit:          audit,
		logger:         logger.Named("candidate-service"),
	}
}

var _ CandidateService = (*candidateService)(nil)

func (s *candidateService) IngestCandidates(ctx context.Context, investigationID uuid.UUID, principal models.Principal, batch CandidateBatch) error {
	if batch.IsEmpty() {
		return fmt.Errorf("batch must not be empty: %w", apperrors.ErrInvalidInput)
	}
	if err := validateBatch(batch); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invRepo.GetByIDForUpdate(ctx, investigationID)
		if err != nil {
			return fmt.Errorf("get investigation: %w", err)
		}
		if err := checkInvestigationVisible(inv); err != nil {
			return err
		}
		if err := checkIngestStatus(inv); err != nil {
			return err
		}

		for _, c := range batch.RootCauses {
			c.InvestigationID = investigationID
		}
		for _, q := range batch.Followups {
			q.InvestigationID = investigationID
		}
		for _, c := range batch.ActionItems {
			c.InvestigationID = investigationID
		}

		if err := s.rootCandRepo.CreateBatch(ctx, batch.RootCauses); err != nil {
			return err
		}
		if err := s.questionRepo.CreateBatch(ctx, batch.Followups); err != nil {
			return err
		}
		if err := s.actionCandRepo.CreateBatch(ctx, batch.ActionItems); err != nil {
			return err
		}

		return s.audit.Record(ctx, investigationID, principal.UserID, models.EventCandidatesIngested, map[string]any{
			"rootCauseCount":  len(batch.RootCauses),
			"followupCount":   len(batch.Followups),
			"actionItemCount": len(batch.ActionItems),
		})
	})
}

func (s *candidateService) ListRootCauseCandidates(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseCandidate, error) {
	if err := s.requireVisible(ctx, investigationID); err != nil {
		return nil, err
	}
	candidates, err := s.rootCandRepo.ListByInvestigation(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list root-cause candidates: %w", err)
	}
	return candidates, nil
}

func (s *candidateService) ListActionItemCandidates(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItemCandidate, error) {
	if err := s.requireVisible(ctx, investigationID); err != nil {
		return nil, err
	}
	candidates, err := s.actionCandRepo.ListByInvestigation(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list action-item candidates: %w", err)
	}
	return candidates, nil
}

func (s *candidateService) requireVisible(ctx context.Context, investigationID uuid.UUID) error {
	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return fmt.Errorf("get investigation: %w", err)
	}
	return checkInvestigationVisible(inv)
}

func validateBatch(batch CandidateBatch) error {
	for _, c := range batch.RootCauses {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("root-cause candidate text must not be empty: %w", apperrors.ErrInvalidInput)
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return fmt.Errorf("confidence must be within [0,1]: %w", apperrors.ErrInvalidInput)
		}
	}
	for _, q := range batch.Followups {
		if strings.TrimSpace(q.QuestionText) == "" {
			return fmt.Errorf("follow-up question text must not be empty: %w", apperrors.ErrInvalidInput)
		}
	}
	for _, c := range batch.ActionItems {
		if strings.TrimSpace(c.ActionText) == "" {
			return fmt.Errorf("action-item candidate text must not be empty: %w", apperrors.ErrInvalidInput)
		}
		if !models.IsValidPriority(c.SuggestedPriority) {
			return fmt.Errorf("unknown priority %q: %w", c.SuggestedPriority, apperrors.ErrInvalidInput)
		}
	}
	return nil
}

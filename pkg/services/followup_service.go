package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/repositories"
)

// maxAnswerLength bounds the answer body, in characters, after whitespace
// trimming.
const maxAnswerLength = 10000

// FollowupService handles answer submission on follow-up questions.
// Answering is owner-only; there is no admin override, and ownership
// mismatches surface as NotFound. Re-answering overwrites the previous
// answer silently.
type FollowupService interface {
	// AnswerFollowup records an answer and returns the updated question.
	AnswerFollowup(ctx context.Context, investigationID, questionID uuid.UUID, principal models.Principal, answerText string) (*models.FollowupQuestion, error)

	// ListFollowupQuestions returns the questions of an investigation.
	ListFollowupQuestions(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error)
}

type followupService struct {
	tx           database.TxRunner
	invRepo      repositories.InvestigationRepository
	questionRepo repositories.FollowupQuestionRepository
	audit        AuditService
	auditAnswers bool
	logger       *zap.Logger
}

// NewFollowupService creates a new FollowupService. auditAnswers controls
// whether answer submissions append to the audit trail.
func NewFollowupService(
	tx database.TxRunner,
	invRepo repositories.InvestigationRepository,
	questionRepo repositories.FollowupQuestionRepository,
	audit AuditService,
	auditAnswers bool,
	logger *zap.Logger,
) FollowupService {
	return &followupService{
		tx:           tx,
		invRepo:      invRepo,
		questionRepo: questionRepo,
		audit:        audit,
		auditAnswers: auditAnswers,
		logger:       logger.Named("followup-service"),
	}
}

var _ FollowupService = (*followupService)(nil)

func (s *followupService) AnswerFollowup(ctx context.Context, investigationID, questionID uuid.UUID, principal models.Principal, answerText string) (*models.FollowupQuestion, error) {
	answer := strings.TrimSpace(answerText)
	if answer == "" {
		return nil, fmt.Errorf("answer text must not be empty: %w", apperrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(answer) > maxAnswerLength {
		return nil, fmt.Errorf("answer text exceeds %d characters: %w", maxAnswerLength, apperrors.ErrInvalidInput)
	}

	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("get investigation: %w", err)
	}
	if err := checkInvestigationVisible(inv); err != nil {
		return nil, err
	}
	if err := checkAnswerAccess(inv, principal); err != nil {
		return nil, err
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if question == nil || question.InvestigationID != investigationID {
		return nil, fmt.Errorf("follow-up question: %w", apperrors.ErrNotFound)
	}

	answeredAt := time.Now()

	if s.auditAnswers {
		err = s.tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.questionRepo.SubmitAnswer(ctx, questionID, answer, principal.UserID, answeredAt); err != nil {
				return fmt.Errorf("submit answer: %w", err)
			}
			return s.audit.Record(ctx, investigationID, principal.UserID, models.EventFollowupAnswered, map[string]any{
				"questionId": questionID.String(),
			})
		})
	} else {
		err = s.questionRepo.SubmitAnswer(ctx, questionID, answer, principal.UserID, answeredAt)
	}
	if err != nil {
		return nil, err
	}

	question.AnswerText = &answer
	question.AnsweredByUserID = &principal.UserID
	question.AnsweredAt = &answeredAt

	s.logger.Info("Recorded follow-up answer",
		zap.String("investigation_id", investigationID.String()),
		zap.String("question_id", questionID.String()))

	return question, nil
}

func (s *followupService) ListFollowupQuestions(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error) {
	inv, err := s.invRepo.GetByID(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("get investigation: %w", err)
	}
	if err := checkInvestigationVisible(inv); err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListByInvestigation(ctx, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list follow-up questions: %w", err)
	}
	return questions, nil
}

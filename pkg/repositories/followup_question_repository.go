package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
)

// FollowupQuestionRepository provides data access for follow-up questions.
// Question text and rationale are immutable; only the answer fields change,
// and re-answering overwrites the previous answer in place.
type FollowupQuestionRepository interface {
	// CreateBatch inserts producer-generated follow-up questions.
	CreateBatch(ctx context.Context, questions []*models.FollowupQuestion) error

	// GetByID returns a question by id, or nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.FollowupQuestion, error)

	// ListByInvestigation returns all questions for an investigation,
	// oldest first.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error)

	// SubmitAnswer records an answer on a question. A previously answered
	// question is overwritten; the answer timestamp always reflects the
	// latest submission.
	SubmitAnswer(ctx context.Context, id uuid.UUID, answerText string, answeredBy uuid.UUID, answeredAt time.Time) error
}

type followupQuestionRepository struct{}

// NewFollowupQuestionRepository creates a new FollowupQuestionRepository.
func NewFollowupQuestionRepository() FollowupQuestionRepository {
	return &followupQuestionRepository{}
}

var _ FollowupQuestionRepository = (*followupQuestionRepository)(nil)

const followupColumns = "id, investigation_id, question_text, rationale, answer_text, answered_by_user_id, answered_at, created_at"

func (r *followupQuestionRepository) CreateBatch(ctx context.Context, questions []*models.FollowupQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO rcfa_followup_questions (id, investigation_id, question_text, rationale, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.CreatedAt = now
		batch.Queue(query, q.ID, q.InvestigationID, q.QuestionText, q.Rationale, q.CreatedAt)
	}

	results := scope.Conn.SendBatch(ctx, batch)
	defer results.Close()

	for range questions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create follow-up questions: %w", err)
		}
	}

	return nil
}

func (r *followupQuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FollowupQuestion, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + followupColumns + `
		FROM rcfa_followup_questions
		WHERE id = $1`

	q, err := scanFollowupQuestion(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get follow-up question: %w", err)
	}

	return q, nil
}

func (r *followupQuestionRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + followupColumns + `
		FROM rcfa_followup_questions
		WHERE investigation_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, investigationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-up questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.FollowupQuestion
	for rows.Next() {
		q, err := scanFollowupQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow-up questions: %w", err)
	}

	return questions, nil
}

func (r *followupQuestionRepository) SubmitAnswer(ctx context.Context, id uuid.UUID, answerText string, answeredBy uuid.UUID, answeredAt time.Time) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE rcfa_followup_questions
		SET answer_text = $2, answered_by_user_id = $3, answered_at = $4
		WHERE id = $1`

	tag, err := scope.Conn.Exec(ctx, query, id, answerText, answeredBy, answeredAt)
	if err != nil {
		return fmt.Errorf("failed to submit answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("follow-up question %s not found for answer", id)
	}

	return nil
}

func scanFollowupQuestion(row pgx.Row) (*models.FollowupQuestion, error) {
	var q models.FollowupQuestion
	err := row.Scan(
		&q.ID,
		&q.InvestigationID,
		&q.QuestionText,
		&q.Rationale,
		&q.AnswerText,
		&q.AnsweredByUserID,
		&q.AnsweredAt,
		&q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan follow-up question: %w", err)
	}
	return &q, nil
}

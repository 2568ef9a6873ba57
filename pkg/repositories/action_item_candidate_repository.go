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

// ActionItemCandidateRepository provides data access for suggested action
// items awaiting human review. Candidates are immutable once written;
// promotion copies their fields into rcfa_action_items without mutating
// the candidate row.
type ActionItemCandidateRepository interface {
	// CreateBatch inserts producer-generated action-item candidates.
	CreateBatch(ctx context.Context, candidates []*models.ActionItemCandidate) error

	// GetByID returns a candidate by id, or nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItemCandidate, error)

	// ListByInvestigation returns all candidates for an investigation,
	// oldest first.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItemCandidate, error)
}

type actionItemCandidateRepository struct{}

// NewActionItemCandidateRepository creates a new ActionItemCandidateRepository.
func NewActionItemCandidateRepository() ActionItemCandidateRepository {
	return &actionItemCandidateRepository{}
}

var _ ActionItemCandidateRepository = (*actionItemCandidateRepository)(nil)

const actionItemCandidateColumns = "id, investigation_id, action_text, rationale, suggested_priority, suggested_due_date, created_at"

func (r *actionItemCandidateRepository) CreateBatch(ctx context.Context, candidates []*models.ActionItemCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO rcfa_action_item_candidates (id, investigation_id, action_text, rationale, suggested_priority, suggested_due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, c := range candidates {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.CreatedAt = now
		batch.Queue(query, c.ID, c.InvestigationID, c.ActionText, c.Rationale, c.SuggestedPriority, c.SuggestedDueDate, c.CreatedAt)
	}

	results := scope.Conn.SendBatch(ctx, batch)
	defer results.Close()

	for range candidates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create action-item candidates: %w", err)
		}
	}

	return nil
}

func (r *actionItemCandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItemCandidate, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + actionItemCandidateColumns + `
		FROM rcfa_action_item_candidates
		WHERE id = $1`

	var c models.ActionItemCandidate
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.InvestigationID,
		&c.ActionText,
		&c.Rationale,
		&c.SuggestedPriority,
		&c.SuggestedDueDate,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get action-item candidate: %w", err)
	}

	return &c, nil
}

func (r *actionItemCandidateRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItemCandidate, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + actionItemCandidateColumns + `
		FROM rcfa_action_item_candidates
		WHERE investigation_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, investigationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list action-item candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.ActionItemCandidate
	for rows.Next() {
		var c models.ActionItemCandidate
		if err := rows.Scan(&c.ID, &c.InvestigationID, &c.ActionText, &c.Rationale, &c.SuggestedPriority, &c.SuggestedDueDate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action-item candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action-item candidates: %w", err)
	}

	return candidates, nil
}

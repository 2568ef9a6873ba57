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

// ActionItemRepository provides data access for promoted action items.
type ActionItemRepository interface {
	// Create inserts a new action item. Unique-constraint violations on
	// selected_from_candidate_id are returned unwrapped in the chain so
	// callers can detect a concurrent duplicate promotion.
	Create(ctx context.Context, item *models.ActionItem) error

	// GetByID returns an action item by id, or nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItem, error)

	// GetBySelectedCandidate returns the action item promoted from the
	// given candidate, or nil if the candidate has not been promoted.
	GetBySelectedCandidate(ctx context.Context, candidateID uuid.UUID) (*models.ActionItem, error)

	// ListByInvestigation returns all action items for an investigation,
	// oldest first.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error)

	// UpdateStatus sets the workflow status of an action item.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActionItemStatus) error
}

type actionItemRepository struct{}

// NewActionItemRepository creates a new ActionItemRepository.
func NewActionItemRepository() ActionItemRepository {
	return &actionItemRepository{}
}

var _ ActionItemRepository = (*actionItemRepository)(nil)

const actionItemColumns = "id, investigation_id, action_text, description, priority, due_date, status, selected_from_candidate_id, created_by_user_id, created_at"

func (r *actionItemRepository) Create(ctx context.Context, item *models.ActionItem) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()

	query := `
		INSERT INTO rcfa_action_items (id, investigation_id, action_text, description, priority, due_date, status, selected_from_candidate_id, created_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := scope.Conn.Exec(ctx, query,
		item.ID,
		item.InvestigationID,
		item.ActionText,
		item.Description,
		item.Priority,
		item.DueDate,
		item.Status,
		item.SelectedFromCandidateID,
		item.CreatedByUserID,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create action item: %w", err)
	}

	return nil
}

func (r *actionItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActionItem, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + actionItemColumns + `
		FROM rcfa_action_items
		WHERE id = $1`

	item, err := scanActionItem(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get action item: %w", err)
	}

	return item, nil
}

func (r *actionItemRepository) GetBySelectedCandidate(ctx context.Context, candidateID uuid.UUID) (*models.ActionItem, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + actionItemColumns + `
		FROM rcfa_action_items
		WHERE selected_from_candidate_id = $1`

	item, err := scanActionItem(scope.Conn.QueryRow(ctx, query, candidateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get action item by candidate: %w", err)
	}

	return item, nil
}

func (r *actionItemRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + actionItemColumns + `
		FROM rcfa_action_items
		WHERE investigation_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, investigationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list action items: %w", err)
	}
	defer rows.Close()

	var items []*models.ActionItem
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action items: %w", err)
	}

	return items, nil
}

func (r *actionItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActionItemStatus) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE rcfa_action_items
		SET status = $2
		WHERE id = $1`

	tag, err := scope.Conn.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update action item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("action item %s not found for status update", id)
	}

	return nil
}

func scanActionItem(row pgx.Row) (*models.ActionItem, error) {
	var item models.ActionItem
	err := row.Scan(
		&item.ID,
		&item.InvestigationID,
		&item.ActionText,
		&item.Description,
		&item.Priority,
		&item.DueDate,
		&item.Status,
		&item.SelectedFromCandidateID,
		&item.CreatedByUserID,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan action item: %w", err)
	}
	return &item, nil
}

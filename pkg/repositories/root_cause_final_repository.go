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

// RootCauseFinalRepository provides data access for confirmed root-cause
// findings.
type RootCauseFinalRepository interface {
	// Create inserts a confirmed root-cause finding. Unique-constraint
	// violations on selected_from_candidate_id are returned in the chain
	// so callers can detect a concurrent duplicate promotion.
	Create(ctx context.Context, final *models.RootCauseFinal) error

	// GetBySelectedCandidate returns the finding promoted from the given
	// candidate, or nil if the candidate has not been promoted.
	GetBySelectedCandidate(ctx context.Context, candidateID uuid.UUID) (*models.RootCauseFinal, error)

	// ListByInvestigation returns all findings for an investigation,
	// oldest first.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error)
}

type rootCauseFinalRepository struct{}

// NewRootCauseFinalRepository creates a new RootCauseFinalRepository.
func NewRootCauseFinalRepository() RootCauseFinalRepository {
	return &rootCauseFinalRepository{}
}

var _ RootCauseFinalRepository = (*rootCauseFinalRepository)(nil)

const rootCauseFinalColumns = "id, investigation_id, statement, detail, selected_from_candidate_id, created_by_user_id, created_at"

func (r *rootCauseFinalRepository) Create(ctx context.Context, final *models.RootCauseFinal) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if final.ID == uuid.Nil {
		final.ID = uuid.New()
	}
	final.CreatedAt = time.Now()

	query := `
		INSERT INTO rcfa_root_cause_finals (id, investigation_id, statement, detail, selected_from_candidate_id, created_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := scope.Conn.Exec(ctx, query,
		final.ID,
		final.InvestigationID,
		final.Statement,
		final.Detail,
		final.SelectedFromCandidateID,
		final.CreatedByUserID,
		final.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create root-cause finding: %w", err)
	}

	return nil
}

func (r *rootCauseFinalRepository) GetBySelectedCandidate(ctx context.Context, candidateID uuid.UUID) (*models.RootCauseFinal, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + rootCauseFinalColumns + `
		FROM rcfa_root_cause_finals
		WHERE selected_from_candidate_id = $1`

	var f models.RootCauseFinal
	err := scope.Conn.QueryRow(ctx, query, candidateID).Scan(
		&f.ID,
		&f.InvestigationID,
		&f.Statement,
		&f.Detail,
		&f.SelectedFromCandidateID,
		&f.CreatedByUserID,
		&f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get root-cause finding by candidate: %w", err)
	}

	return &f, nil
}

func (r *rootCauseFinalRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + rootCauseFinalColumns + `
		FROM rcfa_root_cause_finals
		WHERE investigation_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, investigationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root-cause findings: %w", err)
	}
	defer rows.Close()

	var finals []*models.RootCauseFinal
	for rows.Next() {
		var f models.RootCauseFinal
		if err := rows.Scan(&f.ID, &f.InvestigationID, &f.Statement, &f.Detail, &f.SelectedFromCandidateID, &f.CreatedByUserID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan root-cause finding: %w", err)
		}
		finals = append(finals, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating root-cause findings: %w", err)
	}

	return finals, nil
}

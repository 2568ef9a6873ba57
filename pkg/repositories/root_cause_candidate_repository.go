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

// RootCauseCandidateRepository provides data access for generated root-cause
// hypotheses. Rows are immutable after creation and never deleted.
type RootCauseCandidateRepository interface {
	// CreateBatch inserts producer-generated candidates efficiently.
	CreateBatch(ctx context.Context, candidates []*models.RootCauseCandidate) error

	// GetByID returns a candidate by id, or nil if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.RootCauseCandidate, error)

	// ListByInvestigation returns all candidates for an investigation,
	// oldest first.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseCandidate, error)
}

type rootCauseCandidateRepository struct{}

// NewRootCauseCandidateRepository creates a new RootCauseCandidateRepository.
func NewRootCauseCandidateRepository() RootCauseCandidateRepository {
	return &rootCauseCandidateRepository{}
}

var _ RootCauseCandidateRepository = (*rootCauseCandidateRepository)(nil)

func (r *rootCauseCandidateRepository) CreateBatch(ctx context.Context, candidates []*models.RootCauseCandidate) error {
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
		INSERT INTO rcfa_root_cause_candidates (id, investigation_id, text, rationale, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, c := range candidates {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.CreatedAt = now
		batch.Queue(query, c.ID, c.InvestigationID, c.Text, c.Rationale, c.Confidence, c.CreatedAt)
	}

	results := scope.Conn.SendBatch(ctx, batch)
	defer results.Close()

	for range candidates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create root-cause candidates: %w", err)
		}
	}

	return nil
}

func (r *rootCauseCandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RootCauseCandidate, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, investigation_id, text, rationale, confidence, created_at
		FROM rcfa_root_cause_candidates
		WHERE id = $1`

	var c models.RootCauseCandidate
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.InvestigationID,
		&c.Text,
		&c.Rationale,
		&c.Confidence,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get root-cause candidate: %w", err)
	}

	return &c, nil
}

func (r *rootCauseCandidateRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseCandidate, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, investigation_id, text, rationale, confidence, created_at
		FROM rcfa_root_cause_candidates
		WHERE investigation_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, investigationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root-cause candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.RootCauseCandidate
	for rows.Next() {
		var c models.RootCauseCandidate
		if err := rows.Scan(&c.ID, &c.InvestigationID, &c.Text, &c.Rationale, &c.Confidence, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan root-cause candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating root-cause candidates: %w", err)
	}

	return candidates, nil
}

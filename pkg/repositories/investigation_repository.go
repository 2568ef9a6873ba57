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

// InvestigationRepository provides data access for RCFA investigations.
// Tombstoned rows (deleted_at set) are invisible to every method here;
// administrative recovery goes through a separate path that is out of scope.
type InvestigationRepository interface {
	// Create inserts a new investigation.
	Create(ctx context.Context, inv *models.Investigation) error

	// GetByID returns an investigation by id, or nil if absent or tombstoned.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Investigation, error)

	// GetByIDForUpdate returns an investigation by id with a row lock
	// (SELECT ... FOR UPDATE). Must be called inside a transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Investigation, error)

	// List returns investigations ordered by creation time (newest first).
	List(ctx context.Context, limit int) ([]*models.Investigation, error)

	// UpdateStatus sets the status; closedAt is set when transitioning to closed.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvestigationStatus, closedAt *time.Time) error

	// SoftDelete sets the tombstone marker. The row is never physically removed.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type investigationRepository struct{}

// NewInvestigationRepository creates a new InvestigationRepository.
func NewInvestigationRepository() InvestigationRepository {
	return &investigationRepository{}
}

var _ InvestigationRepository = (*investigationRepository)(nil)

const investigationColumns = "id, title, owner_user_id, status, created_at, closed_at, deleted_at"

func (r *investigationRepository) Create(ctx context.Context, inv *models.Investigation) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()

	query := `
		INSERT INTO rcfa_investigations (id, title, owner_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := scope.Conn.Exec(ctx, query,
		inv.ID,
		inv.Title,
		inv.OwnerUserID,
		inv.Status,
		inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create investigation: %w", err)
	}

	return nil
}

func (r *investigationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	return r.get(ctx, id, false)
}

func (r *investigationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	return r.get(ctx, id, true)
}

func (r *investigationRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Investigation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + investigationColumns + `
		FROM rcfa_investigations
		WHERE id = $1 AND deleted_at IS NULL`
	if forUpdate {
		query += " FOR UPDATE"
	}

	inv, err := scanInvestigation(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get investigation: %w", err)
	}

	return inv, nil
}

func (r *investigationRepository) List(ctx context.Context, limit int) ([]*models.Investigation, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT ` + investigationColumns + `
		FROM rcfa_investigations
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := scope.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list investigations: %w", err)
	}
	defer rows.Close()

	var investigations []*models.Investigation
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		investigations = append(investigations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investigations: %w", err)
	}

	return investigations, nil
}

func (r *investigationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvestigationStatus, closedAt *time.Time) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE rcfa_investigations
		SET status = $2, closed_at = $3
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := scope.Conn.Exec(ctx, query, id, status, closedAt)
	if err != nil {
		return fmt.Errorf("failed to update investigation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("investigation %s not found for status update", id)
	}

	return nil
}

func (r *investigationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	query := `
		UPDATE rcfa_investigations
		SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := scope.Conn.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to soft-delete investigation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("investigation %s not found for soft delete", id)
	}

	return nil
}

func scanInvestigation(row pgx.Row) (*models.Investigation, error) {
	var inv models.Investigation
	err := row.Scan(
		&inv.ID,
		&inv.Title,
		&inv.OwnerUserID,
		&inv.Status,
		&inv.CreatedAt,
		&inv.ClosedAt,
		&inv.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan investigation: %w", err)
	}
	return &inv, nil
}

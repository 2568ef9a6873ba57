package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
)

// AuditRepository provides append-only access to the investigation audit
// trail. There is no update or delete; history is immutable once written,
// and events survive the tombstoning of their investigation.
type AuditRepository interface {
	// Append records a new audit event. The seq column is assigned by the
	// database and backfilled onto the event.
	Append(ctx context.Context, event *models.AuditEvent) error

	// ListByInvestigation returns all events for an investigation in
	// occurrence order. Events written in the same millisecond are broken
	// by insertion sequence.
	ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.AuditEvent, error)
}

type auditRepository struct{}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()

	query := `
		INSERT INTO rcfa_audit_events (id, investigation_id, actor_user_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq`

	err := scope.Conn.QueryRow(ctx, query,
		event.ID,
		event.InvestigationID,
		event.ActorUserID,
		event.EventType,
		event.Payload,
		event.CreatedAt,
	).Scan(&event.Seq)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	return nil
}

func (r *auditRepository) ListByInvestigation(ctx context.Context, investigationID uuid.UUID) ([]*models.AuditEvent, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT seq, id, investigation_id, actor_user_id, event_type, payload, created_at
		FROM rcfa_audit_events
		WHERE investigation_id = $1
		ORDER BY created_at ASC, seq ASC`

	rows, err := scope.Conn.Query(ctx, query, investigationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.Seq, &e.ID, &e.InvestigationID, &e.ActorUserID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}

package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/auth"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/services"
)

// AuditEventResponse for audit trail endpoints.
type AuditEventResponse struct {
	Seq             int64          `json:"seq"`
	ID              string         `json:"id"`
	InvestigationID string         `json:"investigation_id"`
	ActorUserID     string         `json:"actor_user_id"`
	EventType       string         `json:"event_type"`
	Payload         map[string]any `json:"payload,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// ListAuditEventsResponse for GET /api/investigations/{iid}/audit
type ListAuditEventsResponse struct {
	Events []AuditEventResponse `json:"events"`
	Total  int                  `json:"total"`
}

// AuditHandler serves the per-investigation audit trail.
type AuditHandler struct {
	auditService services.AuditService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditService services.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// RegisterRoutes registers the audit handler's routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/investigations/{iid}/audit",
		authMiddleware.RequireAuth(scope(h.List)))
}

// List handles GET /api/investigations/{iid}/audit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	events, err := h.auditService.ListByInvestigation(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := ListAuditEventsResponse{
		Events: make([]AuditEventResponse, len(events)),
		Total:  len(events),
	}
	for i, e := range events {
		data.Events[i] = auditEventToResponse(e)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func auditEventToResponse(e *models.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		Seq:             e.Seq,
		ID:              e.ID.String(),
		InvestigationID: e.InvestigationID.String(),
		ActorUserID:     e.ActorUserID.String(),
		EventType:       e.EventType,
		Payload:         e.Payload,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/auth"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/services"
)

// ActionItemResponse for action-item endpoints.
type ActionItemResponse struct {
	ID                      string  `json:"id"`
	InvestigationID         string  `json:"investigation_id"`
	ActionText              string  `json:"action_text"`
	Description             string  `json:"description,omitempty"`
	Priority                string  `json:"priority"`
	DueDate                 *string `json:"due_date,omitempty"`
	Status                  string  `json:"status"`
	SelectedFromCandidateID *string `json:"selected_from_candidate_id,omitempty"`
	CreatedByUserID         string  `json:"created_by_user_id"`
	CreatedAt               string  `json:"created_at"`
}

// RootCauseFinalResponse for root-cause finding endpoints.
type RootCauseFinalResponse struct {
	ID                      string  `json:"id"`
	InvestigationID         string  `json:"investigation_id"`
	Statement               string  `json:"statement"`
	Detail                  string  `json:"detail,omitempty"`
	SelectedFromCandidateID *string `json:"selected_from_candidate_id,omitempty"`
	CreatedByUserID         string  `json:"created_by_user_id"`
	CreatedAt               string  `json:"created_at"`
}

// PromotionsHandler handles candidate promotion HTTP requests.
type PromotionsHandler struct {
	promotionService services.PromotionService
	logger           *zap.Logger
}

// NewPromotionsHandler creates a new promotions handler.
func NewPromotionsHandler(promotionService services.PromotionService, logger *zap.Logger) *PromotionsHandler {
	return &PromotionsHandler{
		promotionService: promotionService,
		logger:           logger,
	}
}

// RegisterRoutes registers the promotions handler's routes on the given mux.
func (h *PromotionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/investigations/{iid}"

	mux.HandleFunc("POST "+base+"/action-item-candidates/{cid}/promote",
		authMiddleware.RequireAuth(scope(h.PromoteActionItem)))
	mux.HandleFunc("POST "+base+"/root-cause-candidates/{cid}/promote",
		authMiddleware.RequireAuth(scope(h.PromoteRootCause)))
	mux.HandleFunc("GET "+base+"/action-items",
		authMiddleware.RequireAuth(scope(h.ListActionItems)))
	mux.HandleFunc("GET "+base+"/root-causes",
		authMiddleware.RequireAuth(scope(h.ListRootCauseFinals)))
}

// PromoteActionItem handles POST /api/investigations/{iid}/action-item-candidates/{cid}/promote
func (h *PromotionsHandler) PromoteActionItem(w http.ResponseWriter, r *http.Request) {
	principal, investigationID, candidateID, ok := h.promoteParams(w, r)
	if !ok {
		return
	}

	item, err := h.promotionService.PromoteActionItem(r.Context(), investigationID, candidateID, principal)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, actionItemToResponse(item))
}

// PromoteRootCause handles POST /api/investigations/{iid}/root-cause-candidates/{cid}/promote
func (h *PromotionsHandler) PromoteRootCause(w http.ResponseWriter, r *http.Request) {
	principal, investigationID, candidateID, ok := h.promoteParams(w, r)
	if !ok {
		return
	}

	final, err := h.promotionService.PromoteRootCause(r.Context(), investigationID, candidateID, principal)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, rootCauseFinalToResponse(final))
}

// ListActionItems handles GET /api/investigations/{iid}/action-items
func (h *PromotionsHandler) ListActionItems(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	items, err := h.promotionService.ListActionItems(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := make([]ActionItemResponse, len(items))
	for i, item := range items {
		data[i] = actionItemToResponse(item)
	}
	h.write(w, http.StatusOK, data)
}

// ListRootCauseFinals handles GET /api/investigations/{iid}/root-causes
func (h *PromotionsHandler) ListRootCauseFinals(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	finals, err := h.promotionService.ListRootCauseFinals(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := make([]RootCauseFinalResponse, len(finals))
	for i, final := range finals {
		data[i] = rootCauseFinalToResponse(final)
	}
	h.write(w, http.StatusOK, data)
}

func (h *PromotionsHandler) promoteParams(w http.ResponseWriter, r *http.Request) (models.Principal, uuid.UUID, uuid.UUID, bool) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return models.Principal{}, uuid.Nil, uuid.Nil, false
	}

	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return models.Principal{}, uuid.Nil, uuid.Nil, false
	}
	candidateID, ok := ParseCandidateID(w, r, h.logger)
	if !ok {
		return models.Principal{}, uuid.Nil, uuid.Nil, false
	}

	return principal, investigationID, candidateID, true
}

func (h *PromotionsHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func actionItemToResponse(item *models.ActionItem) ActionItemResponse {
	resp := ActionItemResponse{
		ID:              item.ID.String(),
		InvestigationID: item.InvestigationID.String(),
		ActionText:      item.ActionText,
		Description:     item.Description,
		Priority:        item.Priority,
		Status:          string(item.Status),
		CreatedByUserID: item.CreatedByUserID.String(),
		CreatedAt:       item.CreatedAt.Format(time.RFC3339),
	}
	if item.DueDate != nil {
		dueDate := item.DueDate.Format(time.RFC3339)
		resp.DueDate = &dueDate
	}
	if item.SelectedFromCandidateID != nil {
		candidateID := item.SelectedFromCandidateID.String()
		resp.SelectedFromCandidateID = &candidateID
	}
	return resp
}

func rootCauseFinalToResponse(final *models.RootCauseFinal) RootCauseFinalResponse {
	resp := RootCauseFinalResponse{
		ID:              final.ID.String(),
		InvestigationID: final.InvestigationID.String(),
		Statement:       final.Statement,
		Detail:          final.Detail,
		CreatedByUserID: final.CreatedByUserID.String(),
		CreatedAt:       final.CreatedAt.Format(time.RFC3339),
	}
	if final.SelectedFromCandidateID != nil {
		candidateID := final.SelectedFromCandidateID.String()
		resp.SelectedFromCandidateID = &candidateID
	}
	return resp
}

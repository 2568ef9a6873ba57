package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/auth"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/services"
)

// InvestigationResponse for investigation endpoints.
type InvestigationResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	OwnerUserID string  `json:"owner_user_id"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	ClosedAt    *string `json:"closed_at,omitempty"`
}

// CreateInvestigationRequest for POST /api/investigations
type CreateInvestigationRequest struct {
	Title string `json:"title"`
}

// AdvanceStatusRequest for POST /api/investigations/{iid}/status
type AdvanceStatusRequest struct {
	Status string `json:"status"`
}

// ListInvestigationsResponse for GET /api/investigations
type ListInvestigationsResponse struct {
	Investigations []InvestigationResponse `json:"investigations"`
	Total          int                     `json:"total"`
}

// InvestigationsHandler handles investigation lifecycle HTTP requests.
type InvestigationsHandler struct {
	invService services.InvestigationService
	logger     *zap.Logger
}

// NewInvestigationsHandler creates a new investigations handler.
func NewInvestigationsHandler(invService services.InvestigationService, logger *zap.Logger) *InvestigationsHandler {
	return &InvestigationsHandler{
		invService: invService,
		logger:     logger,
	}
}

// RegisterRoutes registers the investigations handler's routes on the given mux.
func (h *InvestigationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/investigations"

	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("GET "+base+"/{iid}", authMiddleware.RequireAuth(scope(h.Get)))
	mux.HandleFunc("POST "+base+"/{iid}/status", authMiddleware.RequireAuth(scope(h.AdvanceStatus)))
	mux.HandleFunc("DELETE "+base+"/{iid}", authMiddleware.RequireAuth(scope(h.Delete)))
}

// Create handles POST /api/investigations
func (h *InvestigationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req CreateInvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid request body")
		return
	}

	inv, err := h.invService.Create(r.Context(), req.Title, principal)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, investigationToResponse(inv))
}

// List handles GET /api/investigations
func (h *InvestigationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.badRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	investigations, err := h.invService.List(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := ListInvestigationsResponse{
		Investigations: make([]InvestigationResponse, len(investigations)),
		Total:          len(investigations),
	}
	for i, inv := range investigations {
		data.Investigations[i] = investigationToResponse(inv)
	}

	h.write(w, http.StatusOK, data)
}

// Get handles GET /api/investigations/{iid}
func (h *InvestigationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	inv, err := h.invService.Get(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, investigationToResponse(inv))
}

// AdvanceStatus handles POST /api/investigations/{iid}/status
func (h *InvestigationsHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	var req AdvanceStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid request body")
		return
	}

	inv, err := h.invService.AdvanceStatus(r.Context(), investigationID, models.InvestigationStatus(req.Status), principal)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, investigationToResponse(inv))
}

// Delete handles DELETE /api/investigations/{iid}
func (h *InvestigationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.invService.SoftDelete(r.Context(), investigationID, principal); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *InvestigationsHandler) principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return models.Principal{}, false
	}
	return principal, true
}

func (h *InvestigationsHandler) badRequest(w http.ResponseWriter, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_input", message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *InvestigationsHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func investigationToResponse(inv *models.Investigation) InvestigationResponse {
	resp := InvestigationResponse{
		ID:          inv.ID.String(),
		Title:       inv.Title,
		OwnerUserID: inv.OwnerUserID.String(),
		Status:      string(inv.Status),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.ClosedAt != nil {
		closedAt := inv.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closedAt
	}
	return resp
}

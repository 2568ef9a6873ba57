package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/auth"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/services"
)

// RootCauseCandidateResponse for candidate list endpoints.
type RootCauseCandidateResponse struct {
	ID              string  `json:"id"`
	InvestigationID string  `json:"investigation_id"`
	Text            string  `json:"text"`
	Rationale       string  `json:"rationale,omitempty"`
	Confidence      float64 `json:"confidence"`
	CreatedAt       string  `json:"created_at"`
}

// ActionItemCandidateResponse for candidate list endpoints.
type ActionItemCandidateResponse struct {
	ID                string  `json:"id"`
	InvestigationID   string  `json:"investigation_id"`
	ActionText        string  `json:"action_text"`
	Rationale         string  `json:"rationale,omitempty"`
	SuggestedPriority string  `json:"suggested_priority"`
	SuggestedDueDate  *string `json:"suggested_due_date,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// IngestCandidateItem is one suggested item in an ingest request.
type IngestCandidateItem struct {
	Text       string  `json:"text"`
	Rationale  string  `json:"rationale,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// IngestActionItem is one suggested action in an ingest request.
type IngestActionItem struct {
	ActionText        string     `json:"action_text"`
	Rationale         string     `json:"rationale,omitempty"`
	SuggestedPriority string     `json:"suggested_priority"`
	SuggestedDueDate  *time.Time `json:"suggested_due_date,omitempty"`
}

// IngestFollowup is one generated question in an ingest request.
type IngestFollowup struct {
	QuestionText string `json:"question_text"`
	Rationale    string `json:"rationale,omitempty"`
}

// IngestCandidatesRequest for POST /api/investigations/{iid}/candidates
type IngestCandidatesRequest struct {
	RootCauses  []IngestCandidateItem `json:"root_causes,omitempty"`
	Followups   []IngestFollowup      `json:"followups,omitempty"`
	ActionItems []IngestActionItem    `json:"action_items,omitempty"`
}

// CandidatesHandler handles candidate ingestion and listing HTTP requests.
type CandidatesHandler struct {
	candidateService services.CandidateService
	logger           *zap.Logger
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(candidateService services.CandidateService, logger *zap.Logger) *CandidatesHandler {
	return &CandidatesHandler{
		candidateService: candidateService,
		logger:           logger,
	}
}

// RegisterRoutes registers the candidates handler's routes on the given mux.
func (h *CandidatesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/investigations/{iid}"

	mux.HandleFunc("POST "+base+"/candidates",
		authMiddleware.RequireAuth(scope(h.Ingest)))
	mux.HandleFunc("GET "+base+"/root-cause-candidates",
		authMiddleware.RequireAuth(scope(h.ListRootCauses)))
	mux.HandleFunc("GET "+base+"/action-item-candidates",
		authMiddleware.RequireAuth(scope(h.ListActionItems)))
}

// Ingest handles POST /api/investigations/{iid}/candidates
func (h *CandidatesHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	var req IngestCandidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	batch := services.CandidateBatch{}
	for _, c := range req.RootCauses {
		batch.RootCauses = append(batch.RootCauses, &models.RootCauseCandidate{
			Text:       c.Text,
			Rationale:  c.Rationale,
			Confidence: c.Confidence,
		})
	}
	for _, q := range req.Followups {
		batch.Followups = append(batch.Followups, &models.FollowupQuestion{
			QuestionText: q.QuestionText,
			Rationale:    q.Rationale,
		})
	}
	for _, a := range req.ActionItems {
		batch.ActionItems = append(batch.ActionItems, &models.ActionItemCandidate{
			ActionText:        a.ActionText,
			Rationale:         a.Rationale,
			SuggestedPriority: a.SuggestedPriority,
			SuggestedDueDate:  a.SuggestedDueDate,
		})
	}

	if err := h.candidateService.IngestCandidates(r.Context(), investigationID, principal, batch); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusCreated, map[string]int{
		"root_causes":  len(batch.RootCauses),
		"followups":    len(batch.Followups),
		"action_items": len(batch.ActionItems),
	})
}

// ListRootCauses handles GET /api/investigations/{iid}/root-cause-candidates
func (h *CandidatesHandler) ListRootCauses(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	candidates, err := h.candidateService.ListRootCauseCandidates(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := make([]RootCauseCandidateResponse, len(candidates))
	for i, c := range candidates {
		data[i] = RootCauseCandidateResponse{
			ID:              c.ID.String(),
			InvestigationID: c.InvestigationID.String(),
			Text:            c.Text,
			Rationale:       c.Rationale,
			Confidence:      c.Confidence,
			CreatedAt:       c.CreatedAt.Format(time.RFC3339),
		}
	}
	h.write(w, http.StatusOK, data)
}

// ListActionItems handles GET /api/investigations/{iid}/action-item-candidates
func (h *CandidatesHandler) ListActionItems(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	candidates, err := h.candidateService.ListActionItemCandidates(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := make([]ActionItemCandidateResponse, len(candidates))
	for i, c := range candidates {
		resp := ActionItemCandidateResponse{
			ID:                c.ID.String(),
			InvestigationID:   c.InvestigationID.String(),
			ActionText:        c.ActionText,
			Rationale:         c.Rationale,
			SuggestedPriority: c.SuggestedPriority,
			CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		}
		if c.SuggestedDueDate != nil {
			dueDate := c.SuggestedDueDate.Format(time.RFC3339)
			resp.SuggestedDueDate = &dueDate
		}
		data[i] = resp
	}
	h.write(w, http.StatusOK, data)
}

func (h *CandidatesHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

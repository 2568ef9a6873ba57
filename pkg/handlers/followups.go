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

// FollowupQuestionResponse for follow-up question endpoints.
type FollowupQuestionResponse struct {
	ID               string  `json:"id"`
	InvestigationID  string  `json:"investigation_id"`
	QuestionText     string  `json:"question_text"`
	Rationale        string  `json:"rationale,omitempty"`
	AnswerText       *string `json:"answer_text,omitempty"`
	AnsweredByUserID *string `json:"answered_by_user_id,omitempty"`
	AnsweredAt       *string `json:"answered_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// AnswerFollowupRequest for POST /api/investigations/{iid}/followups/{qid}/answer
type AnswerFollowupRequest struct {
	Answer string `json:"answer"`
}

// ListFollowupsResponse for GET /api/investigations/{iid}/followups
type ListFollowupsResponse struct {
	Questions []FollowupQuestionResponse `json:"questions"`
	Total     int                        `json:"total"`
}

// FollowupsHandler handles follow-up question HTTP requests.
type FollowupsHandler struct {
	followupService services.FollowupService
	logger          *zap.Logger
}

// NewFollowupsHandler creates a new follow-ups handler.
func NewFollowupsHandler(followupService services.FollowupService, logger *zap.Logger) *FollowupsHandler {
	return &FollowupsHandler{
		followupService: followupService,
		logger:          logger,
	}
}

// RegisterRoutes registers the follow-ups handler's routes on the given mux.
func (h *FollowupsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/investigations/{iid}/followups"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("POST "+base+"/{qid}/answer", authMiddleware.RequireAuth(scope(h.Answer)))
}

// List handles GET /api/investigations/{iid}/followups
func (h *FollowupsHandler) List(w http.ResponseWriter, r *http.Request) {
	investigationID, ok := ParseInvestigationID(w, r, h.logger)
	if !ok {
		return
	}

	questions, err := h.followupService.ListFollowupQuestions(r.Context(), investigationID)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	data := ListFollowupsResponse{
		Questions: make([]FollowupQuestionResponse, len(questions)),
		Total:     len(questions),
	}
	for i, q := range questions {
		data.Questions[i] = followupToResponse(q)
	}

	h.write(w, http.StatusOK, data)
}

// Answer handles POST /api/investigations/{iid}/followups/{qid}/answer
func (h *FollowupsHandler) Answer(w http.ResponseWriter, r *http.Request) {
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
	questionID, ok := ParseQuestionID(w, r, h.logger)
	if !ok {
		return
	}

	var req AnswerFollowupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question, err := h.followupService.AnswerFollowup(r.Context(), investigationID, questionID, principal, req.Answer)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	h.write(w, http.StatusOK, followupToResponse(question))
}

func (h *FollowupsHandler) write(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func followupToResponse(q *models.FollowupQuestion) FollowupQuestionResponse {
	resp := FollowupQuestionResponse{
		ID:              q.ID.String(),
		InvestigationID: q.InvestigationID.String(),
		QuestionText:    q.QuestionText,
		Rationale:       q.Rationale,
		AnswerText:      q.AnswerText,
		CreatedAt:       q.CreatedAt.Format(time.RFC3339),
	}
	if q.AnsweredByUserID != nil {
		answeredBy := q.AnsweredByUserID.String()
		resp.AnsweredByUserID = &answeredBy
	}
	if q.AnsweredAt != nil {
		answeredAt := q.AnsweredAt.Format(time.RFC3339)
		resp.AnsweredAt = &answeredAt
	}
	return resp
}

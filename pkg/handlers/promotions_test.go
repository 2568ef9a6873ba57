package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/models"
)

func newPromoteRequest(t *testing.T, investigationID, candidateID string, principal models.Principal) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost,
		"/api/investigations/"+investigationID+"/action-item-candidates/"+candidateID+"/promote", nil)
	r.SetPathValue("iid", investigationID)
	r.SetPathValue("cid", candidateID)
	return withPrincipal(r, principal)
}

func TestPromotionsHandler_PromoteActionItem_Created(t *testing.T) {
	principal := models.Principal{UserID: uuid.New(), Role: models.RoleMember}
	investigationID := uuid.New()
	candidateID := uuid.New()
	itemID := uuid.New()

	svc := &mockPromotionService{
		promoteItemFn: func(ctx context.Context, gotInv, gotCand uuid.UUID, gotPrincipal models.Principal) (*models.ActionItem, error) {
			assert.Equal(t, investigationID, gotInv)
			assert.Equal(t, candidateID, gotCand)
			assert.Equal(t, principal.UserID, gotPrincipal.UserID)
			return &models.ActionItem{
				ID:                      itemID,
				InvestigationID:         gotInv,
				ActionText:              "Replace seal",
				Priority:                models.PriorityHigh,
				Status:                  models.ActionItemOpen,
				SelectedFromCandidateID: &gotCand,
				CreatedByUserID:         gotPrincipal.UserID,
				CreatedAt:               time.Now(),
			}, nil
		},
	}
	h := NewPromotionsHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.PromoteActionItem(w, newPromoteRequest(t, investigationID.String(), candidateID.String(), principal))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, itemID.String(), data["id"])
	assert.Equal(t, "open", data["status"])
	assert.Equal(t, candidateID.String(), data["selected_from_candidate_id"])
}

func TestPromotionsHandler_PromoteActionItem_ErrorMapping(t *testing.T) {
	principal := models.Principal{UserID: uuid.New(), Role: models.RoleMember}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"already promoted", apperrors.NewConflict(apperrors.CodeAlreadyPromoted, "dup"), http.StatusConflict, apperrors.CodeAlreadyPromoted},
		{"wrong status", apperrors.NewConflict(apperrors.CodeNotInInvestigation, "closed"), http.StatusConflict, apperrors.CodeNotInInvestigation},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPromotionService{
				promoteItemFn: func(ctx context.Context, _, _ uuid.UUID, _ models.Principal) (*models.ActionItem, error) {
					return nil, tt.err
				},
			}
			h := NewPromotionsHandler(svc, zap.NewNop())

			w := httptest.NewRecorder()
			h.PromoteActionItem(w, newPromoteRequest(t, uuid.NewString(), uuid.NewString(), principal))

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestPromotionsHandler_PromoteActionItem_InvalidIDs(t *testing.T) {
	principal := models.Principal{UserID: uuid.New(), Role: models.RoleMember}
	h := NewPromotionsHandler(&mockPromotionService{}, zap.NewNop())

	// Malformed IDs are rejected before the service is touched.
	w := httptest.NewRecorder()
	h.PromoteActionItem(w, newPromoteRequest(t, "not-a-uuid", uuid.NewString(), principal))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.PromoteActionItem(w, newPromoteRequest(t, uuid.NewString(), "not-a-uuid", principal))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromotionsHandler_PromoteActionItem_Unauthenticated(t *testing.T) {
	h := NewPromotionsHandler(&mockPromotionService{}, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/investigations/x/action-item-candidates/y/promote", nil)
	r.SetPathValue("iid", uuid.NewString())
	r.SetPathValue("cid", uuid.NewString())

	w := httptest.NewRecorder()
	h.PromoteActionItem(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPromotionsHandler_PromoteRootCause_Created(t *testing.T) {
	principal := models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	investigationID := uuid.New()
	candidateID := uuid.New()

	svc := &mockPromotionService{
		promoteCauseFn: func(ctx context.Context, gotInv, gotCand uuid.UUID, gotPrincipal models.Principal) (*models.RootCauseFinal, error) {
			return &models.RootCauseFinal{
				ID:                      uuid.New(),
				InvestigationID:         gotInv,
				Statement:               "Elastomer degradation",
				SelectedFromCandidateID: &gotCand,
				CreatedByUserID:         gotPrincipal.UserID,
				CreatedAt:               time.Now(),
			}, nil
		},
	}
	h := NewPromotionsHandler(svc, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost,
		"/api/investigations/"+investigationID.String()+"/root-cause-candidates/"+candidateID.String()+"/promote", nil)
	r.SetPathValue("iid", investigationID.String())
	r.SetPathValue("cid", candidateID.String())

	w := httptest.NewRecorder()
	h.PromoteRootCause(w, withPrincipal(r, principal))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Elastomer degradation", data["statement"])
}

func TestPromotionsHandler_ListActionItems(t *testing.T) {
	investigationID := uuid.New()
	svc := &mockPromotionService{
		listItemsFn: func(ctx context.Context, gotInv uuid.UUID) ([]*models.ActionItem, error) {
			return []*models.ActionItem{
				{ID: uuid.New(), InvestigationID: gotInv, ActionText: "A", Priority: models.PriorityLow, Status: models.ActionItemOpen, CreatedByUserID: uuid.New(), CreatedAt: time.Now()},
				{ID: uuid.New(), InvestigationID: gotInv, ActionText: "B", Priority: models.PriorityHigh, Status: models.ActionItemOpen, CreatedByUserID: uuid.New(), CreatedAt: time.Now()},
			}, nil
		},
	}
	h := NewPromotionsHandler(svc, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/api/investigations/"+investigationID.String()+"/action-items", nil)
	r.SetPathValue("iid", investigationID.String())

	w := httptest.NewRecorder()
	h.ListActionItems(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 2)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/causetrace/rcfa-engine/pkg/auth"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/services"
)

// Handler tests exercise the HTTP layer directly with canned service mocks;
// service behavior itself is covered in pkg/services.

// withPrincipal attaches verified claims for the given principal to the
// request, the way the auth middleware would.
func withPrincipal(r *http.Request, principal models.Principal) *http.Request {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: principal.UserID.String()},
		Role:             principal.Role,
	}
	ctx := context.WithValue(r.Context(), auth.ClaimsKey, claims)
	return r.WithContext(ctx)
}

type mockPromotionService struct {
	promoteItemFn  func(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.ActionItem, error)
	promoteCauseFn func(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.RootCauseFinal, error)
	listItemsFn    func(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error)
	listFinalsFn   func(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error)
}

func (m *mockPromotionService) PromoteActionItem(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.ActionItem, error) {
	return m.promoteItemFn(ctx, investigationID, candidateID, principal)
}

func (m *mockPromotionService) PromoteRootCause(ctx context.Context, investigationID, candidateID uuid.UUID, principal models.Principal) (*models.RootCauseFinal, error) {
	return m.promoteCauseFn(ctx, investigationID, candidateID, principal)
}

func (m *mockPromotionService) ListActionItems(ctx context.Context, investigationID uuid.UUID) ([]*models.ActionItem, error) {
	return m.listItemsFn(ctx, investigationID)
}

func (m *mockPromotionService) ListRootCauseFinals(ctx context.Context, investigationID uuid.UUID) ([]*models.RootCauseFinal, error) {
	return m.listFinalsFn(ctx, investigationID)
}

var _ services.PromotionService = (*mockPromotionService)(nil)

type mockFollowupService struct {
	answerFn func(ctx context.Context, investigationID, questionID uuid.UUID, principal models.Principal, answerText string) (*models.FollowupQuestion, error)
	listFn   func(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error)
}

func (m *mockFollowupService) AnswerFollowup(ctx context.Context, investigationID, questionID uuid.UUID, principal models.Principal, answerText string) (*models.FollowupQuestion, error) {
	return m.answerFn(ctx, investigationID, questionID, principal, answerText)
}

func (m *mockFollowupService) ListFollowupQuestions(ctx context.Context, investigationID uuid.UUID) ([]*models.FollowupQuestion, error) {
	return m.listFn(ctx, investigationID)
}

var _ services.FollowupService = (*mockFollowupService)(nil)

type mockInvestigationService struct {
	createFn  func(ctx context.Context, title string, principal models.Principal) (*models.Investigation, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*models.Investigation, error)
	listFn    func(ctx context.Context, limit int) ([]*models.Investigation, error)
	advanceFn func(ctx context.Context, id uuid.UUID, next models.InvestigationStatus, principal models.Principal) (*models.Investigation, error)
	deleteFn  func(ctx context.Context, id uuid.UUID, principal models.Principal) error
}

func (m *mockInvestigationService) Create(ctx context.Context, title string, principal models.Principal) (*models.Investigation, error) {
	return m.createFn(ctx, title, principal)
}

func (m *mockInvestigationService) Get(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	return m.getFn(ctx, id)
}

func (m *mockInvestigationService) List(ctx context.Context, limit int) ([]*models.Investigation, error) {
	return m.listFn(ctx, limit)
}

func (m *mockInvestigationService) AdvanceStatus(ctx context.Context, id uuid.UUID, next models.InvestigationStatus, principal models.Principal) (*models.Investigation, error) {
	return m.advanceFn(ctx, id, next, principal)
}

func (m *mockInvestigationService) SoftDelete(ctx context.Context, id uuid.UUID, principal models.Principal) error {
	return m.deleteFn(ctx, id, principal)
}

var _ services.InvestigationService = (*mockInvestigationService)(nil)

package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/causetrace/rcfa-engine/pkg/apperrors"
	"github.com/causetrace/rcfa-engine/pkg/models"
)

type investigationFixture struct {
	invRepo   *mockInvestigationRepository
	auditRepo *mockAuditRepository
	svc       InvestigationService

	owner models.Principal
	admin models.Principal
	other models.Principal
}

func newInvestigationFixture(t *testing.T) *investigationFixture {
	t.Helper()

	f := &investigationFixture{
		invRepo:   &mockInvestigationRepository{},
		auditRepo: &mockAuditRepository{},
		owner:     models.Principal{UserID: uuid.New(), Role: models.RoleMember},
		admin:     models.Principal{UserID: uuid.New(), Role: models.RoleAdmin},
		other:     models.Principal{UserID: uuid.New(), Role: models.RoleMember},
	}

	audit := NewAuditService(f.auditRepo, f.invRepo, zap.NewNop())
	f.svc = NewInvestigationService(&fakeTxRunner{}, f.invRepo, audit, zap.NewNop())
	return f
}

func TestInvestigationCreate(t *testing.T) {
	f := newInvestigationFixture(t)

	inv, err := f.svc.Create(context.Background(), "  Boiler feedwater pump cavitation  ", f.owner)
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "Boiler feedwater pump cavitation", inv.Title)
	assert.Equal(t, models.StatusIntake, inv.Status)
	assert.Equal(t, f.owner.UserID, inv.OwnerUserID)
	assert.Nil(t, inv.ClosedAt)

	events := f.auditRepo.eventsOfType(models.EventInvestigationCreated)
	require.Len(t, events, 1)
	assert.Equal(t, inv.ID, events[0].InvestigationID)
	assert.Equal(t, inv.Title, events[0].Payload["title"])
}

func TestInvestigationCreate_EmptyTitle(t *testing.T) {
	f := newInvestigationFixture(t)

	_, err := f.svc.Create(context.Background(), "   ", f.owner)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestInvestigationAdvanceStatus(t *testing.T) {
	f := newInvestigationFixture(t)
	inv, err := f.svc.Create(context.Background(), "Heat exchanger fouling", f.owner)
	require.NoError(t, err)

	inv, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusInvestigation, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvestigation, inv.Status)
	assert.Nil(t, inv.ClosedAt)

	inv, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusClosed, f.owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, inv.Status)
	require.NotNil(t, inv.ClosedAt)

	events := f.auditRepo.eventsOfType(models.EventStatusAdvanced)
	require.Len(t, events, 2)
	assert.Equal(t, "intake", events[0].Payload["from"])
	assert.Equal(t, "investigation", events[0].Payload["to"])
	assert.Equal(t, "investigation", events[1].Payload["from"])
	assert.Equal(t, "closed", events[1].Payload["to"])
}

func TestInvestigationAdvanceStatus_IllegalTransitions(t *testing.T) {
	f := newInvestigationFixture(t)
	inv, err := f.svc.Create(context.Background(), "Illegal transitions", f.owner)
	require.NoError(t, err)

	// intake cannot jump straight to closed.
	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusClosed, f.owner)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.ConflictCode(err))

	// No backward moves.
	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusIntake, f.owner)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// closed is terminal.
	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusInvestigation, f.owner)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusClosed, f.owner)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusInvestigation, f.owner)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestInvestigationAdvanceStatus_UnknownStatus(t *testing.T) {
	f := newInvestigationFixture(t)
	inv, err := f.svc.Create(context.Background(), "Unknown status", f.owner)
	require.NoError(t, err)

	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.InvestigationStatus("archived"), f.owner)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestInvestigationAdvanceStatus_NonOwnerForbidden(t *testing.T) {
	f := newInvestigationFixture(t)
	inv, err := f.svc.Create(context.Background(), "Ownership check", f.owner)
	require.NoError(t, err)

	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusInvestigation, f.other)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Admin may advance without owning.
	_, err = f.svc.AdvanceStatus(context.Background(), inv.ID, models.StatusInvestigation, f.admin)
	assert.NoError(t, err)
}

func TestInvestigationSoftDelete(t *testing.T) {
	f := newInvestigationFixture(t)
	inv, err := f.svc.Create(context.Background(), "To be tombstoned", f.owner)
	require.NoError(t, err)

	// Owner without admin role cannot tombstone.
	err = f.svc.SoftDelete(context.Background(), inv.ID, f.owner)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = f.svc.SoftDelete(context.Background(), inv.ID, f.admin)
	require.NoError(t, err)

	// Tombstoned investigations are invisible.
	_, err = f.svc.Get(context.Background(), inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Repeated tombstoning reports NotFound, not success.
	err = f.svc.SoftDelete(context.Background(), inv.ID, f.admin)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	events := f.auditRepo.eventsOfType(models.EventInvestigationDeleted)
	assert.Len(t, events, 1)
}

func TestInvestigationGetAndList(t *testing.T) {
	f := newInvestigationFixture(t)

	first, err := f.svc.Create(context.Background(), "First", f.owner)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := f.svc.Create(context.Background(), "Second", f.owner)
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Newest first.
	list, err := f.svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = f.svc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

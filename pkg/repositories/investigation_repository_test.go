//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causetrace/rcfa-engine/pkg/database"
	"github.com/causetrace/rcfa-engine/pkg/models"
	"github.com/causetrace/rcfa-engine/pkg/testhelpers"
)

// newScopedContext returns a context carrying a dedicated connection scope,
// the way the scope middleware does for real requests. Shared by all
// repository integration tests in this package.
func newScopedContext(t *testing.T) (context.Context, func()) {
	t.Helper()
	engineDB := testhelpers.GetEngineDB(t)

	ctx := context.Background()
	scope, err := engineDB.DB.AcquireScope(ctx)
	require.NoError(t, err)
	return database.SetScope(ctx, scope), scope.Close
}

// seedInvestigation inserts an investigation in the given status.
func seedInvestigation(t *testing.T, ctx context.Context, status models.InvestigationStatus) *models.Investigation {
	t.Helper()
	inv := &models.Investigation{
		Title:       "Compressor C-12 trip",
		OwnerUserID: uuid.New(),
		Status:      status,
	}
	require.NoError(t, NewInvestigationRepository().Create(ctx, inv))
	return inv
}

func TestInvestigationRepository_CreateAndGet(t *testing.T) {
	ctx, closeScope := newScopedContext(t)
	defer closeScope()

	repo := NewInvestigationRepository()
	inv := seedInvestigation(t, ctx, models.StatusIntake)

	assert.NotEqual(t, uuid.Nil, inv.ID)
	assert.False(t, inv.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, "Compressor C-12 trip", got.Title)
	assert.Equal(t, models.StatusIntake, got.Status)
	assert.Nil(t, got.ClosedAt)
	assert.Nil(t, got.DeletedAt)
}

func TestInvestigationRepository_GetByID_Unknown(t *testing.T) {
	ctx, closeScope := newScopedContext(t)
	defer closeScope()

	got, err := NewInvestigationRepository().GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvestigationRepository_UpdateStatus_SetsClosedAt(t *testing.T) {
	ctx, closeScope := newScopedContext(t)
	defer closeScope()

	repo := NewInvestigationRepository()
	inv := seedInvestigation(t, ctx, models.StatusInvestigation)

	closedAt := time.Now()
	require.NoError(t, repo.UpdateStatus(ctx, inv.ID, models.StatusClosed, &closedAt))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.WithinDuration(t, closedAt, *got.ClosedAt, time.Second)
}

func TestInvestigationRepository_SoftDelete_HidesRow(t *testing.T) {
	ctx, closeScope := newScopedContext(t)
	defer closeScope()

	repo := NewInvestigationRepository()
	inv := seedInvestigation(t, ctx, models.StatusIntake)

	require.NoError(t, repo.SoftDelete(ctx, inv.ID))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	list, err := repo.List(ctx, 1000)
	require.NoError(t, err)
	for _, item := range list {
		assert.NotEqual(t, inv.ID, item.ID)
	}

	// Tombstoned rows cannot be updated or deleted again.
	assert.Error(t, repo.SoftDelete(ctx, inv.ID))
	assert.Error(t, repo.UpdateStatus(ctx, inv.ID, models.StatusInvestigation, nil))
}

func TestInvestigationRepository_List_NewestFirst(t *testing.T) {
	ctx, closeScope := newScopedContext(t)
	defer closeScope()

	repo := NewInvestigationRepository()
	first := seedInvestigation(t, ctx, models.StatusIntake)
	second := seedInvestigation(t, ctx, models.StatusIntake)

	list, err := repo.List(ctx, 1000)
	require.NoError(t, err)

	posFirst, posSecond := -1, -1
	for i, inv := range list {
		if inv.ID == first.ID {
			posFirst = i
		}
		if inv.ID == second.ID {
			posSecond = i
		}
	}
	require.NotEqual(t, -1, posFirst)
	require.NotEqual(t, -1, posSecond)
	assert.Less(t, posSecond, posFirst, "newer investigation should come first")
}

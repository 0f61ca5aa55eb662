package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soporte-bpo/incident-service/internal/domain"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

func TestGlobalLedger(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ledger := NewLedgerService(&fakeHistoryRepo{store: store})
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())
	_, err := assignments.Assign(ctx, admin, summary.ID, technician.ID)
	require.NoError(t, err)

	// Admin-only.
	_, err = ledger.Global(ctx, coordinador, 50, 0)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	entries, err := ledger.Global(ctx, admin, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, domain.ActionAssigned, entries[0].Action)
	assert.Equal(t, domain.ActionCreated, entries[1].Action)

	stats, err := ledger.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.DistinctIncidents)
	assert.Equal(t, 2, stats.DistinctActors)
}

func TestRatingReads(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ratings := NewRatingService(&fakeRatingRepo{store: store})
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())
	_, err := assignments.Assign(ctx, admin, summary.ID, technician.ID)
	require.NoError(t, err)
	_, err = incidents.Resolve(ctx, technician, summary.ID, "")
	require.NoError(t, err)
	_, err = incidents.Approve(ctx, admin, summary.ID, intptr(4), nil)
	require.NoError(t, err)

	// Technicians read their own scores, nobody else's.
	rated, err := ratings.ForTechnician(ctx, technician, technician.ID)
	require.NoError(t, err)
	require.Len(t, rated, 1)
	assert.Equal(t, 4, rated[0].Rating)

	_, err = ratings.ForTechnician(ctx, coordinador, technician.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	average, err := ratings.AverageForTechnician(ctx, admin, technician.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, average.Average)
	assert.Equal(t, 1, average.Total)
}

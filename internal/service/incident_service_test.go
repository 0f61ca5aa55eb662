package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func createIncident(t *testing.T, svc *IncidentService, reporter *domain.User, input IncidentCreateInput) *domain.IncidentSummary {
	t.Helper()
	summary, err := svc.Create(context.Background(), reporter, input)
	require.NoError(t, err)
	return summary
}

func bogotaSeat() IncidentCreateInput {
	return IncidentCreateInput{
		Sede:         domain.SedeBogota,
		Departamento: domain.DeptClaro,
		SeatNumber:   42,
		FailureType:  domain.FailurePeripherals,
		Description:  "el teclado no responde",
	}
}

func TestIncidentLifecycle(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())
	assert.Equal(t, domain.StatusPending, summary.Status)
	assert.Equal(t, "BOG-C042", summary.StationCode)

	summary, err := assignments.Assign(ctx, admin, summary.ID, technician.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, summary.Status)
	require.NotNil(t, summary.AssignedToID)
	assert.Equal(t, technician.ID, *summary.AssignedToID)

	summary, err = incidents.Resolve(ctx, technician, summary.ID, "se cambió el teclado")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInSupervision, summary.Status)

	summary, err = incidents.Approve(ctx, admin, summary.ID, intptr(5), strptr("rápido y bien hecho"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, summary.Status)

	// Approved is terminal; approving again is a stale transition.
	_, err = incidents.Approve(ctx, admin, summary.ID, nil, nil)
	assert.True(t, apperrors.IsCode(err, "TRANSITION_REJECTED"))

	// The ledger recorded every step in order.
	entries := store.historyFor(summary.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
	assert.Equal(t, domain.ActionAssigned, entries[1].Action)
	assert.Equal(t, domain.ActionResolved, entries[2].Action)
	assert.Equal(t, domain.ActionApproved, entries[3].Action)

	// The rating landed on the technician.
	store.mu.Lock()
	rating := store.ratings[summary.ID+"|"+technician.ID]
	store.mu.Unlock()
	require.NotNil(t, rating)
	assert.Equal(t, 5, rating.Rating)
}

func TestCreateValidation(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	administrativo := store.addUser(domain.RoleAdministrativo, "Nora Pinzon", domain.SedeBogota, domain.DeptSeleccion)
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	cases := []struct {
		name  string
		actor *domain.User
		edit  func(*IncidentCreateInput)
	}{
		{"unknown failure type", coordinador, func(in *IncidentCreateInput) { in.FailureType = "ventilador" }},
		{"empty description", coordinador, func(in *IncidentCreateInput) { in.Description = "   " }},
		{"seat number zero", coordinador, func(in *IncidentCreateInput) { in.SeatNumber = 0 }},
		{"seat number above range", coordinador, func(in *IncidentCreateInput) { in.SeatNumber = 301 }},
		{"majority outside bogota", coordinador, func(in *IncidentCreateInput) {
			in.Sede = domain.SedeVillavicencio
			in.Departamento = domain.DeptMajority
		}},
		{"administrativo on campaign dept", administrativo, func(in *IncidentCreateInput) { in.Departamento = domain.DeptClaro }},
		{"barranquilla without anydesk", coordinador, func(in *IncidentCreateInput) {
			in.Sede = domain.SedeBarranquilla
			in.AdvisorCedula = strptr("1019988776")
		}},
		{"barranquilla without cedula", coordinador, func(in *IncidentCreateInput) {
			in.Sede = domain.SedeBarranquilla
			in.AnydeskAddress = strptr("123 456 789")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := bogotaSeat()
			tc.edit(&input)
			_, err := incidents.Create(ctx, tc.actor, input)
			require.Error(t, err)
		})
	}

	// Technicians do not report incidents at all.
	_, err := incidents.Create(ctx, technician, bogotaSeat())
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// A coordinador cannot report for another site.
	input := bogotaSeat()
	input.Sede = domain.SedeVillavicencio
	_, err = incidents.Create(ctx, coordinador, input)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestBarranquillaWorkstationPerIncident(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)

	supervisor := store.addUser(domain.RoleSupervisor, "Diana Mesa", domain.SedeBarranquilla, domain.DeptObama)

	input := IncidentCreateInput{
		Sede:           domain.SedeBarranquilla,
		Departamento:   domain.DeptObama,
		SeatNumber:     10,
		FailureType:    domain.FailureInternet,
		Description:    "sin conexión en la sesión remota",
		AnydeskAddress: strptr("555 111 222"),
		AdvisorCedula:  strptr("1019988776"),
	}
	first := createIncident(t, incidents, supervisor, input)
	second := createIncident(t, incidents, supervisor, input)

	// Same seat, two incidents, two distinct workstation codes.
	assert.NotEqual(t, first.StationCode, second.StationCode)
	assert.True(t, strings.HasPrefix(first.StationCode, "BAQ-O010-"))
	assert.True(t, strings.HasPrefix(second.StationCode, "BAQ-O010-"))
}

func TestReturnAndCorrectFlow(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())
	_, err := assignments.Assign(ctx, admin, summary.ID, technician.ID)
	require.NoError(t, err)

	// Returning needs a reason.
	_, err = incidents.Return(ctx, technician, summary.ID, "  ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	summary, err = incidents.Return(ctx, technician, summary.ID, "falta el número del puesto vecino afectado")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, summary.Status)
	assert.Equal(t, 1, summary.ReturnCount)

	// The returned incident leaves the technician's hands entirely.
	assert.Nil(t, summary.AssignedToID)
	workload, err := incidents.ListAssignedTo(ctx, technician)
	require.NoError(t, err)
	assert.Empty(t, workload)

	// Only the reporter corrects; the admin acting on someone else's
	// report hits the reporter guard.
	_, err = incidents.Correct(ctx, admin, summary.ID, IncidentCorrectionInput{Description: strptr("x")})
	assert.True(t, apperrors.IsCode(err, "TRANSITION_REJECTED"))

	summary, err = incidents.Correct(ctx, coordinador, summary.ID, IncidentCorrectionInput{
		Description: strptr("el teclado del puesto 42 no responde, también falla el mouse"),
		FailureType: ftptr(domain.FailurePeripherals),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, summary.Status)
	assert.Contains(t, summary.Description, "también falla el mouse")

	// The second cycle returns from supervision instead; the count keeps
	// climbing and the assignee is dropped again.
	_, err = assignments.Reassign(ctx, admin, summary.ID, technician.ID)
	require.NoError(t, err)
	_, err = incidents.Resolve(ctx, technician, summary.ID, "")
	require.NoError(t, err)
	summary, err = incidents.Return(ctx, technician, summary.ID, "sigue incompleto")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, summary.Status)
	assert.Equal(t, 2, summary.ReturnCount)
	assert.Nil(t, summary.AssignedToID)

	// Correcting still works after a supervision-stage return.
	summary, err = incidents.Correct(ctx, coordinador, summary.ID, IncidentCorrectionInput{
		Description: strptr("se adjunta el puesto vecino y el serial del teclado"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, summary.Status)
}

func ftptr(f domain.FailureType) *domain.FailureType { return &f }

func TestSupervisionQueueFilters(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	administrativo := store.addUser(domain.RoleAdministrativo, "Nidia Salas", domain.SedeBogota, domain.DeptSeleccion)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	for _, reporter := range []*domain.User{coordinador, administrativo} {
		input := bogotaSeat()
		if reporter.Role == domain.RoleAdministrativo {
			input.Departamento = domain.DeptSeleccion
			input.SeatNumber = 7
		}
		summary := createIncident(t, incidents, reporter, input)
		_, err := assignments.Assign(ctx, admin, summary.ID, technician.ID)
		require.NoError(t, err)
		_, err = incidents.Resolve(ctx, technician, summary.ID, "")
		require.NoError(t, err)
	}

	// The queue endpoint keeps the caller's filters on top of the pinned
	// status, so the admin can narrow by reporter role or department.
	all, err := incidents.ListByStatus(ctx, admin, domain.StatusInSupervision, authz.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	role := domain.RoleCoordinador
	byRole, err := incidents.ListByStatus(ctx, admin, domain.StatusInSupervision, authz.Query{CreatorRole: &role})
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, coordinador.ID, byRole[0].ReportedByID)

	dept := domain.DeptSeleccion
	byDept, err := incidents.ListByStatus(ctx, admin, domain.StatusInSupervision, authz.Query{Departamento: &dept})
	require.NoError(t, err)
	require.Len(t, byDept, 1)
	assert.Equal(t, administrativo.ID, byDept[0].ReportedByID)

	// A conflicting status in the query cannot widen the queue.
	approved := domain.StatusApproved
	pinned, err := incidents.ListByStatus(ctx, admin, domain.StatusInSupervision, authz.Query{Status: &approved})
	require.NoError(t, err)
	assert.Len(t, pinned, 2)
}

func TestRejectRequiresReason(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())
	_, err := assignments.Assign(ctx, admin, summary.ID, technician.ID)
	require.NoError(t, err)
	_, err = incidents.Resolve(ctx, technician, summary.ID, "")
	require.NoError(t, err)

	_, err = incidents.Reject(ctx, admin, summary.ID, "")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	summary, err = incidents.Reject(ctx, admin, summary.ID, "la pantalla sigue parpadeando")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, summary.Status)

	// The assignee survives a rejection and can resolve again.
	require.NotNil(t, summary.AssignedToID)
	assert.Equal(t, technician.ID, *summary.AssignedToID)
	_, err = incidents.Resolve(ctx, technician, summary.ID, "ajustado el cable de video")
	require.NoError(t, err)
}

func TestResolveGuards(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	assigned := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")
	other := store.addUser(domain.RoleTechnician, "Julian Mora", domain.SedeBogota, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())

	// Resolving before assignment is out of turn.
	_, err := incidents.Resolve(ctx, assigned, summary.ID, "")
	assert.True(t, apperrors.IsCode(err, "TRANSITION_REJECTED"))

	_, err = assignments.Assign(ctx, admin, summary.ID, assigned.ID)
	require.NoError(t, err)

	// Only the assignee resolves.
	_, err = incidents.Resolve(ctx, other, summary.ID, "")
	assert.True(t, apperrors.IsCode(err, "TRANSITION_REJECTED"))

	_, err = incidents.Resolve(ctx, assigned, summary.ID, "")
	require.NoError(t, err)
}

func TestVisibilityOnGet(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	outsider := store.addUser(domain.RoleAdministrativo, "Nora Pinzon", domain.SedeBogota, domain.DeptSeleccion)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	villaTech := store.addUser(domain.RoleTechnician, "Pedro Lara", domain.SedeVillavicencio, "")

	summary := createIncident(t, incidents, coordinador, bogotaSeat())

	// The reporter and the admin see it.
	_, err := incidents.Get(ctx, coordinador, summary.ID)
	require.NoError(t, err)
	_, err = incidents.Get(ctx, admin, summary.ID)
	require.NoError(t, err)

	// An administrative user sees only their own reports; out-of-scope
	// incidents read as not found, not forbidden.
	_, err = incidents.Get(ctx, outsider, summary.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	// A Villavicencio technician does not see Bogotá incidents.
	_, err = incidents.Get(ctx, villaTech, summary.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestMyReportsCounts(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	assignments := newTestAssignmentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")
	technician := store.addUser(domain.RoleTechnician, "Carlos Rojas", domain.SedeBogota, "")

	first := createIncident(t, incidents, coordinador, bogotaSeat())
	input := bogotaSeat()
	input.SeatNumber = 43
	createIncident(t, incidents, coordinador, input)

	_, err := assignments.Assign(ctx, admin, first.ID, technician.ID)
	require.NoError(t, err)

	reports, counts, err := incidents.MyReports(ctx, coordinador)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 1, counts.InProgress)
}

func TestStatsBySedeAdminOnly(t *testing.T) {
	store := newMemStore()
	incidents := newTestIncidentService(store)
	ctx := context.Background()

	coordinador := store.addUser(domain.RoleCoordinador, "Laura Prieto", domain.SedeBogota, domain.DeptClaro)
	admin := store.addUser(domain.RoleAdmin, "Mesa de Ayuda", "", "")

	createIncident(t, incidents, coordinador, bogotaSeat())

	_, err := incidents.StatsBySede(ctx, coordinador)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	stats, err := incidents.StatsBySede(ctx, admin)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	for _, entry := range stats {
		if entry.Sede == domain.SedeBogota {
			assert.Equal(t, 1, entry.Pending)
			assert.Equal(t, 1, entry.Total)
		} else {
			assert.Zero(t, entry.Total)
		}
	}
}

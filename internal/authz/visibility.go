package authz

import (
	"github.com/soporte-bpo/incident-service/internal/domain"
)

// Actor is the authenticated caller as the resolver sees it: the
// (role, sede, departamento, id) tuple and nothing else.
type Actor struct {
	ID           string
	Role         domain.Role
	Sede         domain.Sede
	Departamento domain.Departamento
}

// SupervisionAge buckets how long an incident has sat in supervision,
// measured from updated_at.
type SupervisionAge string

const (
	SupervisionToday      SupervisionAge = "hoy"
	SupervisionOver3Days  SupervisionAge = "mas_3_dias"
	SupervisionOver7Days  SupervisionAge = "mas_7_dias"
	SupervisionOver30Days SupervisionAge = "mas_30_dias"
)

// Valid reports whether the bucket is known.
func (a SupervisionAge) Valid() bool {
	switch a {
	case SupervisionToday, SupervisionOver3Days, SupervisionOver7Days, SupervisionOver30Days:
		return true
	}
	return false
}

// Query carries the caller-supplied listing filters before the resolver has
// decided which of them the caller may use.
type Query struct {
	Status         *domain.IncidentStatus
	AssignedToID   *string
	Departamento   *domain.Departamento
	Sede           *domain.Sede
	CreatorRole    *domain.Role
	SupervisionAge *SupervisionAge
}

// Scope is the restriction the storage layer applies before returning
// incident rows. It is data, not SQL: the repository translates it.
type Scope struct {
	// DenyAll short-circuits to an empty result set.
	DenyAll bool
	// Everything skips all role restrictions (admin).
	Everything bool
	// Sedes restricts to incidents whose workstation sede is in the set.
	// Empty means no sede restriction.
	Sedes []domain.Sede
	// Departamento additionally restricts to one department.
	Departamento *domain.Departamento
	// ReporterID restricts to incidents the given user reported.
	ReporterID *string

	// Caller filters that survived gating.
	Status         *domain.IncidentStatus
	AssignedToID   *string
	FilterDept     *domain.Departamento
	FilterSede     *domain.Sede
	CreatorRole    *domain.Role
	SupervisionAge *SupervisionAge
}

// ResolveVisibility maps an actor and their requested filters to the scope
// applied to every incident read. It is a pure function: same inputs, same
// scope.
//
// Rule order: admin sees everything; technicians and supervisors see their
// service sedes (Bogotá and Villavicencio also cover Barranquilla);
// coordinadores see their own sede but only their own reports;
// jefes de operaciones see exactly their sede+departamento;
// administrativos and the inventory roles see only their own reports.
// For the en_supervision status filter, every role except admin and
// jefe_operaciones is narrowed to their own reports regardless of the above.
func ResolveVisibility(actor Actor, q Query) Scope {
	scope := Scope{
		Status:       q.Status,
		AssignedToID: q.AssignedToID,
		FilterDept:   q.Departamento,
	}

	switch actor.Role {
	case domain.RoleAdmin:
		scope.Everything = true
		scope.FilterSede = q.Sede
		scope.CreatorRole = q.CreatorRole
		scope.SupervisionAge = q.SupervisionAge
	case domain.RoleTechnician, domain.RoleSupervisor:
		scope.Sedes = actor.Sede.ServiceSedes()
	case domain.RoleCoordinador:
		scope.Sedes = []domain.Sede{actor.Sede}
		reporter := actor.ID
		scope.ReporterID = &reporter
	case domain.RoleJefeOperaciones:
		scope.Sedes = []domain.Sede{actor.Sede}
		dept := actor.Departamento
		scope.Departamento = &dept
	case domain.RoleAdministrativo, domain.RoleGestorActivos, domain.RoleTecnicoInventario:
		reporter := actor.ID
		scope.ReporterID = &reporter
	default:
		scope.DenyAll = true
		return scope
	}

	// Approval authority is tighter than general read visibility: the
	// supervision queue shows only your own reports unless you are the
	// admin or the operations chief of that site+department.
	if q.Status != nil && *q.Status == domain.StatusInSupervision {
		if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleJefeOperaciones {
			reporter := actor.ID
			scope.ReporterID = &reporter
		}
	}

	return scope
}

// Allows reports whether a single incident falls inside the scope. It is the
// in-memory counterpart of the SQL translation, used on get-by-id paths.
func (s Scope) Allows(sede domain.Sede, departamento domain.Departamento, reporterID string) bool {
	if s.DenyAll {
		return false
	}
	if s.Everything {
		return true
	}
	if len(s.Sedes) > 0 {
		found := false
		for _, candidate := range s.Sedes {
			if candidate == sede {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.Departamento != nil && *s.Departamento != departamento {
		return false
	}
	if s.ReporterID != nil && *s.ReporterID != reporterID {
		return false
	}
	return true
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
)

// TransitionOutcome is the typed result of a guarded transition, replacing
// the implicit "zero rows affected" convention.
type TransitionOutcome int

const (
	TransitionOK TransitionOutcome = iota
	TransitionPreconditionFailed
	TransitionNotFound
)

// Transition describes one guarded incident mutation. The repository turns
// it into a single conditional UPDATE plus a history INSERT inside one
// transaction; a losing racer sees TransitionPreconditionFailed and nothing
// is written.
type Transition struct {
	IncidentID string
	ActorID    string

	// Guards evaluated against the persisted row inside the UPDATE.
	FromStatuses    []domain.IncidentStatus
	ExcludeStatuses []domain.IncidentStatus
	RequireAssignee *string
	RequireReporter *string

	// Mutations.
	ToStatus domain.IncidentStatus // empty keeps the current status
	// PromotePending moves a pendiente incident to en_proceso while leaving
	// any other status untouched (reassignment semantics).
	PromotePending  bool
	SetAssignee     *string
	ClearAssignee   bool
	IncrementReturn bool
	SetReturnReason *string
	SetReturnedBy   *string
	SetDescription  *string
	SetFailureType  *domain.FailureType

	// Ledger entry written in the same transaction.
	Action  domain.HistoryAction
	Details string
}

// IncidentRepository encapsulates incident persistence.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident, historyDetails string) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	GetSummary(ctx context.Context, id string) (*domain.IncidentSummary, error)
	List(ctx context.Context, scope authz.Scope) ([]domain.IncidentSummary, error)
	ListReportedBy(ctx context.Context, reporterID string) ([]domain.IncidentSummary, error)
	CountsByReporter(ctx context.Context, reporterID string) (*domain.StatusCounts, error)
	Apply(ctx context.Context, t Transition) (TransitionOutcome, error)
	StatsBySede(ctx context.Context, scope authz.Scope) ([]domain.SedeStats, error)
	TechnicianStatuses(ctx context.Context) ([]domain.TechnicianStatus, error)
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates the repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

func (r *incidentRepository) Create(ctx context.Context, incident *domain.Incident, historyDetails string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertIncident = `
        INSERT INTO incidents (workstation_id, reported_by_id, failure_type, description, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	incident.Status = domain.StatusPending
	if err := tx.QueryRow(ctx, insertIncident,
		incident.WorkstationID,
		incident.ReportedByID,
		incident.FailureType,
		incident.Description,
		incident.Status,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt); err != nil {
		return err
	}

	const insertHistory = `
        INSERT INTO incident_history (incident_id, user_id, action, details)
        VALUES ($1,$2,$3,$4)`
	if _, err := tx.Exec(ctx, insertHistory, incident.ID, incident.ReportedByID, domain.ActionCreated, historyDetails); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *incidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	const query = `
        SELECT id, workstation_id, reported_by_id, assigned_to_id, failure_type, description,
               status, return_reason, return_count, returned_at, returned_by_id, created_at, updated_at
        FROM incidents WHERE id=$1`
	var incident domain.Incident
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.WorkstationID,
		&incident.ReportedByID,
		&incident.AssignedToID,
		&incident.FailureType,
		&incident.Description,
		&incident.Status,
		&incident.ReturnReason,
		&incident.ReturnCount,
		&incident.ReturnedAt,
		&incident.ReturnedByID,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &incident, nil
}

const summarySelect = `
        SELECT i.id, i.failure_type, i.description, i.status,
               w.station_code, w.location_details, w.sede, w.departamento,
               reporter.id, reporter.full_name, reporter.role,
               i.assigned_to_id, assigned.full_name,
               i.return_reason, i.return_count, i.returned_at,
               i.created_at, i.updated_at
        FROM incidents i
        JOIN workstations w ON i.workstation_id = w.id
        JOIN users reporter ON i.reported_by_id = reporter.id
        LEFT JOIN users assigned ON i.assigned_to_id = assigned.id`

func (r *incidentRepository) GetSummary(ctx context.Context, id string) (*domain.IncidentSummary, error) {
	rows, err := r.pool.Query(ctx, summarySelect+` WHERE i.id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &summaries[0], nil
}

func (r *incidentRepository) List(ctx context.Context, scope authz.Scope) ([]domain.IncidentSummary, error) {
	if scope.DenyAll {
		return []domain.IncidentSummary{}, nil
	}
	clauses, args := scopeClauses(scope)
	query := summarySelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY i.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *incidentRepository) ListReportedBy(ctx context.Context, reporterID string) ([]domain.IncidentSummary, error) {
	// Returned incidents first: they are the ones waiting on the reporter.
	query := summarySelect + ` WHERE i.reported_by_id=$1
        ORDER BY CASE i.status
            WHEN 'devuelto' THEN 1
            WHEN 'en_supervision' THEN 2
            WHEN 'en_proceso' THEN 3
            WHEN 'pendiente' THEN 4
            ELSE 5
        END, i.updated_at DESC`
	rows, err := r.pool.Query(ctx, query, reporterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *incidentRepository) CountsByReporter(ctx context.Context, reporterID string) (*domain.StatusCounts, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='pendiente'),
               COUNT(*) FILTER (WHERE status='en_proceso'),
               COUNT(*) FILTER (WHERE status='en_supervision'),
               COUNT(*) FILTER (WHERE status='aprobado'),
               COUNT(*) FILTER (WHERE status='devuelto')
        FROM incidents WHERE reported_by_id=$1`
	var counts domain.StatusCounts
	if err := r.pool.QueryRow(ctx, query, reporterID).Scan(
		&counts.Total,
		&counts.Pending,
		&counts.InProgress,
		&counts.InSupervision,
		&counts.Approved,
		&counts.Returned,
	); err != nil {
		return nil, err
	}
	return &counts, nil
}

// Apply runs the guarded transition. The status check rides inside the
// UPDATE itself, so two racing actors cannot both win: the loser's guard no
// longer matches and the whole transaction is rolled back.
func (r *incidentRepository) Apply(ctx context.Context, t Transition) (TransitionOutcome, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return TransitionNotFound, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sets := []string{"updated_at = NOW()"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case t.PromotePending:
		sets = append(sets, fmt.Sprintf(
			"status = CASE WHEN status = %s THEN %s ELSE status END",
			arg(domain.StatusPending), arg(domain.StatusInProgress)))
	case t.ToStatus != "":
		sets = append(sets, "status = "+arg(t.ToStatus))
	}
	if t.SetAssignee != nil {
		sets = append(sets, "assigned_to_id = "+arg(*t.SetAssignee))
	}
	if t.ClearAssignee {
		sets = append(sets, "assigned_to_id = NULL")
	}
	if t.IncrementReturn {
		sets = append(sets, "return_count = return_count + 1", "returned_at = NOW()")
	}
	if t.SetReturnReason != nil {
		sets = append(sets, "return_reason = "+arg(*t.SetReturnReason))
	}
	if t.SetReturnedBy != nil {
		sets = append(sets, "returned_by_id = "+arg(*t.SetReturnedBy))
	}
	if t.SetDescription != nil {
		sets = append(sets, "description = "+arg(*t.SetDescription))
	}
	if t.SetFailureType != nil {
		sets = append(sets, "failure_type = "+arg(*t.SetFailureType))
	}

	clauses := []string{"id = " + arg(t.IncidentID)}
	if len(t.FromStatuses) > 0 {
		placeholders := make([]string, len(t.FromStatuses))
		for i, status := range t.FromStatuses {
			placeholders[i] = arg(status)
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(t.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(t.ExcludeStatuses))
		for i, status := range t.ExcludeStatuses {
			placeholders[i] = arg(status)
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if t.RequireAssignee != nil {
		clauses = append(clauses, "assigned_to_id = "+arg(*t.RequireAssignee))
	}
	if t.RequireReporter != nil {
		clauses = append(clauses, "reported_by_id = "+arg(*t.RequireReporter))
	}

	query := fmt.Sprintf("UPDATE incidents SET %s WHERE %s",
		strings.Join(sets, ", "), strings.Join(clauses, " AND "))
	cmd, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return TransitionNotFound, err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM incidents WHERE id=$1)", t.IncidentID).Scan(&exists); err != nil {
			return TransitionNotFound, err
		}
		if exists {
			return TransitionPreconditionFailed, nil
		}
		return TransitionNotFound, nil
	}

	const insertHistory = `
        INSERT INTO incident_history (incident_id, user_id, action, details)
        VALUES ($1,$2,$3,$4)`
	if _, err := tx.Exec(ctx, insertHistory, t.IncidentID, t.ActorID, t.Action, t.Details); err != nil {
		return TransitionNotFound, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransitionNotFound, err
	}
	return TransitionOK, nil
}

func (r *incidentRepository) StatsBySede(ctx context.Context, scope authz.Scope) ([]domain.SedeStats, error) {
	if scope.DenyAll {
		return []domain.SedeStats{}, nil
	}
	clauses, args := scopeClauses(scope)
	query := `
        SELECT w.sede,
               COUNT(*) FILTER (WHERE i.status='pendiente'),
               COUNT(*) FILTER (WHERE i.status='en_proceso'),
               COUNT(*) FILTER (WHERE i.status='en_supervision'),
               COUNT(*) FILTER (WHERE i.status='aprobado'),
               COUNT(*)
        FROM incidents i
        JOIN workstations w ON i.workstation_id = w.id
        JOIN users reporter ON i.reported_by_id = reporter.id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY w.sede ORDER BY w.sede"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bySede := map[domain.Sede]domain.SedeStats{}
	for rows.Next() {
		var stats domain.SedeStats
		if err := rows.Scan(&stats.Sede, &stats.Pending, &stats.InProgress, &stats.InSupervision, &stats.Approved, &stats.Total); err != nil {
			return nil, err
		}
		bySede[stats.Sede] = stats
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Every sede appears in the result, zeroed when it has no incidents.
	result := make([]domain.SedeStats, 0, len(domain.Sedes()))
	for _, sede := range domain.Sedes() {
		stats, ok := bySede[sede]
		if !ok {
			stats = domain.SedeStats{Sede: sede}
		}
		result = append(result, stats)
	}
	return result, nil
}

func (r *incidentRepository) TechnicianStatuses(ctx context.Context) ([]domain.TechnicianStatus, error) {
	const query = `
        SELECT u.id, u.full_name, u.sede, COUNT(i.id)
        FROM users u
        LEFT JOIN incidents i ON u.id = i.assigned_to_id
            AND i.status IN ('en_proceso', 'en_supervision')
        WHERE u.role = 'technician'
        GROUP BY u.id, u.full_name, u.sede
        ORDER BY u.sede, u.full_name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianStatus
	for rows.Next() {
		var status domain.TechnicianStatus
		if err := rows.Scan(&status.ID, &status.FullName, &status.Sede, &status.ActiveIncidents); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

// scopeClauses translates a visibility scope into WHERE clauses over the
// summary join aliases (i, w, reporter).
func scopeClauses(scope authz.Scope) ([]string, []any) {
	clauses := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !scope.Everything {
		if len(scope.Sedes) > 0 {
			placeholders := make([]string, len(scope.Sedes))
			for i, sede := range scope.Sedes {
				placeholders[i] = arg(sede)
			}
			clauses = append(clauses, fmt.Sprintf("w.sede IN (%s)", strings.Join(placeholders, ",")))
		}
		if scope.Departamento != nil {
			clauses = append(clauses, "w.departamento = "+arg(*scope.Departamento))
		}
		if scope.ReporterID != nil {
			clauses = append(clauses, "i.reported_by_id = "+arg(*scope.ReporterID))
		}
	}

	if scope.Status != nil {
		clauses = append(clauses, "i.status = "+arg(*scope.Status))
	}
	if scope.AssignedToID != nil {
		clauses = append(clauses, "i.assigned_to_id = "+arg(*scope.AssignedToID))
	}
	if scope.FilterDept != nil {
		clauses = append(clauses, "w.departamento = "+arg(*scope.FilterDept))
	}
	if scope.FilterSede != nil {
		clauses = append(clauses, "w.sede = "+arg(*scope.FilterSede))
	}
	if scope.CreatorRole != nil {
		clauses = append(clauses, "reporter.role = "+arg(*scope.CreatorRole))
	}
	if scope.SupervisionAge != nil {
		switch *scope.SupervisionAge {
		case authz.SupervisionToday:
			clauses = append(clauses, "i.updated_at::date = CURRENT_DATE")
		case authz.SupervisionOver3Days:
			clauses = append(clauses, "i.updated_at < NOW() - INTERVAL '3 days'")
		case authz.SupervisionOver7Days:
			clauses = append(clauses, "i.updated_at < NOW() - INTERVAL '7 days'")
		case authz.SupervisionOver30Days:
			clauses = append(clauses, "i.updated_at < NOW() - INTERVAL '30 days'")
		}
	}
	return clauses, args
}

func scanSummaries(rows pgx.Rows) ([]domain.IncidentSummary, error) {
	var result []domain.IncidentSummary
	for rows.Next() {
		var summary domain.IncidentSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.FailureType,
			&summary.Description,
			&summary.Status,
			&summary.StationCode,
			&summary.LocationDetails,
			&summary.Sede,
			&summary.Departamento,
			&summary.ReportedByID,
			&summary.ReportedByName,
			&summary.ReporterRole,
			&summary.AssignedToID,
			&summary.AssignedToName,
			&summary.ReturnReason,
			&summary.ReturnCount,
			&summary.ReturnedAt,
			&summary.CreatedAt,
			&summary.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/events"
	"github.com/soporte-bpo/incident-service/internal/repository"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// IncidentService coordinates the incident lifecycle: creation, the guarded
// supervision workflow, visibility-scoped reads and attachments.
type IncidentService struct {
	incidents    repository.IncidentRepository
	workstations repository.WorkstationRepository
	users        repository.UserRepository
	history      repository.HistoryRepository
	ratings      repository.RatingRepository
	attachments  repository.AttachmentRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// IncidentDependencies bundles collaborators.
type IncidentDependencies struct {
	IncidentRepo    repository.IncidentRepository
	WorkstationRepo repository.WorkstationRepository
	UserRepo        repository.UserRepository
	HistoryRepo     repository.HistoryRepository
	RatingRepo      repository.RatingRepository
	AttachmentRepo  repository.AttachmentRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	return &IncidentService{
		incidents:    deps.IncidentRepo,
		workstations: deps.WorkstationRepo,
		users:        deps.UserRepo,
		history:      deps.HistoryRepo,
		ratings:      deps.RatingRepo,
		attachments:  deps.AttachmentRepo,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
	}
}

// IncidentCreateInput describes the incident creation payload.
type IncidentCreateInput struct {
	Sede            domain.Sede
	Departamento    domain.Departamento
	SeatNumber      int
	LocationDetails string
	FailureType     domain.FailureType
	Description     string
	AnydeskAddress  *string
	AdvisorCedula   *string
}

// Create reports a new incident. Non-admin callers report for their own
// site; administrative staff report against administrative areas; remote
// Barranquilla seats get a per-incident workstation so the AnyDesk session
// data stays attached to the incident that used it.
func (s *IncidentService) Create(ctx context.Context, actor *domain.User, input IncidentCreateInput) (*domain.IncidentSummary, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !authz.Can(actor.Role, authz.ActionCreate) {
		return nil, apperrors.NewForbidden("role cannot report incidents")
	}
	if err := s.validateCreate(actor, &input); err != nil {
		return nil, err
	}

	station, err := s.resolveWorkstation(ctx, input)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	incident := &domain.Incident{
		WorkstationID: station.ID,
		ReportedByID:  actor.ID,
		FailureType:   input.FailureType,
		Description:   strings.TrimSpace(input.Description),
	}
	details := fmt.Sprintf("Incidente reportado en %s (%s)", station.StationCode, input.FailureType)
	if err := s.incidents.Create(ctx, incident, details); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventIncidentCreated,
		IncidentID: incident.ID,
		ActorID:    actor.ID,
		Payload: events.IncidentCreatedPayload{
			StationCode:  station.StationCode,
			Sede:         station.Sede,
			Departamento: station.Departamento,
			FailureType:  incident.FailureType,
		},
	})

	summary, err := s.incidents.GetSummary(ctx, incident.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return summary, nil
}

func (s *IncidentService) validateCreate(actor *domain.User, input *IncidentCreateInput) error {
	if !input.FailureType.Valid() {
		return apperrors.NewValidationError("invalid failure type", map[string]any{"failure_type": input.FailureType})
	}
	if strings.TrimSpace(input.Description) == "" {
		return apperrors.NewValidationError("description is required", nil)
	}
	if !input.Sede.Valid() {
		return apperrors.NewValidationError("invalid sede", map[string]any{"sede": input.Sede})
	}
	if !domain.ValidSeatNumber(input.SeatNumber) {
		return apperrors.NewValidationError("seat number out of range", map[string]any{"seat_number": input.SeatNumber})
	}

	// Only the admin reports for arbitrary sites.
	if actor.Role != domain.RoleAdmin && actor.Sede != "" && input.Sede != actor.Sede {
		return apperrors.NewForbidden("cannot report incidents for another sede")
	}

	switch actor.Role {
	case domain.RoleAdministrativo:
		if !domain.ContainsDepartamento(domain.AdministrativeDepartamentos(), input.Departamento) {
			return apperrors.NewValidationError("invalid administrative departamento", map[string]any{"departamento": input.Departamento})
		}
	case domain.RoleJefeOperaciones:
		if input.Departamento != actor.Departamento {
			return apperrors.NewForbidden("cannot report incidents for another departamento")
		}
		if !domain.ContainsDepartamento(domain.OperationDepartamentos(input.Sede), input.Departamento) {
			return apperrors.NewValidationError("departamento not available at sede", map[string]any{"departamento": input.Departamento, "sede": input.Sede})
		}
	default:
		valid := domain.ContainsDepartamento(domain.OperationDepartamentos(input.Sede), input.Departamento) ||
			domain.ContainsDepartamento(domain.AdministrativeDepartamentos(), input.Departamento)
		if !valid {
			return apperrors.NewValidationError("departamento not available at sede", map[string]any{"departamento": input.Departamento, "sede": input.Sede})
		}
	}

	if input.Sede == domain.SedeBarranquilla {
		if input.AnydeskAddress == nil || strings.TrimSpace(*input.AnydeskAddress) == "" {
			return apperrors.NewValidationError("anydesk address is required for barranquilla", nil)
		}
		if input.AdvisorCedula == nil || strings.TrimSpace(*input.AdvisorCedula) == "" {
			return apperrors.NewValidationError("advisor cedula is required for barranquilla", nil)
		}
	}
	return nil
}

// resolveWorkstation finds or creates the seat an incident is reported
// against. Physical seats are shared across incidents; Barranquilla seats
// carry a unique suffix so each remote session gets its own record.
func (s *IncidentService) resolveWorkstation(ctx context.Context, input IncidentCreateInput) (*domain.Workstation, error) {
	code := domain.StationCode(input.Sede, input.Departamento, input.SeatNumber)
	station := &domain.Workstation{
		StationCode:     code,
		LocationDetails: strings.TrimSpace(input.LocationDetails),
		Sede:            input.Sede,
		Departamento:    input.Departamento,
	}

	if input.Sede == domain.SedeBarranquilla {
		station.StationCode = fmt.Sprintf("%s-%s", code, uuid.NewString()[:8])
		station.AnydeskAddress = input.AnydeskAddress
		station.AdvisorCedula = input.AdvisorCedula
		if err := s.workstations.Create(ctx, station); err != nil {
			return nil, err
		}
		return station, nil
	}
	return s.workstations.FindOrCreateByCode(ctx, station)
}

// Resolve lets the assigned technician submit their work for supervision.
func (s *IncidentService) Resolve(ctx context.Context, actor *domain.User, incidentID, comment string) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionResolve); err != nil {
		return nil, err
	}

	details := "Trabajo completado, pendiente de supervisión"
	if strings.TrimSpace(comment) != "" {
		details = strings.TrimSpace(comment)
	}
	assignee := actor.ID
	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:      incidentID,
		ActorID:         actor.ID,
		FromStatuses:    []domain.IncidentStatus{domain.StatusInProgress},
		RequireAssignee: &assignee,
		ToStatus:        domain.StatusInSupervision,
		Action:          domain.ActionResolved,
		Details:         details,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not mark incident as resolved")
	}

	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, actor.ID, incidentID, domain.StatusInProgress, domain.StatusInSupervision, details)
	return summary, nil
}

// Approve closes the supervision loop. An optional rating is recorded
// against the technician after the transition commits; approving the same
// incident again overwrites the previous score.
func (s *IncidentService) Approve(ctx context.Context, actor *domain.User, incidentID string, rating *int, feedback *string) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionApprove); err != nil {
		return nil, err
	}
	if rating != nil && !domain.ValidRating(*rating) {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": *rating})
	}
	if err := s.checkVisible(ctx, actor, incidentID); err != nil {
		return nil, err
	}

	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:   incidentID,
		ActorID:      actor.ID,
		FromStatuses: []domain.IncidentStatus{domain.StatusInSupervision},
		ToStatus:     domain.StatusApproved,
		Action:       domain.ActionApproved,
		Details:      "Solución verificada y aprobada",
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not approve incident")
	}

	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if rating != nil && summary.AssignedToID != nil {
		score := &domain.TechnicianRating{
			IncidentID:   incidentID,
			TechnicianID: *summary.AssignedToID,
			RatedByID:    actor.ID,
			Rating:       *rating,
			Feedback:     feedback,
		}
		if err := s.ratings.Upsert(ctx, score); err != nil {
			// The approval already committed; a lost rating is logged,
			// not surfaced.
			s.logger.Warn("record technician rating",
				zap.String("incident_id", incidentID),
				zap.Error(err))
		}
	}

	s.publishStatusChange(ctx, actor.ID, incidentID, domain.StatusInSupervision, domain.StatusApproved, "")
	return summary, nil
}

// Reject sends a supervised incident back to the technician.
func (s *IncidentService) Reject(ctx context.Context, actor *domain.User, incidentID, reason string) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionReject); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("rejection reason is required", nil)
	}
	if err := s.checkVisible(ctx, actor, incidentID); err != nil {
		return nil, err
	}

	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:   incidentID,
		ActorID:      actor.ID,
		FromStatuses: []domain.IncidentStatus{domain.StatusInSupervision},
		ToStatus:     domain.StatusInProgress,
		Action:       domain.ActionRejected,
		Details:      strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not reject incident")
	}

	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, actor.ID, incidentID, domain.StatusInSupervision, domain.StatusInProgress, reason)
	return summary, nil
}

// Return hands an incident back to its reporter, typically because the
// report lacks information the technician needs. The technician may return
// while working the incident or after sending it to supervision; either way
// the incident leaves their workload until it is corrected and reassigned.
func (s *IncidentService) Return(ctx context.Context, actor *domain.User, incidentID, reason string) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionReturn); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("return reason is required", nil)
	}

	assignee := actor.ID
	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:      incidentID,
		ActorID:         actor.ID,
		FromStatuses:    []domain.IncidentStatus{domain.StatusInProgress, domain.StatusInSupervision},
		RequireAssignee: &assignee,
		ToStatus:        domain.StatusReturned,
		ClearAssignee:   true,
		IncrementReturn: true,
		SetReturnReason: &reason,
		SetReturnedBy:   &assignee,
		Action:          domain.ActionReturned,
		Details:         reason,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not return incident")
	}

	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:       events.EventIncidentReturned,
		IncidentID: incidentID,
		ActorID:    actor.ID,
		Payload: events.IncidentReturnedPayload{
			ReporterID:  summary.ReportedByID,
			Reason:      reason,
			ReturnCount: summary.ReturnCount,
		},
	})
	return summary, nil
}

// IncidentCorrectionInput carries the reporter's fixes for a returned
// incident. Nil fields keep the stored values.
type IncidentCorrectionInput struct {
	Description    *string
	FailureType    *domain.FailureType
	AnydeskAddress *string
	AdvisorCedula  *string
}

// Correct lets the original reporter amend a returned incident and resubmit
// it to the pending queue.
func (s *IncidentService) Correct(ctx context.Context, actor *domain.User, incidentID string, input IncidentCorrectionInput) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionCorrect); err != nil {
		return nil, err
	}
	if input.FailureType != nil && !input.FailureType.Valid() {
		return nil, apperrors.NewValidationError("invalid failure type", map[string]any{"failure_type": *input.FailureType})
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		return nil, apperrors.NewValidationError("description cannot be empty", nil)
	}

	reporter := actor.ID
	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:      incidentID,
		ActorID:         actor.ID,
		FromStatuses:    []domain.IncidentStatus{domain.StatusReturned},
		RequireReporter: &reporter,
		ToStatus:        domain.StatusPending,
		SetDescription:  input.Description,
		SetFailureType:  input.FailureType,
		Action:          domain.ActionCorrected,
		Details:         "Reporte corregido y reenviado",
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not resubmit incident")
	}

	if input.AnydeskAddress != nil || input.AdvisorCedula != nil {
		incident, err := s.incidents.GetByID(ctx, incidentID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := s.workstations.UpdateRemoteFields(ctx, incident.WorkstationID, input.AnydeskAddress, input.AdvisorCedula); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, actor.ID, incidentID, domain.StatusReturned, domain.StatusPending, "")
	return summary, nil
}

// Get returns one incident if it falls inside the caller's visibility.
func (s *IncidentService) Get(ctx context.Context, actor *domain.User, incidentID string) (*domain.IncidentSummary, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
		}
		return nil, apperrors.MapError(err)
	}

	scope := authz.ResolveVisibility(actorOf(actor), authz.Query{})
	if !scope.Allows(summary.Sede, summary.Departamento, summary.ReportedByID) && !s.actorInvolved(actor, summary) {
		return nil, apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
	}
	return summary, nil
}

// actorInvolved covers the paths visibility scoping does not: the assigned
// technician keeps access even when reassignment moved the incident across
// their usual scope.
func (s *IncidentService) actorInvolved(actor *domain.User, summary *domain.IncidentSummary) bool {
	if summary.ReportedByID == actor.ID {
		return true
	}
	return summary.AssignedToID != nil && *summary.AssignedToID == actor.ID
}

// List returns incidents inside the caller's visibility, narrowed by the
// requested filters where the caller's role permits them.
func (s *IncidentService) List(ctx context.Context, actor *domain.User, query authz.Query) ([]domain.IncidentSummary, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if query.Status != nil && !query.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": *query.Status})
	}
	if query.SupervisionAge != nil && !query.SupervisionAge.Valid() {
		return nil, apperrors.NewValidationError("invalid supervision age filter", map[string]any{"tiempo_supervision": *query.SupervisionAge})
	}

	scope := authz.ResolveVisibility(actorOf(actor), query)
	result, err := s.incidents.List(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListByStatus is List pinned to one lifecycle state, backing the queue
// endpoints (pending, supervision, returned, approved). The remaining query
// filters still apply, so the supervision queue accepts the creador and
// tiempo_supervision narrowing where the caller's role permits it.
func (s *IncidentService) ListByStatus(ctx context.Context, actor *domain.User, status domain.IncidentStatus, query authz.Query) ([]domain.IncidentSummary, error) {
	query.Status = &status
	return s.List(ctx, actor, query)
}

// ListAssignedTo returns the caller's active workload.
func (s *IncidentService) ListAssignedTo(ctx context.Context, actor *domain.User) ([]domain.IncidentSummary, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	assignee := actor.ID
	scope := authz.ResolveVisibility(actorOf(actor), authz.Query{AssignedToID: &assignee})
	result, err := s.incidents.List(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// MyReports lists everything the caller reported, returned incidents first,
// together with their per-status counts.
func (s *IncidentService) MyReports(ctx context.Context, actor *domain.User) ([]domain.IncidentSummary, *domain.StatusCounts, error) {
	if actor == nil {
		return nil, nil, apperrors.NewUnauthorized("authentication required")
	}
	reports, err := s.incidents.ListReportedBy(ctx, actor.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	counts, err := s.incidents.CountsByReporter(ctx, actor.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return reports, counts, nil
}

// History returns the per-incident ledger, oldest entry first.
func (s *IncidentService) History(ctx context.Context, actor *domain.User, incidentID string) ([]domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, incidentID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// AttachmentInput describes an uploaded file's stored reference.
type AttachmentInput struct {
	FileName     string
	OriginalName string
	MimeType     string
	SizeBytes    int64
}

// AddAttachment records a file reference against an incident the caller can
// see.
func (s *IncidentService) AddAttachment(ctx context.Context, actor *domain.User, incidentID string, input AttachmentInput) (*domain.AttachmentReference, error) {
	if _, err := s.Get(ctx, actor, incidentID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperrors.NewValidationError("file name is required", nil)
	}
	ref := &domain.AttachmentReference{
		IncidentID:   incidentID,
		FileName:     input.FileName,
		OriginalName: input.OriginalName,
		MimeType:     input.MimeType,
		SizeBytes:    input.SizeBytes,
		UploadedByID: actor.ID,
	}
	if err := s.attachments.Create(ctx, ref); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ref, nil
}

// ListAttachments lists the file references of a visible incident.
func (s *IncidentService) ListAttachments(ctx context.Context, actor *domain.User, incidentID string) ([]domain.AttachmentReference, error) {
	if _, err := s.Get(ctx, actor, incidentID); err != nil {
		return nil, err
	}
	refs, err := s.attachments.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return refs, nil
}

// StatsBySede returns the per-site incident breakdown.
func (s *IncidentService) StatsBySede(ctx context.Context, actor *domain.User) ([]domain.SedeStats, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !authz.Can(actor.Role, authz.ActionViewStats) {
		return nil, apperrors.NewForbidden("insufficient permissions")
	}
	stats, err := s.incidents.StatsBySede(ctx, authz.Scope{Everything: true})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// checkVisible gates a mutation on the actor being able to see the incident
// at all. Supervisors approve inside their service sedes, jefes inside
// their department, the admin anywhere.
func (s *IncidentService) checkVisible(ctx context.Context, actor *domain.User, incidentID string) error {
	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
		}
		return apperrors.MapError(err)
	}
	scope := authz.ResolveVisibility(actorOf(actor), authz.Query{})
	if !scope.Allows(summary.Sede, summary.Departamento, summary.ReportedByID) {
		return apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
	}
	return nil
}

func (s *IncidentService) publishStatusChange(ctx context.Context, actorID, incidentID string, from, to domain.IncidentStatus, comment string) {
	s.publish(ctx, events.Event{
		Type:       events.EventIncidentStatusChanged,
		IncidentID: incidentID,
		ActorID:    actorID,
		Payload: events.IncidentStatusChangedPayload{
			OldStatus: from,
			NewStatus: to,
			Comment:   comment,
		},
	})
}

func (s *IncidentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

func actorOf(user *domain.User) authz.Actor {
	return authz.Actor{
		ID:           user.ID,
		Role:         user.Role,
		Sede:         user.Sede,
		Departamento: user.Departamento,
	}
}

func requireAction(actor *domain.User, action authz.Action) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !authz.Can(actor.Role, action) {
		return apperrors.NewForbidden("insufficient permissions")
	}
	return nil
}

// transitionError maps a non-OK outcome onto the error taxonomy. A stale
// precondition means the caller raced another actor or acted out of turn;
// the incident itself is fine.
func transitionError(outcome repository.TransitionOutcome, incidentID, message string) error {
	if outcome == repository.TransitionNotFound {
		return apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
	}
	return apperrors.NewTransitionRejected(message, map[string]any{"incident_id": incidentID})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/events"
	"github.com/soporte-bpo/incident-service/internal/repository"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// AssignmentService handles who works an incident: first assignment,
// administrative reassignment and the technician roster.
type AssignmentService struct {
	incidents  repository.IncidentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	IncidentRepo repository.IncidentRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		incidents:  deps.IncidentRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Assign puts a pending incident in a technician's hands. Technicians
// assign only themselves; the admin may assign anyone eligible. Exactly one
// of two racing assigns wins; the loser gets a transition rejection.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.User, incidentID, technicianID string) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionAssign); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleTechnician && technicianID != actor.ID {
		return nil, apperrors.NewForbidden("technicians assign incidents only to themselves")
	}

	technician, summary, err := s.loadEligiblePair(ctx, incidentID, technicianID)
	if err != nil {
		return nil, err
	}

	assignee := technician.ID
	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:   incidentID,
		ActorID:      actor.ID,
		FromStatuses: []domain.IncidentStatus{domain.StatusPending},
		ToStatus:     domain.StatusInProgress,
		SetAssignee:  &assignee,
		Action:       domain.ActionAssigned,
		Details:      fmt.Sprintf("Asignado a %s", technician.FullName),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not assign incident")
	}

	s.publishAssigned(ctx, actor.ID, incidentID, technician, summary.AssignedToID)
	return s.refreshed(ctx, incidentID)
}

// Reassign moves an incident to another technician regardless of who holds
// it, promoting a pending incident to in-progress on the way. Approved
// incidents are closed and stay closed.
func (s *AssignmentService) Reassign(ctx context.Context, actor *domain.User, incidentID, technicianID string) (*domain.IncidentSummary, error) {
	if err := requireAction(actor, authz.ActionReassign); err != nil {
		return nil, err
	}

	technician, summary, err := s.loadEligiblePair(ctx, incidentID, technicianID)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Reasignado a %s", technician.FullName)
	if summary.AssignedToName != nil {
		details = fmt.Sprintf("Reasignado de %s a %s", *summary.AssignedToName, technician.FullName)
	}

	assignee := technician.ID
	outcome, err := s.incidents.Apply(ctx, repository.Transition{
		IncidentID:      incidentID,
		ActorID:         actor.ID,
		ExcludeStatuses: []domain.IncidentStatus{domain.StatusApproved},
		PromotePending:  true,
		SetAssignee:     &assignee,
		Action:          domain.ActionReassigned,
		Details:         details,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if outcome != repository.TransitionOK {
		return nil, transitionError(outcome, incidentID, "could not reassign incident")
	}

	s.publishAssigned(ctx, actor.ID, incidentID, technician, summary.AssignedToID)
	return s.refreshed(ctx, incidentID)
}

// EligibleTechnicians lists the technicians who may take incidents at the
// given site, honoring the remote-site coverage rule.
func (s *AssignmentService) EligibleTechnicians(ctx context.Context, actor *domain.User, sede domain.Sede) ([]domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !sede.Valid() {
		return nil, apperrors.NewValidationError("invalid sede", map[string]any{"sede": sede})
	}
	technicians, err := s.users.ListTechniciansForSede(ctx, sede)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return technicians, nil
}

// TechnicianStatuses reports every technician's current load.
func (s *AssignmentService) TechnicianStatuses(ctx context.Context, actor *domain.User) ([]domain.TechnicianStatus, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !authz.Can(actor.Role, authz.ActionViewStats) {
		return nil, apperrors.NewForbidden("insufficient permissions")
	}
	statuses, err := s.incidents.TechnicianStatuses(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return statuses, nil
}

// loadEligiblePair fetches the candidate and the incident and verifies the
// candidate is a technician whose coverage includes the incident's site.
func (s *AssignmentService) loadEligiblePair(ctx context.Context, incidentID, technicianID string) (*domain.User, *domain.IncidentSummary, error) {
	technician, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if technician.Role != domain.RoleTechnician {
		return nil, nil, apperrors.NewValidationError("assignee must be a technician", map[string]any{"role": technician.Role})
	}

	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("incident", map[string]any{"incident_id": incidentID})
		}
		return nil, nil, apperrors.MapError(err)
	}

	covered := false
	for _, sede := range technician.Sede.ServiceSedes() {
		if sede == summary.Sede {
			covered = true
			break
		}
	}
	if !covered {
		return nil, nil, apperrors.NewValidationError("technician does not cover the incident sede",
			map[string]any{"technician_sede": technician.Sede, "incident_sede": summary.Sede})
	}
	return technician, summary, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actorID, incidentID string, technician *domain.User, previous *string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventIncidentAssigned,
		IncidentID: incidentID,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Payload: events.IncidentAssignedPayload{
			TechnicianID:   technician.ID,
			TechnicianName: technician.FullName,
			PreviousID:     previous,
		},
	})
}

func (s *AssignmentService) refreshed(ctx context.Context, incidentID string) (*domain.IncidentSummary, error) {
	summary, err := s.incidents.GetSummary(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return summary, nil
}

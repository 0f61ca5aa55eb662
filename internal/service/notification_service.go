package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/soporte-bpo/incident-service/internal/events"
	"github.com/soporte-bpo/incident-service/internal/realtime"
	"github.com/soporte-bpo/incident-service/internal/repository"
)

// NotificationService fans domain events out to connected users through the
// realtime registry. Delivery is best-effort: a failed push never affects
// the transition that caused it.
type NotificationService struct {
	dispatcher events.Dispatcher
	registry   *realtime.Registry
	incidents  repository.IncidentRepository
	users      repository.UserRepository
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher   events.Dispatcher
	Registry     *realtime.Registry
	IncidentRepo repository.IncidentRepository
	UserRepo     repository.UserRepository
	Logger       *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
		incidents:  deps.IncidentRepo,
		users:      deps.UserRepo,
		logger:     deps.Logger,
	}
}

// RegisterHandlers subscribes to the events the service delivers.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIncidentCreated, n.handleIncidentCreated)
	n.dispatcher.Subscribe(events.EventIncidentAssigned, n.handleIncidentAssigned)
	n.dispatcher.Subscribe(events.EventIncidentStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventIncidentReturned, n.handleIncidentReturned)
	n.dispatcher.Subscribe(events.EventSupervisionAlertSent, n.handleAlertSent)
}

// handleIncidentCreated notifies the technicians who cover the incident's
// site that new work is waiting.
func (n *NotificationService) handleIncidentCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("incident created",
		zap.String("incident_id", event.IncidentID),
		zap.String("station_code", payload.StationCode))

	technicians, err := n.users.ListTechniciansForSede(ctx, payload.Sede)
	if err != nil {
		n.logger.Warn("list technicians for notification", zap.Error(err))
		return nil
	}
	for _, technician := range technicians {
		n.registry.Publish(ctx, technician.ID, event)
	}
	return nil
}

func (n *NotificationService) handleIncidentAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentAssignedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("incident assigned",
		zap.String("incident_id", event.IncidentID),
		zap.String("technician_id", payload.TechnicianID))

	n.registry.Publish(ctx, payload.TechnicianID, event)
	if payload.PreviousID != nil && *payload.PreviousID != payload.TechnicianID {
		n.registry.Publish(ctx, *payload.PreviousID, event)
	}
	return nil
}

// handleStatusChanged notifies the reporter, who is the one waiting on the
// lifecycle to move.
func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	incident, err := n.incidents.GetByID(ctx, event.IncidentID)
	if err != nil {
		n.logger.Warn("load incident for notification",
			zap.String("incident_id", event.IncidentID),
			zap.Error(err))
		return nil
	}
	n.registry.Publish(ctx, incident.ReportedByID, event)
	if incident.AssignedToID != nil {
		n.registry.Publish(ctx, *incident.AssignedToID, event)
	}
	return nil
}

func (n *NotificationService) handleIncidentReturned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentReturnedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("incident returned",
		zap.String("incident_id", event.IncidentID),
		zap.Int("return_count", payload.ReturnCount))
	n.registry.Publish(ctx, payload.ReporterID, event)
	return nil
}

func (n *NotificationService) handleAlertSent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SupervisionAlertPayload)
	if !ok {
		return nil
	}
	n.registry.Publish(ctx, payload.RecipientID, event)
	return nil
}

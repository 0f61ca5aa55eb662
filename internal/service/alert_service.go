package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/events"
	"github.com/soporte-bpo/incident-service/internal/repository"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// AlertService nudges reporters whose incidents sit in supervision and
// tracks what each recipient did with the nudge.
type AlertService struct {
	alerts     repository.AlertRepository
	incidents  repository.IncidentRepository
	dispatcher events.Dispatcher
}

// AlertDependencies bundles collaborators.
type AlertDependencies struct {
	AlertRepo    repository.AlertRepository
	IncidentRepo repository.IncidentRepository
	Dispatcher   events.Dispatcher
}

// NewAlertService constructs the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	return &AlertService{
		alerts:     deps.AlertRepo,
		incidents:  deps.IncidentRepo,
		dispatcher: deps.Dispatcher,
	}
}

// SendSupervisionAlerts creates one alert per incident currently in
// supervision, addressed to its reporter. Returns how many alerts went out.
func (s *AlertService) SendSupervisionAlerts(ctx context.Context, actor *domain.User) (int, error) {
	if err := requireAction(actor, authz.ActionSendAlerts); err != nil {
		return 0, err
	}

	status := domain.StatusInSupervision
	pending, err := s.incidents.List(ctx, authz.Scope{Everything: true, Status: &status})
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	sent := 0
	for _, incident := range pending {
		alert := &domain.SupervisionAlert{
			IncidentID:  incident.ID,
			RecipientID: incident.ReportedByID,
			Message:     fmt.Sprintf("El incidente de %s está pendiente de tu supervisión", incident.StationCode),
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			return sent, apperrors.MapError(err)
		}
		sent++

		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(ctx, events.Event{
				ID:         uuid.NewString(),
				Type:       events.EventSupervisionAlertSent,
				IncidentID: incident.ID,
				ActorID:    actor.ID,
				Timestamp:  time.Now().UTC(),
				Payload: events.SupervisionAlertPayload{
					RecipientID: alert.RecipientID,
					Message:     alert.Message,
				},
			})
		}
	}
	return sent, nil
}

// MyAlerts lists the caller's alerts, newest first, with the unread count.
func (s *AlertService) MyAlerts(ctx context.Context, actor *domain.User, limit int) ([]domain.SupervisionAlert, int, error) {
	if actor == nil {
		return nil, 0, apperrors.NewUnauthorized("authentication required")
	}
	alerts, err := s.alerts.ListByRecipient(ctx, actor.ID, limit)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	unread := 0
	for _, alert := range alerts {
		if alert.Status == domain.AlertActive {
			unread++
		}
	}
	return alerts, unread, nil
}

// MarkRead marks one of the caller's active alerts as read.
func (s *AlertService) MarkRead(ctx context.Context, actor *domain.User, alertID string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.alerts.MarkRead(ctx, alertID, actor.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Dismiss removes an alert from the caller's active list.
func (s *AlertService) Dismiss(ctx context.Context, actor *domain.User, alertID string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.alerts.Dismiss(ctx, alertID, actor.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

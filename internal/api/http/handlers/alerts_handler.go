package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/api/dto"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/service"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// AlertsHandler exposes supervision alerts.
type AlertsHandler struct {
	alerts *service.AlertService
}

// NewAlertsHandler constructs the handler.
func NewAlertsHandler(alerts *service.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// Send POST /alerts/supervision.
func (h *AlertsHandler) Send(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	sent, err := h.alerts.SendSupervisionAlerts(c.Context(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": sent}})
}

// Mine GET /alerts.
func (h *AlertsHandler) Mine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	limit := parsePositiveInt(c.Query("limit"), 50)
	alerts, unread, err := h.alerts.MyAlerts(c.Context(), principal.User, limit)
	if err != nil {
		return err
	}
	items := make([]dto.AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		items = append(items, dto.AlertResponse{
			ID:         alert.ID,
			IncidentID: alert.IncidentID,
			Message:    alert.Message,
			Status:     alert.Status,
			CreatedAt:  alert.CreatedAt,
			ReadAt:     alert.ReadAt,
		})
	}
	return c.JSON(fiber.Map{"data": items, "unread": unread})
}

// MarkRead PUT /alerts/:id/read.
func (h *AlertsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.alerts.MarkRead(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "read"}})
}

// Dismiss DELETE /alerts/:id.
func (h *AlertsHandler) Dismiss(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.alerts.Dismiss(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "dismissed"}})
}

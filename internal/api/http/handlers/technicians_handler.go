package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/api/dto"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/service"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// TechniciansHandler exposes the technician roster and ratings.
type TechniciansHandler struct {
	assignments *service.AssignmentService
	ratings     *service.RatingService
}

// NewTechniciansHandler constructs the handler.
func NewTechniciansHandler(assignments *service.AssignmentService, ratings *service.RatingService) *TechniciansHandler {
	return &TechniciansHandler{assignments: assignments, ratings: ratings}
}

// Eligible GET /technicians/eligible?sede=.
func (h *TechniciansHandler) Eligible(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	sede := domain.Sede(c.Query("sede"))
	if sede == "" {
		sede = principal.User.Sede
	}
	technicians, err := h.assignments.EligibleTechnicians(c.Context(), principal.User, sede)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(technicians))
	for _, technician := range technicians {
		items = append(items, dto.TechnicianResponse{
			ID:       technician.ID,
			FullName: technician.FullName,
			Sede:     technician.Sede,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Status GET /technicians/status.
func (h *TechniciansHandler) Status(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	statuses, err := h.assignments.TechnicianStatuses(c.Context(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, dto.TechnicianStatusResponse{
			ID:              status.ID,
			FullName:        status.FullName,
			Sede:            status.Sede,
			ActiveIncidents: status.ActiveIncidents,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Ratings GET /technicians/:id/ratings.
func (h *TechniciansHandler) Ratings(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	rated, err := h.ratings.ForTechnician(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.RatedIncidentResponse, 0, len(rated))
	for _, entry := range rated {
		items = append(items, dto.RatedIncidentResponse{
			ID:          entry.ID,
			IncidentID:  entry.IncidentID,
			Rating:      entry.Rating,
			Feedback:    entry.Feedback,
			RatedByName: entry.RatedByName,
			StationCode: entry.StationCode,
			FailureType: entry.FailureType,
			Description: entry.IncidentDescription,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// RatingAverage GET /technicians/:id/ratings/average.
func (h *TechniciansHandler) RatingAverage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	average, err := h.ratings.AverageForTechnician(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RatingAverageResponse{
		Average: average.Average,
		Total:   average.Total,
	}})
}

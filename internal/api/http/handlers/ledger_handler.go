package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/api/dto"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/service"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// LedgerHandler exposes the global activity ledger.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// List GET /ledger.
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	limit := parsePositiveInt(c.Query("limit"), 50)
	offset := parsePositiveInt(c.Query("offset"), 0)

	entries, err := h.ledger.Global(c.Context(), principal.User, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.LedgerEntryResponse{
			ID:          entry.ID,
			IncidentID:  entry.IncidentID,
			UserID:      entry.UserID,
			UserName:    entry.UserName,
			UserRole:    entry.UserRole,
			StationCode: entry.StationCode,
			Action:      entry.Action,
			Details:     entry.Details,
			Timestamp:   entry.Timestamp,
		})
	}
	return c.JSON(fiber.Map{"data": items, "limit": limit, "offset": offset})
}

// Stats GET /ledger/stats.
func (h *LedgerHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	stats, err := h.ledger.Stats(c.Context(), principal.User)
	if err != nil {
		return err
	}

	response := dto.LedgerStatsResponse{
		TotalEntries:      stats.TotalEntries,
		DistinctIncidents: stats.DistinctIncidents,
		DistinctActors:    stats.DistinctActors,
	}
	for _, actor := range stats.ByActor {
		response.ByActor = append(response.ByActor, dto.ActorActivityResponse{
			UserID:   actor.UserID,
			UserName: actor.UserName,
			Entries:  actor.Entries,
		})
	}
	for _, action := range stats.ByAction {
		response.ByAction = append(response.ByAction, dto.ActionActivityResponse{
			Action:  action.Action,
			Entries: action.Entries,
		})
	}
	for _, day := range stats.Last7Days {
		response.Last7Days = append(response.Last7Days, dto.DailyActivityResponse{
			Day:     day.Day.Format("2006-01-02"),
			Entries: day.Entries,
		})
	}
	return c.JSON(fiber.Map{"data": response})
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/api/http/handlers"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Incidents      *handlers.IncidentsHandler
	Technicians    *handlers.TechniciansHandler
	Ledger         *handlers.LedgerHandler
	Alerts         *handlers.AlertsHandler
	Presence       *handlers.PresenceHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Users.Login)

	api := app.Group("", cfg.AuthMiddleware.Handle)
	api.Get("/auth/me", cfg.Users.Me)

	incidents := api.Group("/incidents")
	incidents.Post("", auth.RequireAction(authz.ActionCreate), cfg.Incidents.Create)
	incidents.Get("", cfg.Incidents.List)
	incidents.Get("/mine", cfg.Incidents.ListMine)
	incidents.Get("/reported", cfg.Incidents.ListReported)
	incidents.Get("/pending", cfg.Incidents.ListByStatus(domain.StatusPending))
	incidents.Get("/supervision", cfg.Incidents.ListByStatus(domain.StatusInSupervision))
	incidents.Get("/returned", cfg.Incidents.ListByStatus(domain.StatusReturned))
	incidents.Get("/approved", cfg.Incidents.ListByStatus(domain.StatusApproved))
	incidents.Get("/:id", cfg.Incidents.Get)
	incidents.Get("/:id/history", cfg.Incidents.History)
	incidents.Get("/:id/attachments", cfg.Incidents.ListAttachments)
	incidents.Post("/:id/attachments", cfg.Incidents.AddAttachment)
	incidents.Put("/:id/assign", auth.RequireAction(authz.ActionAssign), cfg.Incidents.Assign)
	incidents.Put("/:id/reassign", auth.RequireAction(authz.ActionReassign), cfg.Incidents.Reassign)
	incidents.Put("/:id/resolve", auth.RequireAction(authz.ActionResolve), cfg.Incidents.Resolve)
	incidents.Put("/:id/approve", auth.RequireAction(authz.ActionApprove), cfg.Incidents.Approve)
	incidents.Put("/:id/reject", auth.RequireAction(authz.ActionReject), cfg.Incidents.Reject)
	incidents.Put("/:id/return", auth.RequireAction(authz.ActionReturn), cfg.Incidents.Return)
	incidents.Put("/:id/correct", auth.RequireAction(authz.ActionCorrect), cfg.Incidents.Correct)

	technicians := api.Group("/technicians")
	technicians.Get("/eligible", cfg.Technicians.Eligible)
	technicians.Get("/status", auth.RequireRole(domain.RoleAdmin), cfg.Technicians.Status)
	technicians.Get("/:id/ratings", cfg.Technicians.Ratings)
	technicians.Get("/:id/ratings/average", cfg.Technicians.RatingAverage)

	api.Get("/stats/by-sede", auth.RequireAction(authz.ActionViewStats), cfg.Incidents.StatsBySede)

	ledger := api.Group("/ledger", auth.RequireAction(authz.ActionViewLedger))
	ledger.Get("", cfg.Ledger.List)
	ledger.Get("/stats", cfg.Ledger.Stats)

	alerts := api.Group("/alerts")
	alerts.Post("/supervision", auth.RequireAction(authz.ActionSendAlerts), cfg.Alerts.Send)
	alerts.Get("", cfg.Alerts.Mine)
	alerts.Put("/:id/read", cfg.Alerts.MarkRead)
	alerts.Delete("/:id", cfg.Alerts.Dismiss)

	presence := api.Group("/presence")
	presence.Put("", cfg.Presence.Connect)
	presence.Delete("", cfg.Presence.Disconnect)
	presence.Get("/:id", cfg.Presence.Check)
}

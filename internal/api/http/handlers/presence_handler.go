package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soporte-bpo/incident-service/internal/auth"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// PresenceRegistry is the slice of the realtime registry the HTTP surface
// needs: connection lifecycle plus the availability check.
type PresenceRegistry interface {
	Register(ctx context.Context, userID, connID string) error
	Deregister(ctx context.Context, userID, connID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// PresenceHandler exposes the connection heartbeat clients use to appear in
// the online roster, and the availability check for other users.
type PresenceHandler struct {
	registry PresenceRegistry
}

// NewPresenceHandler constructs the handler.
func NewPresenceHandler(registry PresenceRegistry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

type presenceRequest struct {
	ConnID string `json:"conn_id"`
}

// Connect PUT /presence. Registers a live connection for the caller; the
// client repeats the call within the registry TTL to stay online. A missing
// conn_id gets one generated, which the client echoes on later heartbeats.
func (h *PresenceHandler) Connect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req presenceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
	}
	if req.ConnID == "" {
		req.ConnID = uuid.NewString()
	}
	if err := h.registry.Register(c.Context(), principal.User.ID, req.ConnID); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"conn_id": req.ConnID, "online": true}})
}

// Disconnect DELETE /presence. Drops one connection; the caller goes
// offline once the last one is gone.
func (h *PresenceHandler) Disconnect(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req presenceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
	}
	if req.ConnID == "" {
		req.ConnID = c.Query("conn_id")
	}
	if req.ConnID == "" {
		return apperrors.NewValidationError("conn_id is required", nil)
	}
	if err := h.registry.Deregister(c.Context(), principal.User.ID, req.ConnID); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"conn_id": req.ConnID, "online": false}})
}

// Check GET /presence/:id reports whether a user holds a live connection.
func (h *PresenceHandler) Check(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}
	userID := c.Params("id")
	online, err := h.registry.IsOnline(c.Context(), userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_id": userID, "online": online}})
}

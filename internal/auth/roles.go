package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// RequireRole allows only the listed roles through.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, ok := allowed[principal.User.Role]; !ok {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAction gates a route on the capability table instead of an
// explicit role list.
func RequireAction(action authz.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !authz.Can(principal.User.Role, action) {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

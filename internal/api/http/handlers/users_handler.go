package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/api/dto"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/service"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// UsersHandler covers authentication and the caller's own profile.
type UsersHandler struct {
	authService *service.AuthService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{authService: authService}
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	user, token, expiresAt, err := h.authService.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      profileResponse(user),
	}})
}

// Me GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	return c.JSON(fiber.Map{"data": profileResponse(principal.User)})
}

func profileResponse(user *domain.User) dto.UserProfile {
	return dto.UserProfile{
		ID:           user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Role:         user.Role,
		Sede:         user.Sede,
		Departamento: user.Departamento,
	}
}

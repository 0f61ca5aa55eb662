package dto

import (
	"time"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the token and the authenticated profile.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserProfile `json:"user"`
}

// UserProfile response.
type UserProfile struct {
	ID           string              `json:"id"`
	Username     string              `json:"username"`
	FullName     string              `json:"full_name"`
	Role         domain.Role         `json:"role"`
	Sede         domain.Sede         `json:"sede,omitempty"`
	Departamento domain.Departamento `json:"departamento,omitempty"`
}

// TechnicianResponse is a technician eligible for assignment.
type TechnicianResponse struct {
	ID       string      `json:"id"`
	FullName string      `json:"full_name"`
	Sede     domain.Sede `json:"sede"`
}

// TechnicianStatusResponse is a technician's current load.
type TechnicianStatusResponse struct {
	ID              string      `json:"id"`
	FullName        string      `json:"full_name"`
	Sede            domain.Sede `json:"sede"`
	ActiveIncidents int         `json:"active_incidents"`
}

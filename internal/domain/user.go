package domain

import "time"

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleSupervisor        Role = "supervisor"
	RoleCoordinador       Role = "coordinador"
	RoleJefeOperaciones   Role = "jefe_operaciones"
	RoleTechnician        Role = "technician"
	RoleAdministrativo    Role = "administrativo"
	RoleGestorActivos     Role = "gestorActivos"
	RoleTecnicoInventario Role = "tecnicoInventario"
	RoleAnonimo           Role = "anonimo"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleCoordinador, RoleJefeOperaciones,
		RoleTechnician, RoleAdministrativo, RoleGestorActivos,
		RoleTecnicoInventario, RoleAnonimo:
		return true
	}
	return false
}

// User is an authenticated actor. Sede and Departamento may be empty
// depending on the role (an admin is site-less, a technician has no
// department).
type User struct {
	ID           string
	Username     string
	FullName     string
	PasswordHash string
	Role         Role
	Sede         Sede
	Departamento Departamento
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

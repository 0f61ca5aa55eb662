package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soporte-bpo/incident-service/internal/domain"
)

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role    domain.Role
		action  Action
		allowed bool
	}{
		{domain.RoleCoordinador, ActionCreate, true},
		{domain.RoleAdministrativo, ActionCreate, true},
		{domain.RoleTechnician, ActionCreate, false},
		{domain.RoleGestorActivos, ActionCreate, false},

		{domain.RoleTechnician, ActionAssign, true},
		{domain.RoleAdmin, ActionAssign, true},
		{domain.RoleSupervisor, ActionAssign, false},

		{domain.RoleAdmin, ActionReassign, true},
		{domain.RoleTechnician, ActionReassign, false},
		{domain.RoleSupervisor, ActionReassign, false},

		{domain.RoleTechnician, ActionResolve, true},
		{domain.RoleTechnician, ActionReturn, true},
		{domain.RoleAdmin, ActionResolve, false},

		{domain.RoleSupervisor, ActionApprove, true},
		{domain.RoleJefeOperaciones, ActionReject, true},
		{domain.RoleTechnician, ActionApprove, false},
		{domain.RoleAdministrativo, ActionApprove, false},

		{domain.RoleAdmin, ActionViewLedger, true},
		{domain.RoleSupervisor, ActionViewLedger, false},
		{domain.RoleAdmin, ActionSendAlerts, true},
		{domain.RoleAnonimo, ActionCreate, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, Can(tc.role, tc.action),
			"%s %s", tc.role, tc.action)
	}
}

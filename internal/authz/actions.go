package authz

import "github.com/soporte-bpo/incident-service/internal/domain"

// Action names a role-gated operation on incidents.
type Action string

const (
	ActionCreate     Action = "create"
	ActionAssign     Action = "assign"
	ActionReassign   Action = "reassign"
	ActionResolve    Action = "resolve"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionReturn     Action = "return"
	ActionCorrect    Action = "correct"
	ActionViewStats  Action = "view_stats"
	ActionViewLedger Action = "view_ledger"
	ActionSendAlerts Action = "send_alerts"
)

// capabilities is the single authorization table keyed by action. Scope
// rules (own site, own reports, assigned technician only) live in the
// visibility resolver and the transition guards; this table answers only
// "may this role ever attempt the action".
var capabilities = map[Action][]domain.Role{
	ActionCreate: {
		domain.RoleAdmin, domain.RoleSupervisor, domain.RoleCoordinador,
		domain.RoleJefeOperaciones, domain.RoleAdministrativo,
	},
	ActionAssign:   {domain.RoleAdmin, domain.RoleTechnician},
	ActionReassign: {domain.RoleAdmin},
	ActionResolve:  {domain.RoleTechnician},
	ActionApprove: {
		domain.RoleAdmin, domain.RoleSupervisor, domain.RoleCoordinador,
		domain.RoleJefeOperaciones,
	},
	ActionReject: {
		domain.RoleAdmin, domain.RoleSupervisor, domain.RoleCoordinador,
		domain.RoleJefeOperaciones,
	},
	ActionReturn: {domain.RoleTechnician},
	ActionCorrect: {
		domain.RoleAdmin, domain.RoleSupervisor, domain.RoleCoordinador,
		domain.RoleJefeOperaciones, domain.RoleAdministrativo,
	},
	ActionViewStats:  {domain.RoleAdmin},
	ActionViewLedger: {domain.RoleAdmin},
	ActionSendAlerts: {domain.RoleAdmin},
}

// Can reports whether the role is ever allowed to attempt the action.
func Can(role domain.Role, action Action) bool {
	for _, allowed := range capabilities[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

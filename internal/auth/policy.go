package auth

import (
	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/domain"
)

// Action is an operation gated by the access policy
type Action string

const (
	ActionProjectListAll Action = "project:list_all"
	ActionProjectCreate  Action = "project:create"
	ActionProjectUpdate  Action = "project:update"
	ActionProjectDelete  Action = "project:delete"

	ActionStatusCreate   Action = "status:create"
	ActionStatusUpdate   Action = "status:update"
	ActionStatusDelete   Action = "status:delete"
	ActionStatusBaseline Action = "status:save_baseline"
	ActionStatusFinal    Action = "status:save_final"
	ActionStatusClone    Action = "status:clone_previous"

	ActionResponsibilityCreate Action = "responsibility:create"
	ActionResponsibilityUpdate Action = "responsibility:update"
	ActionResponsibilityDelete Action = "responsibility:delete"

	ActionEscalationListAll Action = "escalation:list_all"
	ActionEscalationCreate  Action = "escalation:create"
	ActionEscalationResolve Action = "escalation:resolve"

	ActionUserUpdateSelf Action = "user:update_self"
	ActionUserManage     Action = "user:manage"

	ActionAuditRead Action = "audit:read"
)

// Relationship is the caller's relation to the object being acted on
type Relationship int

const (
	RelationNone Relationship = iota
	// RelationAssigned means the caller is the responsible or the deputy
	RelationAssigned
	// RelationSelf means the object is the caller's own account
	RelationSelf
)

// Decision is the outcome of a policy lookup
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

type rule struct {
	roles     []domain.Role
	relations []Relationship
}

var (
	managers    = []domain.Role{domain.RoleAdministrator, domain.RoleProjectManager}
	assigned    = []Relationship{RelationAssigned}
	adminOnly   = []domain.Role{domain.RoleAdministrator}
	escalations = []domain.Role{domain.RoleEscalationManager, domain.RoleAdministrator}
)

// policy is the single source of truth for every mutating gate. A request is
// allowed when the caller's role is listed or their relationship to the
// object is listed.
var policy = map[Action]rule{
	ActionProjectListAll: {roles: managers},
	ActionProjectCreate:  {roles: managers},
	ActionProjectUpdate:  {roles: managers},
	ActionProjectDelete:  {roles: managers},

	ActionStatusCreate:   {roles: managers},
	ActionStatusUpdate:   {roles: managers},
	ActionStatusDelete:   {roles: managers},
	ActionStatusBaseline: {roles: managers},
	ActionStatusFinal:    {roles: managers},
	ActionStatusClone:    {roles: managers},

	ActionResponsibilityCreate: {roles: managers},
	ActionResponsibilityUpdate: {roles: managers, relations: assigned},
	ActionResponsibilityDelete: {roles: managers},

	ActionEscalationListAll: {roles: []domain.Role{domain.RoleAdministrator, domain.RoleProjectManager, domain.RoleEscalationManager}},
	ActionEscalationCreate: {
		roles:     []domain.Role{domain.RoleAdministrator, domain.RoleProjectManager, domain.RoleEscalationManager},
		relations: assigned,
	},
	ActionEscalationResolve: {roles: escalations},

	ActionUserUpdateSelf: {roles: adminOnly, relations: []Relationship{RelationSelf}},
	ActionUserManage:     {roles: adminOnly},

	ActionAuditRead: {roles: adminOnly},
}

// Permission looks up whether role, holding rel to the target, may perform
// action. Unknown actions and roles are denied.
func Permission(role domain.Role, action Action, rel Relationship) Decision {
	r, ok := policy[action]
	if !ok || !role.IsValid() {
		return Deny
	}
	for _, allowed := range r.relations {
		if rel != RelationNone && rel == allowed {
			return Allow
		}
	}
	for _, allowed := range r.roles {
		if role == allowed {
			return Allow
		}
	}
	return Deny
}

// RelationToResponsibility derives the caller's relation to a responsibility
func RelationToResponsibility(userID uuid.UUID, resp *domain.Responsibility) Relationship {
	if resp.IsAssignedTo(userID) {
		return RelationAssigned
	}
	return RelationNone
}

// RelationToUser derives the caller's relation to a user account
func RelationToUser(userID, targetID uuid.UUID) Relationship {
	if userID == targetID {
		return RelationSelf
	}
	return RelationNone
}

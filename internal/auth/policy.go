package auth

// Action is a mutation a role may or may not perform.
type Action string

const (
	ActionAssetWrite       Action = "asset.write"
	ActionAlertAcknowledge Action = "alert.acknowledge"
	ActionAlertResolve     Action = "alert.resolve"
	ActionUserManage       Action = "user.manage"
)

// Policy maps actions to the roles allowed to perform them.
type Policy struct {
	rules map[Action][]Role
}

// NewDefaultPolicy builds the role table of the dashboard.
func NewDefaultPolicy() Policy {
	return Policy{rules: map[Action][]Role{
		ActionAssetWrite:       {RoleAdmin, RoleManager},
		ActionAlertAcknowledge: {RoleAdmin, RoleManager, RoleFieldWorker},
		ActionAlertResolve:     {RoleAdmin, RoleManager},
		ActionUserManage:       {RoleAdmin},
	}}
}

// Allows reports whether role may perform action. Unknown actions are denied.
func (p Policy) Allows(role Role, action Action) bool {
	allowed, ok := p.rules[action]
	if !ok {
		return false
	}
	return RoleIn(role, allowed)
}

// Check returns ErrForbidden when role may not perform action.
func (p Policy) Check(role Role, action Action) error {
	if role == "" {
		return ErrUnauthorized
	}
	if !p.Allows(role, action) {
		return ErrForbidden
	}
	return nil
}

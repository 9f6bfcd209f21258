package auth

import "strings"

// Role represents a user role.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleFieldWorker Role = "field_worker"
)

// legacyFieldWorker is the Dutch role name older backend records still carry.
const legacyFieldWorker = "veldwerker"

// AllRoles lists every role in rank order.
var AllRoles = []Role{RoleFieldWorker, RoleManager, RoleAdmin}

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == legacyFieldWorker {
		return RoleFieldWorker, true
	}
	switch Role(value) {
	case RoleAdmin, RoleManager, RoleFieldWorker:
		return Role(value), true
	default:
		return "", false
	}
}

// Label returns the display label of a role.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Beheerder"
	case RoleManager:
		return "Manager"
	case RoleFieldWorker:
		return "Veldwerker"
	default:
		return string(r)
	}
}

// RoleIn reports whether role is a member of allowed. An empty set admits every valid role.
func RoleIn(role Role, allowed []Role) bool {
	if _, ok := NormalizeRole(string(role)); !ok {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

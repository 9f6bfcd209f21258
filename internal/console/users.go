package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/observability/metrics"
)

const (
	roleChangedMessage = "Rol bijgewerkt"
	roleFailedMessage  = "Rol wijzigen mislukt"
)

// FilterUsers matches query against name and email, case-insensitively.
func FilterUsers(list []deltaapi.User, query string) []deltaapi.User {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]deltaapi.User, 0, len(list))
	for _, user := range list {
		if q == "" || strings.Contains(strings.ToLower(user.Name), q) || strings.Contains(strings.ToLower(user.Email), q) {
			out = append(out, user)
		}
	}
	return out
}

// CountRoles tallies users per normalized role. Users with an unknown role are not counted.
func CountRoles(list []deltaapi.User) map[auth.Role]int {
	counts := make(map[auth.Role]int, len(auth.AllRoles))
	for _, role := range auth.AllRoles {
		counts[role] = 0
	}
	for _, user := range list {
		if role, ok := auth.NormalizeRole(user.Role); ok {
			counts[role]++
		}
	}
	return counts
}

// ChangeRole assigns role to userID. Only admins may do this; the caller's role is read
// from ctx. The refetched user list replaces the display.
func (m *Mount) ChangeRole(ctx context.Context, userID, role string) error {
	if !m.has(resUsers) {
		return ErrUnsupported
	}
	err := m.changeRole(ctx, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrUnauthorized):
			m.console.notices.Error("Onvoldoende rechten voor deze actie")
		case errors.Is(err, auth.ErrInvalidRole):
			m.console.notices.Error(err.Error())
		default:
			m.console.notices.Error(deltaapi.DetailOr(err, roleFailedMessage))
		}
		return err
	}
	m.console.notices.Success(roleChangedMessage)
	return nil
}

func (m *Mount) changeRole(ctx context.Context, userID, role string) error {
	if userID == "" {
		return errors.New("console: user id required")
	}
	normalized, ok := auth.NormalizeRole(role)
	if !ok {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, role)
	}
	if err := m.console.policy.Check(auth.RoleFromContext(ctx), auth.ActionUserManage); err != nil {
		return err
	}
	err := m.console.backend.UpdateUserRole(ctx, userID, string(normalized))
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	meta, _ := json.Marshal(map[string]string{"role": string(normalized)})
	m.console.recorder.Record(ctx, audit.Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       audit.ActionUserRoleChange,
		ResourceType: "user",
		ResourceID:   userID,
		Result:       result,
		Metadata:     meta,
	})
	if err != nil {
		return err
	}
	list, err := m.console.backend.ListUsers(ctx)
	if err != nil {
		m.console.logger.Printf("users refetch error: %v", err)
		return nil
	}
	m.users.Store(list)
	return nil
}

package rbac

import "fmt"

const (
	PermissionReadRoutine   = "routine:read"
	PermissionWriteRoutine  = "routine:write"
	PermissionResetRoutines = "routine:reset"

	PermissionReadCompletion   = "completion:read"
	PermissionToggleCompletion = "completion:toggle"
	PermissionClearHistory     = "history:clear"

	PermissionReadAnalytics = "analytics:read"
)

const (
	RoleUser   = "user"
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

var readOnly = []string{
	PermissionReadRoutine,
	PermissionReadCompletion,
	PermissionReadAnalytics,
}

var rolePermissions = map[string][]string{
	RoleViewer: readOnly,
	RoleUser: append(append([]string{}, readOnly...),
		PermissionWriteRoutine,
		PermissionResetRoutines,
		PermissionToggleCompletion,
		PermissionClearHistory,
	),
	RoleAdmin: append(append([]string{}, readOnly...),
		PermissionWriteRoutine,
		PermissionResetRoutines,
		PermissionToggleCompletion,
		PermissionClearHistory,
	),
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission checks the role carried in the caller's token.
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

func CheckPermission(userID int, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("insufficient permissions: role %q lacks %s", e.Role, e.Permission)
}

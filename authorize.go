package authkit

import "github.com/northmart/authkit/session"

// Authorize evaluates a session snapshot against role and permission
// requirements. A nil snapshot always denies. An empty requiredRoles slice
// means any role passes; otherwise the snapshot's role must be one of them.
// Every entry in requiredPermissions must be present in the snapshot.
func Authorize(snap *session.Snapshot, requiredRoles, requiredPermissions []string) bool {
	if snap == nil {
		return false
	}

	if len(requiredRoles) > 0 {
		matched := false
		for _, role := range requiredRoles {
			if snap.Role == role {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, perm := range requiredPermissions {
		if !snap.HasPermission(perm) {
			return false
		}
	}
	return true
}

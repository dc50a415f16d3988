package session

import "time"

// Snapshot is the cached materialization of an authenticated user: identity
// fields plus the role and permission strings resolved at creation time.
// Permission queries answer from this snapshot and never fall back to the
// relational store, so a role change is only visible after the session is
// recreated — a staleness window bounded by the session TTL.
type Snapshot struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	SessionID   string    `json:"sessionId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasPermission reports whether the snapshot grants the given
// resource:action permission.
func (s *Snapshot) HasPermission(permission string) bool {
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

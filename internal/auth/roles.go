package auth

import "github.com/University-Of-Livingstonia/ems/internal/domain"

// Landing pages per role. This is the single canonical mapping: the
// post-login redirect, the misroute redirect, and the logout return path
// all derive from it.
const (
	LoginPath            = "/login"
	UserLandingPath      = "/dashboard"
	OrganizerLandingPath = "/organizer/dashboard"
	AdminLandingPath     = "/admin/dashboard"
)

// LandingPath maps a role to the dashboard it lands on after login.
// Unknown roles fall back to the general dashboard.
func LandingPath(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return AdminLandingPath
	case domain.RoleOrganizer:
		return OrganizerLandingPath
	default:
		return UserLandingPath
	}
}

// RoleAllowed reports whether role is one of the roles a page permits.
// With no allowed roles the page only requires a login.
func RoleAllowed(role domain.Role, allowed ...domain.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

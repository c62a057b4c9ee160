package session

import "trustid/internal/domain"

// LoginPath is the login surface unauthenticated users are sent to.
const LoginPath = "/login"

// Decision is the outcome of a route guard check.
type Decision struct {
	Allowed  bool
	Redirect string
}

// RoleReader is what a route guard needs from the session.
type RoleReader interface {
	CurrentRole() domain.Role
}

// Guard decides access to a surface restricted to required. Unauthenticated
// callers go to the login surface; a role mismatch sends the caller to their
// own home.
func Guard(current, required domain.Role) Decision {
	switch {
	case current == domain.RoleNone:
		return Decision{Redirect: LoginPath}
	case required != domain.RoleNone && current != required:
		return Decision{Redirect: current.Home()}
	default:
		return Decision{Allowed: true}
	}
}

// GuardAnonymous decides access to surfaces meant for signed-out users, such as
// the login page: an authenticated caller is sent home.
func GuardAnonymous(current domain.Role) Decision {
	if current == domain.RoleNone {
		return Decision{Allowed: true}
	}
	return Decision{Redirect: current.Home()}
}

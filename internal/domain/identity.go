package domain

import "strings"

// Role is the actor role carried by an authenticated identity.
type Role string

const (
	RoleNone     Role = ""
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
)

// ParseRole maps a wire value onto a known role. Unknown values yield RoleNone
// and false.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return RoleNone, false
	}
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Home is the landing route for the role.
func (r Role) Home() string {
	switch r {
	case RoleCustomer:
		return "/dashboard"
	case RoleEmployee:
		return "/admin"
	default:
		return "/login"
	}
}

// Identity is the principal issued by the identity provider. It is immutable for
// the lifetime of a session; both authentication paths normalise to this shape.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// Valid reports whether the identity carries every field a session requires.
// DisplayName is optional.
func (i Identity) Valid() bool {
	if strings.TrimSpace(i.ID) == "" || strings.TrimSpace(i.Email) == "" {
		return false
	}
	_, ok := ParseRole(string(i.Role))
	return ok
}

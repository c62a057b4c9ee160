package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trustid/internal/domain"
)

func TestGuard(t *testing.T) {
	tests := []struct {
		name     string
		current  domain.Role
		required domain.Role
		want     Decision
	}{
		{"unauthenticated to customer surface", domain.RoleNone, domain.RoleCustomer, Decision{Redirect: "/login"}},
		{"unauthenticated to employee surface", domain.RoleNone, domain.RoleEmployee, Decision{Redirect: "/login"}},
		{"customer on customer surface", domain.RoleCustomer, domain.RoleCustomer, Decision{Allowed: true}},
		{"employee on employee surface", domain.RoleEmployee, domain.RoleEmployee, Decision{Allowed: true}},
		{"employee on customer surface", domain.RoleEmployee, domain.RoleCustomer, Decision{Redirect: "/admin"}},
		{"customer on employee surface", domain.RoleCustomer, domain.RoleEmployee, Decision{Redirect: "/dashboard"}},
		{"any authenticated role when none required", domain.RoleEmployee, domain.RoleNone, Decision{Allowed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.current, tt.required))
		})
	}
}

func TestGuardAnonymous(t *testing.T) {
	assert.Equal(t, Decision{Allowed: true}, GuardAnonymous(domain.RoleNone))
	assert.Equal(t, Decision{Redirect: "/dashboard"}, GuardAnonymous(domain.RoleCustomer))
	assert.Equal(t, Decision{Redirect: "/admin"}, GuardAnonymous(domain.RoleEmployee))
}

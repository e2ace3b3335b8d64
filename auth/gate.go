// Package auth holds the access gate: the predicate deciding whether an
// actor completed onboarding and may create or join parties.
package auth

import (
	"context"

	"party-lab/domain"
	"party-lab/platform"
)

// RoleGate authorizes actors holding the configured verification role.
// The engine only sees the contract.Gate interface, so the credential's
// representation stays out of the core.
type RoleGate struct {
	gateway platform.Gateway
	role    string
}

func NewRoleGate(gateway platform.Gateway, role string) *RoleGate {
	return &RoleGate{gateway: gateway, role: role}
}

func (g *RoleGate) IsAuthorized(ctx context.Context, actor domain.UserID) (bool, error) {
	return g.gateway.HasRole(ctx, actor, g.role)
}

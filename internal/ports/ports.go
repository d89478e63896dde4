package ports

import (
	"context"

	"certflow/internal/domain"
)

// RoleResolver maps an authenticated principal to its roles and gates
// operations on them. Authorize failures are a hard boundary, not a hint.
type RoleResolver interface {
	Resolve(ctx context.Context, principalID string) (domain.Principal, error)
	Authorize(ctx context.Context, principalID string, allowed ...domain.Role) (domain.Principal, error)
	AuthorizeCap(ctx context.Context, principalID string, cap domain.Capability) (domain.Principal, error)
	SwitchActiveRole(ctx context.Context, principalID string, newRole domain.Role) error
}

// Authenticator turns credentials into sessions and sessions back into
// principal ids.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (token string, principal domain.Principal, err error)
	ParseToken(token string) (principalID string, err error)
}

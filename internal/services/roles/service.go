// Package roles resolves an authenticated principal to its granted roles and
// active role, and gates workflow operations on them.
package roles

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

// Service is the role resolver. Resolved principals are cached per id; a
// role switch invalidates the entry so there is no stale-role window.
type Service struct {
	profiles ports.ProfileRepository
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string]domain.Principal
}

func New(profiles ports.ProfileRepository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		log:      log,
		cache:    make(map[string]domain.Principal),
	}
}

// Resolve returns the principal's granted roles and active role. A principal
// with no profile row gets the default client role.
func (s *Service) Resolve(ctx context.Context, principalID string) (domain.Principal, error) {
	if principalID == "" {
		return domain.Principal{}, apperr.Unauthenticated("no principal")
	}

	s.mu.RLock()
	cached, ok := s.cache[principalID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	profile, found, err := s.profiles.GetProfile(ctx, principalID)
	if err != nil {
		return domain.Principal{}, apperr.Remote("load profile", err)
	}
	principal := profile.Principal
	if !found {
		principal = domain.Principal{
			ID:         principalID,
			Granted:    []domain.Role{domain.RoleClient},
			ActiveRole: domain.RoleClient,
		}
	}
	if principal.ActiveRole == "" {
		principal.ActiveRole = domain.DefaultRole(principal.Granted)
	}

	s.mu.Lock()
	s.cache[principalID] = principal
	s.mu.Unlock()
	return principal, nil
}

// Authorize fails with Forbidden unless the principal's active role is in
// allowed. An empty allowed list admits no one.
func (s *Service) Authorize(ctx context.Context, principalID string, allowed ...domain.Role) (domain.Principal, error) {
	principal, err := s.Resolve(ctx, principalID)
	if err != nil {
		return domain.Principal{}, err
	}
	for _, role := range allowed {
		if principal.ActiveRole == role {
			return principal, nil
		}
	}
	return domain.Principal{}, apperr.Forbidden(string(principal.ActiveRole), "perform this operation")
}

// AuthorizeCap fails with Forbidden unless the active role grants cap.
func (s *Service) AuthorizeCap(ctx context.Context, principalID string, cap domain.Capability) (domain.Principal, error) {
	principal, err := s.Resolve(ctx, principalID)
	if err != nil {
		return domain.Principal{}, err
	}
	if !principal.ActiveRole.Can(cap) {
		return domain.Principal{}, apperr.Forbidden(string(principal.ActiveRole), string(cap))
	}
	return principal, nil
}

// SwitchActiveRole changes the role the principal operates as. The new role
// must be among the granted roles. The cache entry is dropped before
// returning so subsequent reads see the new role immediately.
func (s *Service) SwitchActiveRole(ctx context.Context, principalID string, newRole domain.Role) error {
	if principalID == "" {
		return apperr.Unauthenticated("no principal")
	}
	if !newRole.Valid() {
		return apperr.Validationf("unknown role %q", newRole)
	}

	profile, found, err := s.profiles.GetProfile(ctx, principalID)
	if err != nil {
		return apperr.Remote("load profile", err)
	}
	if !found {
		return apperr.NotFound("profile", principalID)
	}
	if !profile.Principal.HasRole(newRole) {
		return apperr.Forbidden(string(newRole), "be assumed: role not granted")
	}

	if err := s.profiles.SetActiveRole(ctx, principalID, newRole); err != nil {
		return apperr.Remote("set active role", err)
	}
	s.invalidate(principalID)
	s.log.Info("active role switched",
		zap.String("principal_id", principalID),
		zap.String("role", string(newRole)))
	return nil
}

func (s *Service) invalidate(principalID string) {
	s.mu.Lock()
	delete(s.cache, principalID)
	s.mu.Unlock()
}

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// PermissionChecker is the gate consumed by the approval and entity services.
type PermissionChecker interface {
	CanAct(ctx context.Context, role string, module model.Module, permission string) (bool, error)
}

// PermissionService resolves role x module permission checks against the
// matrix, with the admin role as a wildcard. Matrix reads are cached with a
// short TTL; the settings service clears the cache on every swap.
type PermissionService interface {
	PermissionChecker
	GetRoles(ctx context.Context) ([]model.Role, error)
	GetMatrix(ctx context.Context) ([]model.RoleModulePermission, error)
	RoleExists(ctx context.Context, role string) (bool, error)
	ClearCache()
}

type permCacheEntry struct {
	perm      *model.RoleModulePermission // nil means no row for (role, module)
	expiresAt time.Time
}

type permissionService struct {
	repo     repository.PermissionRepository
	log      zerolog.Logger
	cache    sync.Map // "role|module" -> permCacheEntry
	cacheTTL time.Duration
}

func NewPermissionService(repo repository.PermissionRepository, log zerolog.Logger) PermissionService {
	return &permissionService{
		repo:     repo,
		log:      log,
		cacheTTL: 5 * time.Minute,
	}
}

func (s *permissionService) CanAct(ctx context.Context, role string, module model.Module, permission string) (bool, error) {
	if role == model.AdminRole {
		return true, nil
	}

	key := role + "|" + string(module)
	if entry, ok := s.cache.Load(key); ok {
		cached := entry.(permCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.perm != nil && cached.perm.Allows(permission), nil
		}
	}

	perm, err := s.repo.FindRoleModule(ctx, role, module)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	s.cache.Store(key, permCacheEntry{
		perm:      perm,
		expiresAt: time.Now().Add(s.cacheTTL),
	})

	return perm != nil && perm.Allows(permission), nil
}

func (s *permissionService) GetRoles(ctx context.Context) ([]model.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *permissionService) GetMatrix(ctx context.Context) ([]model.RoleModulePermission, error) {
	return s.repo.ListMatrix(ctx)
}

func (s *permissionService) RoleExists(ctx context.Context, role string) (bool, error) {
	if role == model.AdminRole {
		return true, nil
	}
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == role {
			return true, nil
		}
	}
	return false, nil
}

// ClearCache drops every cached matrix row. Called after any configuration
// swap so no stale grant survives the edit.
func (s *permissionService) ClearCache() {
	s.cache.Range(func(key, _ interface{}) bool {
		s.cache.Delete(key)
		return true
	})
	s.log.Debug().Msg("permission cache cleared")
}

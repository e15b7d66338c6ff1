package service

import (
	"context"
	"sync"
	"time"

	"github.com/ayxworxfr/go_authcore/internal/config"
	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/pkg/logger"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrAuthorizationDenied 调用方不具备所需权限
var ErrAuthorizationDenied = errors.New("authorization denied")

// DeptFilter 数据可见范围过滤器
// Unrestricted为true时不限制；否则按DeptIDs限定部门，
// SelfOnly为true时退化为仅创建人本人的记录。
type DeptFilter struct {
	Unrestricted bool
	SelfOnly     bool
	Creator      string
	DeptIDs      []uint64
}

// resolveEntry 单个用户的权限解析缓存项
type resolveEntry struct {
	permissions []models.Permission
	expiresAt   time.Time
}

// AuthzService 授权服务 - 解析调用方权限与数据可见范围
type AuthzService struct {
	permSvc *PermissionService
	deptSvc *DepartmentService

	cacheTTL time.Duration
	mu       sync.RWMutex
	cache    map[uint64]resolveEntry // userID -> 解析结果
}

// NewAuthzService 创建授权服务实例
func NewAuthzService(permSvc *PermissionService, deptSvc *DepartmentService) *AuthzService {
	cacheTTL := config.NewAuthzConfig().CacheTTL
	if cfg := config.Get(); cfg != nil {
		cacheTTL = cfg.Authz.CacheTTL
	}
	ttl := time.Duration(cacheTTL) * time.Second
	svc := &AuthzService{
		permSvc:  permSvc,
		deptSvc:  deptSvc,
		cacheTTL: ttl,
		cache:    make(map[uint64]resolveEntry),
	}
	permSvc.bindAuthz(svc)
	return svc
}

// --------------------------- 权限解析 ---------------------------

// ResolvePermissions 解析调用方的有效权限并集
// 已禁用/软删除的权限和已禁用的角色不参与解析，结果按用户缓存。
func (s *AuthzService) ResolvePermissions(ctx context.Context, identity *models.CallerIdentity) ([]models.Permission, error) {
	if identity == nil {
		return nil, errors.Wrap(repository.ErrInvalidScope, "caller identity is required")
	}

	if s.cacheTTL > 0 {
		s.mu.RLock()
		entry, ok := s.cache[identity.UserID]
		s.mu.RUnlock()
		if ok && time.Now().Before(entry.expiresAt) {
			return entry.permissions, nil
		}
	}

	roles, err := s.resolveActiveRoles(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return []models.Permission{}, nil
	}

	roleIDs := lo.Map(roles, func(role models.Role, _ int) uint64 {
		return role.ID
	})
	permissions, err := s.permSvc.RetrievePermissionsByRoleIDs(ctx, roleIDs)
	if err != nil {
		logger.Error(ctx, "Failed to resolve permissions", zap.Error(err), zap.Uint64("user_id", identity.UserID))
		return nil, errors.Wrap(err, "failed to resolve permissions")
	}

	if s.cacheTTL > 0 {
		s.mu.Lock()
		s.cache[identity.UserID] = resolveEntry{
			permissions: permissions,
			expiresAt:   time.Now().Add(s.cacheTTL),
		}
		s.mu.Unlock()
	}

	return permissions, nil
}

// ResolvePermissionIDs 解析调用方的有效权限ID集合（去重）
func (s *AuthzService) ResolvePermissionIDs(ctx context.Context, identity *models.CallerIdentity) ([]uint64, error) {
	permissions, err := s.ResolvePermissions(ctx, identity)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Map(permissions, func(p models.Permission, _ int) uint64 {
		return p.ID
	})), nil
}

// RequirePermission 校验调用方具备指定权限标识，不具备返回 ErrAuthorizationDenied
func (s *AuthzService) RequirePermission(ctx context.Context, identity *models.CallerIdentity, perms string) error {
	permissions, err := s.ResolvePermissions(ctx, identity)
	if err != nil {
		return err
	}

	for _, permission := range permissions {
		if permission.Perms == perms {
			return nil
		}
	}

	logger.Warn(ctx, "Permission denied",
		zap.Uint64("user_id", identity.UserID),
		zap.String("perms", perms))
	return errors.Wrapf(ErrAuthorizationDenied, "missing permission %q", perms)
}

// --------------------------- 可见范围解析 ---------------------------

// ResolveDepartmentFilter 解析调用方的数据可见范围
// 按角色逐个解析后做最宽松合并：任一角色全部门可见则不限制；
// 部门集范围取并集；仅当全部角色都是"仅本人"时退化为本人过滤。
// 无任何启用角色时可见范围为空集。
func (s *AuthzService) ResolveDepartmentFilter(ctx context.Context, identity *models.CallerIdentity) (*DeptFilter, error) {
	if identity == nil {
		return nil, errors.Wrap(repository.ErrInvalidScope, "caller identity is required")
	}

	roles, err := s.resolveActiveRoles(ctx, identity)
	if err != nil {
		return nil, err
	}

	filter := &DeptFilter{Creator: identity.Username}
	selfOnlyCount := 0
	for _, role := range roles {
		scope, err := s.resolveRoleScope(ctx, &role, identity)
		if err != nil {
			return nil, err
		}
		if scope.Unrestricted {
			return &DeptFilter{Unrestricted: true}, nil
		}
		if scope.SelfOnly {
			selfOnlyCount++
			continue
		}
		filter.DeptIDs = append(filter.DeptIDs, scope.DeptIDs...)
	}

	filter.DeptIDs = lo.Uniq(filter.DeptIDs)
	if len(filter.DeptIDs) == 0 && selfOnlyCount > 0 {
		filter.SelfOnly = true
	}
	return filter, nil
}

// resolveRoleScope 解析单个角色的可见范围
func (s *AuthzService) resolveRoleScope(ctx context.Context, role *models.Role, identity *models.CallerIdentity) (*DeptFilter, error) {
	switch role.AccessLevel {
	case enums.AccessLevelAllDept:
		return &DeptFilter{Unrestricted: true}, nil

	case enums.AccessLevelTargetDept:
		// 未配置目标部门时可见范围为空集
		return &DeptFilter{DeptIDs: role.AllowedDeptIDs}, nil

	case enums.AccessLevelOwnDept:
		if identity.DepartmentID == 0 {
			return &DeptFilter{}, nil
		}
		return &DeptFilter{DeptIDs: []uint64{identity.DepartmentID}}, nil

	case enums.AccessLevelOwnSubDept:
		if identity.DepartmentID == 0 {
			return &DeptFilter{}, nil
		}
		subtree, err := s.deptSvc.SubtreeIDs(ctx, identity.DepartmentID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve department subtree")
		}
		return &DeptFilter{DeptIDs: subtree}, nil

	case enums.AccessLevelOneself:
		return &DeptFilter{SelfOnly: true, Creator: identity.Username}, nil

	default:
		return nil, errors.Wrapf(repository.ErrInvalidScope, "unknown access level %d of role %d", role.AccessLevel, role.ID)
	}
}

// ApplyScope 把可见范围过滤器注入查询条件
// 空集范围注入恒假条件（部门ID从1起，0永不命中）。
func (s *AuthzService) ApplyScope(filter *DeptFilter, conditions []repository.Condition) []repository.Condition {
	switch {
	case filter == nil || filter.Unrestricted:
		return conditions
	case filter.SelfOnly:
		return append(conditions, repository.Condition{
			Field: "creator", Op: repository.OpEq, Value: filter.Creator,
		})
	case len(filter.DeptIDs) == 0:
		return append(conditions, repository.Condition{
			Field: "department_id", Op: repository.OpIn, Value: []any{uint64(0)},
		})
	default:
		return append(conditions, repository.Condition{
			Field: "department_id", Op: repository.OpIn, Value: filter.DeptIDs,
		})
	}
}

// resolveActiveRoles 解析调用方的启用角色
// 身份携带角色编号时按编号解析，否则按用户角色关联解析。
func (s *AuthzService) resolveActiveRoles(ctx context.Context, identity *models.CallerIdentity) ([]models.Role, error) {
	var (
		roles []models.Role
		err   error
	)
	if len(identity.RoleNumbers) > 0 {
		roles, err = s.permSvc.RetrieveRolesByNumbers(ctx, identity.RoleNumbers)
	} else {
		roles, err = s.permSvc.RetrieveRolesByUserID(ctx, identity.UserID)
	}
	if err != nil {
		logger.Error(ctx, "Failed to resolve roles", zap.Error(err), zap.Uint64("user_id", identity.UserID))
		return nil, errors.Wrap(err, "failed to resolve roles")
	}

	return lo.Filter(roles, func(role models.Role, _ int) bool {
		return role.Status == enums.StatusEnabled
	}), nil
}

// --------------------------- 缓存管理 ---------------------------

// ClearUserResolveCache 清除指定用户的解析缓存
func (s *AuthzService) ClearUserResolveCache(userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, userID)
}

// ClearResolveCache 清除全部解析缓存
func (s *AuthzService) ClearResolveCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[uint64]resolveEntry)
}

// EvictExpiredCache 清除已过期的缓存项，由定时任务调用
func (s *AuthzService) EvictExpiredCache() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, userID)
		}
	}
}

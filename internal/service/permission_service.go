package service

import (
	"context"
	"fmt"

	"github.com/ayxworxfr/go_authcore/internal/dao"
	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/internal/domain/params"
	"github.com/ayxworxfr/go_authcore/internal/domain/vo"
	"github.com/ayxworxfr/go_authcore/pkg/logger"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/hashicorp/go-multierror"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PermissionService 权限与角色管理服务 - 负责权限树维护和角色管理
type PermissionService struct {
	roleRepo       repository.Repository[models.Role]
	permissionRepo repository.Repository[models.Permission]
	userRoleRepo   repository.Repository[models.UserRole]
	rolePermRepo   repository.Repository[models.RolePermission]

	authz *AuthzService // 角色/权限变更后失效解析缓存
}

// NewPermissionService 创建权限服务实例
func NewPermissionService() *PermissionService {
	return &PermissionService{
		roleRepo:       dao.RoleRepo,
		permissionRepo: dao.PermissionRepo,
		userRoleRepo:   dao.UserRoleRepo,
		rolePermRepo:   dao.RolePermissionRepo,
	}
}

// bindAuthz 绑定授权服务，用于变更后的缓存失效
func (s *PermissionService) bindAuthz(authz *AuthzService) {
	s.authz = authz
}

func (s *PermissionService) invalidateCache() {
	if s.authz != nil {
		s.authz.ClearResolveCache()
	}
}

func (s *PermissionService) invalidateUserCache(userID uint64) {
	if s.authz != nil {
		s.authz.ClearUserResolveCache(userID)
	}
}

// --------------------------- 权限管理 ---------------------------

// CreatePermission 创建权限
// parent_id非0时校验父节点存在且未删除，level取父节点level+1；根节点level为1。
func (s *PermissionService) CreatePermission(ctx context.Context, req *params.CreatePermissionRequest) (*vo.Permission, error) {
	var permission models.Permission
	if err := copier.Copy(&permission, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to permission")
	}

	permission.Level = 1
	if req.ParentID != 0 {
		parent, err := s.findActivePermission(ctx, req.ParentID)
		if err != nil {
			logger.Error(ctx, "Failed to retrieve parent permission", zap.Error(err), zap.Uint64("parent_id", req.ParentID))
			return nil, errors.Wrap(err, "failed to retrieve parent permission")
		}
		permission.Level = parent.Level + 1
	}

	if err := s.permissionRepo.Create(ctx, &permission); err != nil {
		logger.Error(ctx, "Failed to create permission", zap.Error(err))
		return nil, errors.Wrap(err, "failed to create permission")
	}

	var result vo.Permission
	if err := copier.Copy(&result, &permission); err != nil {
		return nil, errors.Wrap(err, "failed to copy permission to result")
	}

	s.invalidateCache()
	return &result, nil
}

// CreatePermissions 批量创建权限（整体成功或整体回滚）
func (s *PermissionService) CreatePermissions(ctx context.Context, req *params.CreatePermissionsRequest) error {
	var permissions []models.Permission
	if err := copier.Copy(&permissions, &req.Permissions); err != nil {
		return errors.Wrap(err, "failed to copy requests to permissions")
	}

	for i := range permissions {
		permissions[i].Level = 1
		if permissions[i].ParentID != 0 {
			parent, err := s.findActivePermission(ctx, permissions[i].ParentID)
			if err != nil {
				return errors.Wrapf(err, "failed to retrieve parent permission %d", permissions[i].ParentID)
			}
			permissions[i].Level = parent.Level + 1
		}
	}

	if err := s.permissionRepo.BatchCreate(ctx, permissions); err != nil {
		logger.Error(ctx, "Failed to create permissions", zap.Error(err))
		return errors.Wrap(err, "failed to create permissions")
	}

	s.invalidateCache()
	return nil
}

// UpdatePermission 更新权限
// 变更parent_id视为挂载迁移：目标父节点落在自身子树内时拒绝，
// 迁移后整棵子树的level重算并落库。
func (s *PermissionService) UpdatePermission(ctx context.Context, req *params.UpdatePermissionRequest) (*vo.Permission, error) {
	permission, err := s.findActivePermission(ctx, req.ID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve permission", zap.Error(err), zap.Uint64("permission_id", req.ID))
		return nil, errors.Wrap(err, "failed to retrieve permission")
	}

	reparent := req.ParentID != nil && *req.ParentID != permission.ParentID

	if err := copier.Copy(permission, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to permission")
	}
	if req.Status != nil {
		permission.Status = *req.Status
	}

	if reparent {
		if err := s.reparentPermission(ctx, permission, *req.ParentID); err != nil {
			return nil, err
		}
	} else if err := s.permissionRepo.Update(ctx, permission); err != nil {
		logger.Error(ctx, "Failed to update permission", zap.Error(err), zap.Uint64("permission_id", req.ID))
		return nil, errors.Wrap(err, "failed to update permission")
	}

	// 显式置0的状态需指定列写入
	if req.Status != nil && *req.Status == enums.StatusDisabled {
		err := s.permissionRepo.UpdateByOption(ctx, &models.Permission{Status: *req.Status}, &repository.QueryOption{
			Filters: []repository.Condition{{Field: "id", Op: repository.OpEq, Value: permission.ID}},
			Cols:    []string{"status"},
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to update permission status")
		}
	}

	var result vo.Permission
	if err := copier.Copy(&result, permission); err != nil {
		return nil, errors.Wrap(err, "failed to copy permission to result")
	}

	s.invalidateCache()
	return &result, nil
}

// reparentPermission 迁移节点并重算子树层级，单事务完成
func (s *PermissionService) reparentPermission(ctx context.Context, permission *models.Permission, newParentID uint64) error {
	arena, err := s.loadArena(ctx)
	if err != nil {
		return err
	}

	if _, ok := arena.Get(permission.ID); !ok {
		return errors.Wrapf(repository.ErrNotFound, "permission %d", permission.ID)
	}
	if err := arena.Reparent(permission.ID, newParentID); err != nil {
		return err
	}

	moved, _ := arena.Get(permission.ID)
	permission.ParentID = moved.ParentID
	permission.Level = moved.Level

	subtreeIDs := arena.SubtreeIDs(permission.ID)
	_, err = s.permissionRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		if err := s.permissionRepo.Update(txCtx, permission); err != nil {
			return nil, errors.Wrap(err, "failed to update permission")
		}
		// parent_id可能迁移到根(0)，指定列强制写入
		for _, id := range subtreeIDs {
			node, _ := arena.Get(id)
			patch := &models.Permission{ParentID: node.ParentID, Level: node.Level}
			err := s.permissionRepo.UpdateByOption(txCtx, patch, &repository.QueryOption{
				Filters: []repository.Condition{{Field: "id", Op: repository.OpEq, Value: id}},
				Cols:    []string{"parent_id", "level"},
			})
			if err != nil {
				return nil, errors.Wrapf(err, "failed to move permission %d", id)
			}
		}
		return nil, nil
	})
	return err
}

// DeletePermissionBatch 批量删除权限，逐条应用删除策略并聚合错误
func (s *PermissionService) DeletePermissionBatch(ctx context.Context, req *params.DeletePermissionRequest) error {
	var errs multierror.Error
	for _, id := range req.IDs {
		if err := s.DeletePermission(ctx, id, req.Policy); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.ErrorOrNil()
}

// DeletePermission 软删除权限
// RejectIfChildren: 存在未删除子节点时返回 ErrConflict；
// CascadeDelete: 整棵子树在一个事务内软删除。
func (s *PermissionService) DeletePermission(ctx context.Context, id uint64, policy params.DeletePolicy) error {
	_, err := s.findActivePermission(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve permission", zap.Error(err), zap.Uint64("permission_id", id))
		return errors.Wrap(err, "failed to retrieve permission")
	}

	arena, err := s.loadArena(ctx)
	if err != nil {
		return err
	}

	targetIDs := []uint64{id}
	switch policy {
	case params.RejectIfChildren:
		if arena.HasActiveChildren(id) {
			return errors.Wrapf(repository.ErrConflict, "permission %d has active children", id)
		}
	case params.CascadeDelete:
		targetIDs = arena.SubtreeIDs(id)
	default:
		return errors.Wrapf(repository.ErrInvalidScope, "unknown delete policy %d", policy)
	}

	_, err = s.permissionRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		for _, targetID := range targetIDs {
			update := &models.Permission{ID: targetID, IsDeleted: 1}
			if err := s.permissionRepo.Update(txCtx, update); err != nil {
				return nil, errors.Wrapf(err, "failed to delete permission %d", targetID)
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error(ctx, "Failed to delete permission", zap.Error(err), zap.Uint64("permission_id", id))
		return err
	}

	s.invalidateCache()
	return nil
}

// GetPermission 获取单个权限
func (s *PermissionService) GetPermission(ctx context.Context, id uint64) (*vo.Permission, error) {
	permission, err := s.permissionRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve permission", zap.Error(err), zap.Uint64("permission_id", id))
		return nil, errors.Wrap(err, "failed to retrieve permission")
	}

	var result vo.Permission
	if err := copier.Copy(&result, &permission); err != nil {
		return nil, errors.Wrap(err, "failed to copy permission to result")
	}

	return &result, nil
}

// GetPermissionList 获取权限列表（仅未删除的记录）
func (s *PermissionService) GetPermissionList(ctx context.Context, req *params.GetPermissionListRequest) ([]vo.Permission, int64, error) {
	filters := req.ToFilters()
	filters["is_deleted"] = 0

	permissions, total, err := s.permissionRepo.List(ctx, filters, &repository.ListOptions{
		Page:      req.Page.Page,
		PageSize:  req.PageSize,
		NeedTotal: req.NeedTotal,
	})
	if err != nil {
		logger.Error(ctx, "Failed to retrieve permissions", zap.Error(err))
		return nil, 0, errors.Wrap(err, "failed to retrieve permissions")
	}

	var result []vo.Permission
	if err := copier.Copy(&result, &permissions); err != nil {
		return nil, 0, errors.Wrap(err, "failed to copy permissions to result")
	}

	return result, total, nil
}

// GetPermissionTree 构建权限树视图
func (s *PermissionService) GetPermissionTree(ctx context.Context, req *params.GetPermissionTreeRequest) ([]*vo.Permission, error) {
	arena, err := s.loadArena(ctx)
	if err != nil {
		return nil, err
	}
	return arena.BuildTree(req.RootID)
}

// loadArena 加载全量权限构建内存索引
func (s *PermissionService) loadArena(ctx context.Context) (*PermissionArena, error) {
	permissions, err := s.permissionRepo.FindAllBy(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load permissions")
	}
	return NewPermissionArena(permissions), nil
}

// findActivePermission 取未删除的权限记录
func (s *PermissionService) findActivePermission(ctx context.Context, id uint64) (*models.Permission, error) {
	permission, err := s.permissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if permission.IsDeleted != 0 {
		return nil, errors.Wrapf(repository.ErrNotFound, "permission %d is deleted", id)
	}
	return permission, nil
}

// --------------------------- 角色管理 ---------------------------

// CreateRole 创建角色（使用事务保证数据一致性）
func (s *PermissionService) CreateRole(ctx context.Context, req *params.CreateRoleRequest, operator string) (*vo.Role, error) {
	if !enums.IsValid("access_level", req.AccessLevel) {
		return nil, errors.Wrapf(repository.ErrInvalidScope, "invalid access level %d", req.AccessLevel)
	}

	var role models.Role
	if err := copier.Copy(&role, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to role")
	}
	role.Creator = operator
	role.Modifier = operator

	_, err := s.roleRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		if err := s.roleRepo.Create(txCtx, &role); err != nil {
			logger.Error(txCtx, "Failed to create role", zap.Error(err))
			return nil, errors.Wrap(err, "failed to create role")
		}

		// 分配权限
		if len(req.PermissionIDs) > 0 {
			if err := s.assignRolePermissionsTx(txCtx, role.ID, req.PermissionIDs); err != nil {
				logger.Error(txCtx, "Failed to assign permissions to role", zap.Error(err), zap.Uint64("role_id", role.ID))
				return nil, errors.Wrap(err, "failed to assign permissions to role")
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache()
	return s.GetRole(ctx, role.ID)
}

// UpdateRole 更新角色
func (s *PermissionService) UpdateRole(ctx context.Context, req *params.UpdateRoleRequest, operator string) (*vo.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, req.ID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve role", zap.Error(err), zap.Uint64("role_id", req.ID))
		return nil, errors.Wrap(err, "failed to retrieve role")
	}

	if req.AccessLevel != 0 && !enums.IsValid("access_level", req.AccessLevel) {
		return nil, errors.Wrapf(repository.ErrInvalidScope, "invalid access level %d", req.AccessLevel)
	}

	if err := copier.Copy(role, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to role")
	}
	if req.AllowedDeptIDs != nil {
		role.AllowedDeptIDs = *req.AllowedDeptIDs
	}
	if req.Areas != nil {
		role.Areas = *req.Areas
	}
	if req.Status != nil {
		role.Status = *req.Status
	}
	role.Modifier = operator

	if err := s.roleRepo.Update(ctx, role); err != nil {
		logger.Error(ctx, "Failed to update role", zap.Error(err), zap.Uint64("role_id", req.ID))
		return nil, errors.Wrap(err, "failed to update role")
	}

	// 置空集合和禁用状态属于零值写入，需指定列
	var cols []string
	if req.Status != nil && *req.Status == enums.StatusDisabled {
		cols = append(cols, "status")
	}
	if req.AllowedDeptIDs != nil && len(*req.AllowedDeptIDs) == 0 {
		cols = append(cols, "allowed_dept_ids")
	}
	if req.Areas != nil && len(*req.Areas) == 0 {
		cols = append(cols, "areas")
	}
	if len(cols) > 0 {
		err := s.roleRepo.UpdateByOption(ctx, role, &repository.QueryOption{
			Filters: []repository.Condition{{Field: "id", Op: repository.OpEq, Value: role.ID}},
			Cols:    cols,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to update role columns")
		}
	}

	// 分配权限
	if req.PermissionIDs != nil {
		if err := s.AssignRolePermissions(ctx, role.ID, *req.PermissionIDs); err != nil {
			logger.Error(ctx, "Failed to assign permissions to role", zap.Error(err), zap.Uint64("role_id", req.ID))
			return nil, errors.Wrap(err, "failed to assign permissions to role")
		}
	}

	s.invalidateCache()
	return s.GetRole(ctx, role.ID)
}

// DeleteRoleBatch 批量删除角色
func (s *PermissionService) DeleteRoleBatch(ctx context.Context, ids []uint64) error {
	var errs multierror.Error
	for _, id := range ids {
		if err := s.DeleteRole(ctx, id); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.ErrorOrNil()
}

// DeleteRole 删除角色
func (s *PermissionService) DeleteRole(ctx context.Context, id uint64) error {
	_, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve role", zap.Error(err), zap.Uint64("role_id", id))
		return errors.Wrap(err, "failed to retrieve role")
	}

	// 事务处理：先删除角色权限关联，再删除角色
	_, err = s.roleRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		// 删除角色权限关联
		if err := s.rolePermRepo.QueryBuilder().
			Eq("role_id", id).
			Delete(txCtx); err != nil {
			return nil, errors.Wrap(err, "failed to delete role permissions")
		}

		// 删除用户角色关联
		if err := s.userRoleRepo.QueryBuilder().
			Eq("role_id", id).
			Delete(txCtx); err != nil {
			return nil, errors.Wrap(err, "failed to delete user roles")
		}

		// 删除角色
		if err := s.roleRepo.DeleteByID(txCtx, id); err != nil {
			return nil, errors.Wrap(err, "failed to delete role")
		}

		return nil, nil
	})

	if err == nil {
		s.invalidateCache()
	}
	return err
}

// GetRole 获取单个角色
func (s *PermissionService) GetRole(ctx context.Context, id uint64) (*vo.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve role", zap.Error(err), zap.Uint64("role_id", id))
		return nil, errors.Wrap(err, "failed to retrieve role")
	}

	var result vo.Role
	if err := copier.Copy(&result, &role); err != nil {
		return nil, errors.Wrap(err, "failed to copy role to result")
	}
	if meta, ok := enums.Lookup("access_level", role.AccessLevel); ok {
		result.AccessLabel = meta.Label
	}

	// 获取角色的权限
	permissions, err := s.RetrievePermissionsByRoleID(ctx, role.ID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve role permissions", zap.Error(err), zap.Uint64("role_id", id))
		return nil, errors.Wrap(err, "failed to retrieve role permissions")
	}

	var permissionVOs []*vo.Permission
	if err := copier.Copy(&permissionVOs, &permissions); err != nil {
		return nil, errors.Wrap(err, "failed to copy permissions to permissionVOs")
	}

	result.Permissions = permissionVOs

	return &result, nil
}

// GetRoleList 获取角色列表
func (s *PermissionService) GetRoleList(ctx context.Context, req *params.GetRoleListRequest) ([]vo.Role, int64, error) {
	roles, total, err := s.roleRepo.List(ctx, req.ToFilters(), &repository.ListOptions{
		Page:      req.Page.Page,
		PageSize:  req.PageSize,
		NeedTotal: req.NeedTotal,
	})
	if err != nil {
		logger.Error(ctx, "Failed to retrieve roles", zap.Error(err))
		return nil, 0, errors.Wrap(err, "failed to retrieve roles")
	}

	var result []vo.Role
	if err := copier.Copy(&result, &roles); err != nil {
		return nil, 0, errors.Wrap(err, "failed to copy roles to result")
	}
	for i := range result {
		if meta, ok := enums.Lookup("access_level", result[i].AccessLevel); ok {
			result[i].AccessLabel = meta.Label
		}
	}

	return result, total, nil
}

// GetRolePermissions 获取角色的权限列表
func (s *PermissionService) GetRolePermissions(ctx context.Context, roleID uint64) ([]vo.Permission, error) {
	permissions, err := s.RetrievePermissionsByRoleID(ctx, roleID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve role permissions", zap.Error(err), zap.Uint64("role_id", roleID))
		return nil, errors.Wrap(err, "failed to retrieve role permissions")
	}

	var result []vo.Permission
	if err := copier.Copy(&result, &permissions); err != nil {
		return nil, errors.Wrap(err, "failed to copy permissions to result")
	}

	return result, nil
}

// AssignRolePermissions 为角色分配权限（差量更新）
func (s *PermissionService) AssignRolePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) error {
	_, err := s.rolePermRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, s.assignRolePermissionsTx(txCtx, roleID, permissionIDs)
	})

	if err == nil {
		s.invalidateCache()
	}
	return err
}

// assignRolePermissionsTx 在已有事务内做差量分配
func (s *PermissionService) assignRolePermissionsTx(txCtx context.Context, roleID uint64, permissionIDs []uint64) error {
	// 1. 查询当前角色已分配的权限
	rolePermissionList, err := s.rolePermRepo.FindAll(txCtx, &models.RolePermission{RoleID: roleID})
	if err != nil {
		return errors.Wrap(err, "failed to retrieve role permissions")
	}

	// 2. 计算需要删除和新增的权限ID
	existingPermissionIDs := lo.Map(rolePermissionList, func(rp models.RolePermission, _ int) uint64 {
		return rp.PermissionID
	})
	toRemoveIDs := lo.Filter(existingPermissionIDs, func(id uint64, _ int) bool {
		return !lo.Contains(permissionIDs, id)
	})
	toAddIDs := lo.Filter(permissionIDs, func(id uint64, _ int) bool {
		return !lo.Contains(existingPermissionIDs, id)
	})

	// 3. 删除旧关联
	if len(toRemoveIDs) > 0 {
		err := s.rolePermRepo.QueryBuilder().
			Eq("role_id", roleID).
			In("permission_id", toRemoveIDs).
			Delete(txCtx)
		if err != nil {
			return errors.Wrap(err, "failed to delete role permissions")
		}
	}

	// 4. 创建新关联
	if len(toAddIDs) > 0 {
		rolePermissions := lo.Map(toAddIDs, func(permissionID uint64, _ int) models.RolePermission {
			return models.RolePermission{
				RoleID:       roleID,
				PermissionID: permissionID,
			}
		})
		if err := s.rolePermRepo.BatchCreate(txCtx, rolePermissions); err != nil {
			return errors.Wrap(err, "failed to create role permissions")
		}
	}

	return nil
}

// --------------------------- 用户角色管理 ---------------------------

// AssignRoles 为用户分配角色（差量更新）
func (s *PermissionService) AssignRoles(ctx context.Context, userID uint64, roleIDs []uint64) error {
	// 检查用户是否存在
	_, err := dao.UserRepo.FindByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve user", zap.Error(err), zap.Uint64("user_id", userID))
		return errors.Wrap(err, "failed to retrieve user")
	}

	// 1. 查询当前用户已分配的角色
	userRoleList, err := s.userRoleRepo.FindAll(ctx, &models.UserRole{UserID: userID})
	if err != nil {
		return errors.Wrap(err, "failed to retrieve user roles")
	}

	// 2. 计算需要删除和新增的角色ID
	existingRoleIDs := lo.Map(userRoleList, func(ur models.UserRole, _ int) uint64 {
		return ur.RoleID
	})
	toRemoveIDs := lo.Filter(existingRoleIDs, func(id uint64, _ int) bool {
		return !lo.Contains(roleIDs, id)
	})
	toAddIDs := lo.Filter(roleIDs, func(id uint64, _ int) bool {
		return !lo.Contains(existingRoleIDs, id)
	})

	// 3. 事务处理
	_, err = s.userRoleRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		// 3.1 删除旧关联
		if len(toRemoveIDs) > 0 {
			err := s.userRoleRepo.QueryBuilder().
				Eq("user_id", userID).
				In("role_id", toRemoveIDs).
				Delete(txCtx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to delete user roles")
			}
		}

		// 3.2 创建新关联
		if len(toAddIDs) > 0 {
			userRoles := make([]models.UserRole, len(toAddIDs))
			for i, roleID := range toAddIDs {
				userRoles[i] = models.UserRole{
					UserID: userID,
					RoleID: roleID,
				}
			}
			if err := s.userRoleRepo.BatchCreate(txCtx, userRoles); err != nil {
				return nil, errors.Wrap(err, "failed to create user roles")
			}
		}

		return nil, nil
	})

	// 清除用户缓存
	if err == nil {
		s.invalidateUserCache(userID)
	}
	return err
}

// --------------------------- 关联查询 ---------------------------

// RetrieveRolesByUserID 通过用户ID查询关联角色
func (s *PermissionService) RetrieveRolesByUserID(ctx context.Context, userID uint64) ([]models.Role, error) {
	// 1. 查询UserRole表
	userRoles, err := s.userRoleRepo.QueryBuilder().
		Eq("user_id", userID).
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("query UserRole failed: %w", err)
	}

	if len(userRoles) == 0 {
		return []models.Role{}, nil
	}

	// 2. 提取角色ID
	roleIDs := lo.Map(userRoles, func(ur models.UserRole, _ int) uint64 {
		return ur.RoleID
	})

	// 3. 查询Role表
	roles, err := s.roleRepo.QueryBuilder().
		In("id", roleIDs).
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("query Role failed: %w", err)
	}

	return roles, nil
}

// RetrieveRolesByNumbers 按角色编号批量查询角色
func (s *PermissionService) RetrieveRolesByNumbers(ctx context.Context, roleNumbers []string) ([]models.Role, error) {
	if len(roleNumbers) == 0 {
		return []models.Role{}, nil
	}

	roles, err := s.roleRepo.FindAllBy(ctx, map[string]any{
		"role_number": roleNumbers,
	})
	if err != nil {
		return nil, fmt.Errorf("query Role failed: %w", err)
	}
	return roles, nil
}

// RetrievePermissionsByRoleID 通过角色ID查询关联权限（不含软删除）
func (s *PermissionService) RetrievePermissionsByRoleID(ctx context.Context, roleID uint64) ([]models.Permission, error) {
	return s.RetrievePermissionsByRoleIDs(ctx, []uint64{roleID})
}

// RetrievePermissionsByRoleIDs 通过角色ID集合查询关联权限并集（不含软删除）
func (s *PermissionService) RetrievePermissionsByRoleIDs(ctx context.Context, roleIDs []uint64) ([]models.Permission, error) {
	if len(roleIDs) == 0 {
		return []models.Permission{}, nil
	}

	// 1. 查询RolePermission表
	rolePermissions, err := s.rolePermRepo.QueryBuilder().
		In("role_id", roleIDs).
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("query RolePermission failed: %w", err)
	}

	if len(rolePermissions) == 0 {
		return []models.Permission{}, nil
	}

	// 2. 提取权限ID并去重
	permissionIDs := lo.Uniq(lo.Map(rolePermissions, func(rp models.RolePermission, _ int) uint64 {
		return rp.PermissionID
	}))

	// 3. 查询Permission表，排除软删除和禁用的权限
	permissions, err := s.permissionRepo.QueryBuilder().
		In("id", permissionIDs).
		Eq("is_deleted", 0).
		Eq("status", enums.StatusEnabled).
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("query Permission failed: %w", err)
	}

	return permissions, nil
}

package service

import (
	"context"

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
	"go.uber.org/zap"
)

// UserService 用户管理服务
type UserService struct {
	userRepo repository.Repository[models.User]
	permSvc  *PermissionService
	authz    *AuthzService
}

// NewUserService 创建用户服务实例
func NewUserService(permSvc *PermissionService, authz *AuthzService) *UserService {
	return &UserService{
		userRepo: dao.UserRepo,
		permSvc:  permSvc,
		authz:    authz,
	}
}

// CreateUser 创建用户
func (s *UserService) CreateUser(ctx context.Context, req *params.CreateUserRequest, operator string) (*vo.User, error) {
	var user models.User
	if err := copier.Copy(&user, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to user")
	}
	user.Creator = operator

	_, err := s.userRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		if err := s.userRepo.Create(txCtx, &user); err != nil {
			logger.Error(txCtx, "Failed to create user", zap.Error(err))
			return nil, errors.Wrap(err, "failed to create user")
		}
		if len(req.RoleIDs) > 0 {
			if err := s.permSvc.AssignRoles(txCtx, user.ID, req.RoleIDs); err != nil {
				return nil, errors.Wrap(err, "failed to assign roles to user")
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, user.ID)
}

// UpdateUser 更新用户
func (s *UserService) UpdateUser(ctx context.Context, req *params.UpdateUserRequest) (*vo.User, error) {
	user, err := s.userRepo.FindByID(ctx, req.ID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve user", zap.Error(err), zap.Uint64("user_id", req.ID))
		return nil, errors.Wrap(err, "failed to retrieve user")
	}

	if err := copier.Copy(user, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to user")
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		logger.Error(ctx, "Failed to update user", zap.Error(err), zap.Uint64("user_id", req.ID))
		return nil, errors.Wrap(err, "failed to update user")
	}

	// 显式禁用属于零值写入，需指定列
	if req.Status != nil && *req.Status == enums.StatusDisabled {
		err := s.userRepo.UpdateByOption(ctx, user, &repository.QueryOption{
			Filters: []repository.Condition{{Field: "id", Op: repository.OpEq, Value: user.ID}},
			Cols:    []string{"status"},
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to update user status")
		}
	}

	if req.RoleIDs != nil {
		if err := s.permSvc.AssignRoles(ctx, user.ID, *req.RoleIDs); err != nil {
			return nil, errors.Wrap(err, "failed to assign roles to user")
		}
	}

	return s.GetUser(ctx, user.ID)
}

// DeleteUserBatch 批量删除用户
func (s *UserService) DeleteUserBatch(ctx context.Context, ids []uint64) error {
	var errs multierror.Error
	for _, id := range ids {
		if err := s.DeleteUser(ctx, id); err != nil {
			errs.Errors = append(errs.Errors, err)
		}
	}
	return errs.ErrorOrNil()
}

// DeleteUser 删除用户及其角色关联
func (s *UserService) DeleteUser(ctx context.Context, id uint64) error {
	_, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve user", zap.Error(err), zap.Uint64("user_id", id))
		return errors.Wrap(err, "failed to retrieve user")
	}

	_, err = s.userRepo.Transaction(ctx, func(txCtx context.Context) (any, error) {
		if err := dao.UserRoleRepo.QueryBuilder().
			Eq("user_id", id).
			Delete(txCtx); err != nil {
			return nil, errors.Wrap(err, "failed to delete user roles")
		}
		if err := s.userRepo.DeleteByID(txCtx, id); err != nil {
			return nil, errors.Wrap(err, "failed to delete user")
		}
		return nil, nil
	})

	if err == nil {
		s.authz.ClearUserResolveCache(id)
	}
	return err
}

// GetUser 获取单个用户及其角色
func (s *UserService) GetUser(ctx context.Context, id uint64) (*vo.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve user", zap.Error(err), zap.Uint64("user_id", id))
		return nil, errors.Wrap(err, "failed to retrieve user")
	}

	var result vo.User
	if err := copier.Copy(&result, &user); err != nil {
		return nil, errors.Wrap(err, "failed to copy user to result")
	}

	roles, err := s.permSvc.RetrieveRolesByUserID(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve user roles", zap.Error(err), zap.Uint64("user_id", id))
		return nil, errors.Wrap(err, "failed to retrieve user roles")
	}

	var roleVOs []*vo.Role
	if err := copier.Copy(&roleVOs, &roles); err != nil {
		return nil, errors.Wrap(err, "failed to copy roles to roleVOs")
	}
	result.Roles = roleVOs

	return &result, nil
}

// GetUserList 按调用方可见范围查询用户列表
// 请求条件先翻译为类型化条件，再注入调用方的数据范围过滤；
// 请求中的部门条件与可见范围取交集，不会放大可见范围。
func (s *UserService) GetUserList(ctx context.Context, identity *models.CallerIdentity, req *params.GetUserListRequest) ([]vo.User, int64, error) {
	filter, err := s.authz.ResolveDepartmentFilter(ctx, identity)
	if err != nil {
		return nil, 0, err
	}

	conditions, err := repository.BuildConditions(ctx, s.userRepo.FilterSpec(), req.ToFilters())
	if err != nil {
		return nil, 0, err
	}
	conditions = s.authz.ApplyScope(filter, conditions)

	users, total, err := s.userRepo.ListByConditions(ctx, conditions, &repository.ListOptions{
		Page:      req.Page.Page,
		PageSize:  req.PageSize,
		NeedTotal: req.NeedTotal,
		OrderBy:   req.OrderBy,
	})
	if err != nil {
		logger.Error(ctx, "Failed to retrieve users", zap.Error(err))
		return nil, 0, errors.Wrap(err, "failed to retrieve users")
	}

	var result []vo.User
	if err := copier.Copy(&result, &users); err != nil {
		return nil, 0, errors.Wrap(err, "failed to copy users to result")
	}
	return result, total, nil
}

package service

import (
	"context"
	"testing"

	"github.com/ayxworxfr/go_authcore/internal/dao"
	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/internal/domain/params"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServices 以内存处理器初始化仓储和服务
func setupServices(t *testing.T) {
	t.Helper()
	dao.InitRepoWithProcessor(repository.NewMemoryProcessor())
	require.NoError(t, Init())
}

// seedDepartments 构造部门树: 1 hq ── 2 eng ── 3 backend
//
//	└─ 7 sales
func seedDepartments(t *testing.T, ctx context.Context) {
	t.Helper()
	for _, dept := range []models.Department{
		{ID: 1, Name: "hq", ParentID: 0, Status: 1},
		{ID: 2, Name: "eng", ParentID: 1, Status: 1},
		{ID: 3, Name: "backend", ParentID: 2, Status: 1},
		{ID: 7, Name: "sales", ParentID: 1, Status: 1},
	} {
		d := dept
		require.NoError(t, dao.DepartmentRepo.Create(ctx, &d))
	}
}

// seedRole 创建指定可见级别的角色
func seedRole(t *testing.T, ctx context.Context, number string, level int, deptIDs []uint64) *models.Role {
	t.Helper()
	role := &models.Role{
		Name:           number,
		RoleNumber:     number,
		AccessLevel:    level,
		AllowedDeptIDs: deptIDs,
		Status:         1,
	}
	require.NoError(t, dao.RoleRepo.Create(ctx, role))
	return role
}

func identityFor(roleNumbers ...string) *models.CallerIdentity {
	return &models.CallerIdentity{
		UserID:       100,
		Username:     "alice",
		DepartmentID: 2,
		RoleNumbers:  roleNumbers,
	}
}

func TestResolveDepartmentFilter(t *testing.T) {
	ctx := context.Background()

	t.Run("AllDeptUnrestricted", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "admin", enums.AccessLevelAllDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("admin"))
		require.NoError(t, err)
		assert.True(t, filter.Unrestricted)
	})

	t.Run("TargetDept", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "auditor", enums.AccessLevelTargetDept, []uint64{3, 7})

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("auditor"))
		require.NoError(t, err)
		assert.False(t, filter.Unrestricted)
		assert.ElementsMatch(t, []uint64{3, 7}, filter.DeptIDs)
	})

	t.Run("TargetDeptWithoutConfiguredDepts", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "empty-auditor", enums.AccessLevelTargetDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("empty-auditor"))
		require.NoError(t, err)
		assert.False(t, filter.Unrestricted)
		assert.False(t, filter.SelfOnly)
		assert.Empty(t, filter.DeptIDs)
	})

	t.Run("OwnDept", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "manager", enums.AccessLevelOwnDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("manager"))
		require.NoError(t, err)
		assert.Equal(t, []uint64{2}, filter.DeptIDs)
	})

	t.Run("OwnSubDept", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "lead", enums.AccessLevelOwnSubDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("lead"))
		require.NoError(t, err)
		// 本部门2及其子部门3
		assert.ElementsMatch(t, []uint64{2, 3}, filter.DeptIDs)
	})

	t.Run("Oneself", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "guest", enums.AccessLevelOneself, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("guest"))
		require.NoError(t, err)
		assert.True(t, filter.SelfOnly)
		assert.Equal(t, "alice", filter.Creator)
	})

	t.Run("AllDeptWinsOverOthers", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "admin", enums.AccessLevelAllDept, nil)
		seedRole(t, ctx, "manager", enums.AccessLevelOwnDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("admin", "manager"))
		require.NoError(t, err)
		assert.True(t, filter.Unrestricted)
	})

	t.Run("DeptScopesUnion", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "auditor", enums.AccessLevelTargetDept, []uint64{7})
		seedRole(t, ctx, "manager", enums.AccessLevelOwnDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("auditor", "manager"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint64{2, 7}, filter.DeptIDs)
	})

	t.Run("DeptScopeSubsumesOneself", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		seedRole(t, ctx, "guest", enums.AccessLevelOneself, nil)
		seedRole(t, ctx, "manager", enums.AccessLevelOwnDept, nil)

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("guest", "manager"))
		require.NoError(t, err)
		assert.False(t, filter.SelfOnly)
		assert.Equal(t, []uint64{2}, filter.DeptIDs)
	})

	t.Run("DisabledRoleIgnored", func(t *testing.T) {
		setupServices(t)
		seedDepartments(t, ctx)
		role := &models.Role{
			Name: "ghost", RoleNumber: "ghost",
			AccessLevel: enums.AccessLevelAllDept, Status: 0,
		}
		require.NoError(t, dao.RoleRepo.Create(ctx, role))

		filter, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, identityFor("ghost"))
		require.NoError(t, err)
		assert.False(t, filter.Unrestricted)
		assert.Empty(t, filter.DeptIDs)
	})

	t.Run("NilIdentity", func(t *testing.T) {
		setupServices(t)
		_, err := AuthzServiceInstance.ResolveDepartmentFilter(ctx, nil)
		assert.ErrorIs(t, err, repository.ErrInvalidScope)
	})
}

func TestApplyScope(t *testing.T) {
	setupServices(t)
	authz := AuthzServiceInstance
	base := []repository.Condition{{Field: "status", Op: repository.OpEq, Value: 1}}

	t.Run("Unrestricted", func(t *testing.T) {
		got := authz.ApplyScope(&DeptFilter{Unrestricted: true}, base)
		assert.Len(t, got, 1)
	})

	t.Run("DeptSet", func(t *testing.T) {
		got := authz.ApplyScope(&DeptFilter{DeptIDs: []uint64{3, 7}}, base)
		require.Len(t, got, 2)
		assert.Equal(t, "department_id", got[1].Field)
		assert.Equal(t, repository.OpIn, got[1].Op)
	})

	t.Run("SelfOnly", func(t *testing.T) {
		got := authz.ApplyScope(&DeptFilter{SelfOnly: true, Creator: "alice"}, base)
		require.Len(t, got, 2)
		assert.Equal(t, repository.Condition{Field: "creator", Op: repository.OpEq, Value: "alice"}, got[1])
	})

	t.Run("EmptySetMatchesNothing", func(t *testing.T) {
		got := authz.ApplyScope(&DeptFilter{}, base)
		require.Len(t, got, 2)
		assert.Equal(t, "department_id", got[1].Field)
		assert.Equal(t, repository.OpIn, got[1].Op)
		assert.Equal(t, []any{uint64(0)}, got[1].Value)
	})
}

func TestRequirePermission(t *testing.T) {
	ctx := context.Background()
	setupServices(t)
	seedDepartments(t, ctx)

	perm := &models.Permission{Name: "user-list", Number: "USER_LIST", MenuType: 3, Status: 1, Perms: "user:list"}
	require.NoError(t, dao.PermissionRepo.Create(ctx, perm))

	role := seedRole(t, ctx, "operator", enums.AccessLevelOwnDept, nil)
	require.NoError(t, PermissionServiceInstance.AssignRolePermissions(ctx, role.ID, []uint64{perm.ID}))

	identity := identityFor("operator")
	assert.NoError(t, AuthzServiceInstance.RequirePermission(ctx, identity, "user:list"))
	assert.ErrorIs(t, AuthzServiceInstance.RequirePermission(ctx, identity, "user:delete"), ErrAuthorizationDenied)
}

func TestResolvePermissionsExcludesInactive(t *testing.T) {
	ctx := context.Background()
	setupServices(t)
	seedDepartments(t, ctx)

	active := &models.Permission{Name: "a", Number: "A", Status: 1, Perms: "a:read"}
	disabled := &models.Permission{Name: "b", Number: "B", Status: 0, Perms: "b:read"}
	deleted := &models.Permission{Name: "c", Number: "C", Status: 1, IsDeleted: 1, Perms: "c:read"}
	for _, p := range []*models.Permission{active, disabled, deleted} {
		require.NoError(t, dao.PermissionRepo.Create(ctx, p))
	}

	role := seedRole(t, ctx, "mixed", enums.AccessLevelOwnDept, nil)
	require.NoError(t, PermissionServiceInstance.AssignRolePermissions(ctx, role.ID, []uint64{active.ID, disabled.ID, deleted.ID}))

	permissions, err := AuthzServiceInstance.ResolvePermissions(ctx, identityFor("mixed"))
	require.NoError(t, err)
	require.Len(t, permissions, 1)
	assert.Equal(t, "a:read", permissions[0].Perms)
}

func TestResolvePermissionsByUserRelation(t *testing.T) {
	ctx := context.Background()
	setupServices(t)
	seedDepartments(t, ctx)

	perm := &models.Permission{Name: "p", Number: "P", Status: 1, Perms: "p:read"}
	require.NoError(t, dao.PermissionRepo.Create(ctx, perm))
	role := seedRole(t, ctx, "linked", enums.AccessLevelOwnDept, nil)
	require.NoError(t, PermissionServiceInstance.AssignRolePermissions(ctx, role.ID, []uint64{perm.ID}))

	user := &models.User{Username: "bob", DepartmentID: 2, Status: 1}
	require.NoError(t, dao.UserRepo.Create(ctx, user))
	require.NoError(t, PermissionServiceInstance.AssignRoles(ctx, user.ID, []uint64{role.ID}))

	// 身份未携带角色编号，走用户角色关联
	identity := &models.CallerIdentity{UserID: user.ID, Username: "bob", DepartmentID: 2}
	ids, err := AuthzServiceInstance.ResolvePermissionIDs(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, []uint64{perm.ID}, ids)

	// 解绑后缓存失效，权限即时收回
	require.NoError(t, PermissionServiceInstance.AssignRoles(ctx, user.ID, nil))
	ids, err = AuthzServiceInstance.ResolvePermissionIDs(ctx, identity)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetUserListScoped(t *testing.T) {
	ctx := context.Background()
	setupServices(t)
	seedDepartments(t, ctx)

	for _, u := range []models.User{
		{Username: "u-backend-1", DepartmentID: 3, Status: 1, Creator: "root"},
		{Username: "u-backend-2", DepartmentID: 3, Status: 0, Creator: "root"},
		{Username: "u-sales", DepartmentID: 7, Status: 1, Creator: "root"},
		{Username: "u-eng", DepartmentID: 2, Status: 1, Creator: "root"},
		{Username: "u-hq", DepartmentID: 1, Status: 1, Creator: "alice"},
	} {
		user := u
		require.NoError(t, dao.UserRepo.Create(ctx, &user))
	}

	t.Run("TargetDeptIntersectsRequest", func(t *testing.T) {
		seedRole(t, ctx, "scoped-auditor", enums.AccessLevelTargetDept, []uint64{3, 7})
		identity := identityFor("scoped-auditor")

		// 部门3、7可见范围内，再按启用状态过滤
		users, total, err := UserServiceInstance.GetUserList(ctx, identity, &params.GetUserListRequest{
			Page:   params.Page{Page: 1, PageSize: 10, NeedTotal: true},
			Status: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		names := []string{users[0].Username, users[1].Username}
		assert.ElementsMatch(t, []string{"u-backend-1", "u-sales"}, names)
	})

	t.Run("RequestCannotWidenScope", func(t *testing.T) {
		identity := identityFor("scoped-auditor")

		// 请求部门1不在可见范围内，交集为空
		users, total, err := UserServiceInstance.GetUserList(ctx, identity, &params.GetUserListRequest{
			Page:          params.Page{Page: 1, PageSize: 10, NeedTotal: true},
			DepartmentIDs: []uint64{1},
		})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, users)
	})

	t.Run("OneselfSeesOwnRecordsOnly", func(t *testing.T) {
		seedRole(t, ctx, "self-viewer", enums.AccessLevelOneself, nil)
		identity := identityFor("self-viewer")

		users, total, err := UserServiceInstance.GetUserList(ctx, identity, &params.GetUserListRequest{
			Page: params.Page{Page: 1, PageSize: 10, NeedTotal: true},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, users, 1)
		assert.Equal(t, "u-hq", users[0].Username)
	})

	t.Run("UnknownOrderFieldRejected", func(t *testing.T) {
		identity := identityFor("scoped-auditor")

		// 排序字段必须是用户表声明的列
		_, _, err := UserServiceInstance.GetUserList(ctx, identity, &params.GetUserListRequest{
			Page:    params.Page{Page: 1, PageSize: 10},
			OrderBy: []string{"username; --"},
		})
		assert.ErrorIs(t, err, repository.ErrInvalidScope)
	})

	t.Run("NoRolesSeesNothing", func(t *testing.T) {
		identity := identityFor("nonexistent-role")

		users, total, err := UserServiceInstance.GetUserList(ctx, identity, &params.GetUserListRequest{
			Page: params.Page{Page: 1, PageSize: 10, NeedTotal: true},
		})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, users)
	})
}

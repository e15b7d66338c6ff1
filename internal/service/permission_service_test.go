package service

import (
	"context"
	"testing"

	"github.com/ayxworxfr/go_authcore/internal/dao"
	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/internal/domain/params"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPermission(t *testing.T, ctx context.Context, name, number string, parentID uint64) *models.Permission {
	t.Helper()
	created, err := PermissionServiceInstance.CreatePermission(ctx, &params.CreatePermissionRequest{
		Name:     name,
		Number:   number,
		ParentID: parentID,
		MenuType: enums.MenuTypeMenu,
		Status:   1,
	})
	require.NoError(t, err)
	permission, err := dao.PermissionRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	return permission
}

func TestCreatePermission(t *testing.T) {
	ctx := context.Background()
	setupServices(t)

	root := createPermission(t, ctx, "system", "SYS", 0)
	assert.Equal(t, 1, root.Level)

	child := createPermission(t, ctx, "user-mgmt", "SYS_USER", root.ID)
	assert.Equal(t, 2, child.Level)
	assert.Equal(t, root.ID, child.ParentID)

	t.Run("MissingParent", func(t *testing.T) {
		_, err := PermissionServiceInstance.CreatePermission(ctx, &params.CreatePermissionRequest{
			Name: "orphan", Number: "ORPHAN", ParentID: 999,
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("DuplicateNumber", func(t *testing.T) {
		_, err := PermissionServiceInstance.CreatePermission(ctx, &params.CreatePermissionRequest{
			Name: "dup", Number: "SYS",
		})
		assert.ErrorIs(t, err, repository.ErrConflict)
	})
}

func TestCreatePermissionsBatch(t *testing.T) {
	ctx := context.Background()
	setupServices(t)

	err := PermissionServiceInstance.CreatePermissions(ctx, &params.CreatePermissionsRequest{
		Permissions: []*params.CreatePermissionRequest{
			{Name: "a", Number: "A", Status: 1},
			{Name: "b", Number: "B", Status: 1},
		},
	})
	require.NoError(t, err)

	all, err := dao.PermissionRepo.FindAllBy(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// 编号冲突时整批回滚
	err = PermissionServiceInstance.CreatePermissions(ctx, &params.CreatePermissionsRequest{
		Permissions: []*params.CreatePermissionRequest{
			{Name: "c", Number: "C", Status: 1},
			{Name: "dup", Number: "A", Status: 1},
		},
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	all, err = dao.PermissionRepo.FindAllBy(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdatePermissionReparent(t *testing.T) {
	ctx := context.Background()
	setupServices(t)

	root := createPermission(t, ctx, "system", "SYS", 0)
	userMgmt := createPermission(t, ctx, "user-mgmt", "SYS_USER", root.ID)
	userCreate := createPermission(t, ctx, "user-create", "SYS_USER_ADD", userMgmt.ID)
	roleMgmt := createPermission(t, ctx, "role-mgmt", "SYS_ROLE", root.ID)

	t.Run("MoveSubtree", func(t *testing.T) {
		_, err := PermissionServiceInstance.UpdatePermission(ctx, &params.UpdatePermissionRequest{
			ID:       userMgmt.ID,
			ParentID: &roleMgmt.ID,
		})
		require.NoError(t, err)

		moved, err := dao.PermissionRepo.FindByID(ctx, userMgmt.ID)
		require.NoError(t, err)
		assert.Equal(t, roleMgmt.ID, moved.ParentID)
		assert.Equal(t, 3, moved.Level)

		// 子树层级跟随重算并落库
		leaf, err := dao.PermissionRepo.FindByID(ctx, userCreate.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, leaf.Level)
	})

	t.Run("MoveToRoot", func(t *testing.T) {
		rootID := uint64(0)
		_, err := PermissionServiceInstance.UpdatePermission(ctx, &params.UpdatePermissionRequest{
			ID:       userMgmt.ID,
			ParentID: &rootID,
		})
		require.NoError(t, err)

		moved, err := dao.PermissionRepo.FindByID(ctx, userMgmt.ID)
		require.NoError(t, err)
		assert.Zero(t, moved.ParentID)
		assert.Equal(t, 1, moved.Level)
	})

	t.Run("RejectCycle", func(t *testing.T) {
		_, err := PermissionServiceInstance.UpdatePermission(ctx, &params.UpdatePermissionRequest{
			ID:       userMgmt.ID,
			ParentID: &userCreate.ID,
		})
		assert.ErrorIs(t, err, repository.ErrInvalidScope)
	})
}

func TestDeletePermissionPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectIfChildren", func(t *testing.T) {
		setupServices(t)
		root := createPermission(t, ctx, "system", "SYS", 0)
		createPermission(t, ctx, "child", "SYS_CHILD", root.ID)

		err := PermissionServiceInstance.DeletePermission(ctx, root.ID, params.RejectIfChildren)
		assert.ErrorIs(t, err, repository.ErrConflict)

		// 子节点删除后即可删除
		child, err := dao.PermissionRepo.FindBy(ctx, map[string]any{"number": "SYS_CHILD"})
		require.NoError(t, err)
		require.NoError(t, PermissionServiceInstance.DeletePermission(ctx, child.ID, params.RejectIfChildren))
		require.NoError(t, PermissionServiceInstance.DeletePermission(ctx, root.ID, params.RejectIfChildren))
	})

	t.Run("CascadeDelete", func(t *testing.T) {
		setupServices(t)
		root := createPermission(t, ctx, "system", "SYS", 0)
		child := createPermission(t, ctx, "child", "SYS_CHILD", root.ID)
		leaf := createPermission(t, ctx, "leaf", "SYS_LEAF", child.ID)
		other := createPermission(t, ctx, "other", "OTHER", 0)

		require.NoError(t, PermissionServiceInstance.DeletePermission(ctx, root.ID, params.CascadeDelete))

		for _, id := range []uint64{root.ID, child.ID, leaf.ID} {
			got, err := dao.PermissionRepo.FindByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 1, got.IsDeleted, "permission %d should be soft deleted", id)
		}
		got, err := dao.PermissionRepo.FindByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Zero(t, got.IsDeleted)
	})

	t.Run("AlreadyDeleted", func(t *testing.T) {
		setupServices(t)
		root := createPermission(t, ctx, "system", "SYS", 0)
		require.NoError(t, PermissionServiceInstance.DeletePermission(ctx, root.ID, params.RejectIfChildren))

		err := PermissionServiceInstance.DeletePermission(ctx, root.ID, params.RejectIfChildren)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestGetPermissionTree(t *testing.T) {
	ctx := context.Background()
	setupServices(t)

	root := createPermission(t, ctx, "system", "SYS", 0)
	createPermission(t, ctx, "user-mgmt", "SYS_USER", root.ID)
	deleted := createPermission(t, ctx, "gone", "SYS_GONE", root.ID)
	require.NoError(t, PermissionServiceInstance.DeletePermission(ctx, deleted.ID, params.RejectIfChildren))

	tree, err := PermissionServiceInstance.GetPermissionTree(ctx, &params.GetPermissionTreeRequest{})
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "SYS_USER", tree[0].Children[0].Number)
}

func TestRoleLifecycle(t *testing.T) {
	ctx := context.Background()
	setupServices(t)

	perm := createPermission(t, ctx, "user-list", "USER_LIST", 0)

	created, err := PermissionServiceInstance.CreateRole(ctx, &params.CreateRoleRequest{
		Name:           "auditor",
		RoleNumber:     "auditor",
		AccessLevel:    enums.AccessLevelTargetDept,
		AllowedDeptIDs: []uint64{3, 7},
		Status:         1,
		PermissionIDs:  []uint64{perm.ID},
	}, "root")
	require.NoError(t, err)
	assert.Equal(t, "指定部门", created.AccessLabel)
	assert.ElementsMatch(t, []uint64{3, 7}, created.AllowedDeptIDs)
	require.Len(t, created.Permissions, 1)

	t.Run("InvalidAccessLevel", func(t *testing.T) {
		_, err := PermissionServiceInstance.CreateRole(ctx, &params.CreateRoleRequest{
			Name: "bad", RoleNumber: "bad", AccessLevel: 42,
		}, "root")
		assert.ErrorIs(t, err, repository.ErrInvalidScope)
	})

	t.Run("UpdateReplacesPermissions", func(t *testing.T) {
		perm2 := createPermission(t, ctx, "user-del", "USER_DEL", 0)
		newIDs := []uint64{perm2.ID}
		updated, err := PermissionServiceInstance.UpdateRole(ctx, &params.UpdateRoleRequest{
			ID:            created.ID,
			PermissionIDs: &newIDs,
		}, "root")
		require.NoError(t, err)
		require.Len(t, updated.Permissions, 1)
		assert.Equal(t, "USER_DEL", updated.Permissions[0].Number)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, PermissionServiceInstance.DeleteRole(ctx, created.ID))

		_, err := dao.RoleRepo.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		// 角色权限关联随之清除
		links, err := dao.RolePermissionRepo.FindAllBy(ctx, map[string]any{"role_id": []uint64{created.ID}})
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestAssignRolePermissionsDiff(t *testing.T) {
	ctx := context.Background()
	setupServices(t)

	permA := createPermission(t, ctx, "a", "A", 0)
	permB := createPermission(t, ctx, "b", "B", 0)
	permC := createPermission(t, ctx, "c", "C", 0)

	role := &models.Role{Name: "r", RoleNumber: "r", AccessLevel: enums.AccessLevelOwnDept, Status: 1}
	require.NoError(t, dao.RoleRepo.Create(ctx, role))

	require.NoError(t, PermissionServiceInstance.AssignRolePermissions(ctx, role.ID, []uint64{permA.ID, permB.ID}))

	// 差量更新: 移除A，保留B，新增C
	require.NoError(t, PermissionServiceInstance.AssignRolePermissions(ctx, role.ID, []uint64{permB.ID, permC.ID}))

	permissions, err := PermissionServiceInstance.RetrievePermissionsByRoleID(ctx, role.ID)
	require.NoError(t, err)
	got := lo.Map(permissions, func(p models.Permission, _ int) uint64 { return p.ID })
	assert.ElementsMatch(t, []uint64{permB.ID, permC.ID}, got)
}

func TestDepartmentService(t *testing.T) {
	ctx := context.Background()
	setupServices(t)
	seedDepartments(t, ctx)

	t.Run("Tree", func(t *testing.T) {
		tree, err := DepartmentServiceInstance.GetDepartmentTree(ctx)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "hq", tree[0].Name)
		require.Len(t, tree[0].Children, 2)
	})

	t.Run("SubtreeIDs", func(t *testing.T) {
		ids, err := DepartmentServiceInstance.SubtreeIDs(ctx, 2)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint64{2, 3}, ids)
	})

	t.Run("DeleteWithChildrenRejected", func(t *testing.T) {
		err := DepartmentServiceInstance.DeleteDepartment(ctx, 2)
		assert.ErrorIs(t, err, repository.ErrConflict)

		require.NoError(t, DepartmentServiceInstance.DeleteDepartment(ctx, 3))
		require.NoError(t, DepartmentServiceInstance.DeleteDepartment(ctx, 2))
	})

	t.Run("ReparentCycleRejected", func(t *testing.T) {
		seven := uint64(7)
		_, err := DepartmentServiceInstance.UpdateDepartment(ctx, &params.UpdateDepartmentRequest{
			ID:       1,
			ParentID: &seven,
		})
		assert.ErrorIs(t, err, repository.ErrInvalidScope)
	})
}

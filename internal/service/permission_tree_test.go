package service

import (
	"testing"

	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 构造样例树:
//
//	1 system
//	├── 2 user-mgmt
//	│   ├── 4 user-create
//	│   └── 5 user-delete
//	└── 3 role-mgmt
func sampleArena() *PermissionArena {
	return NewPermissionArena([]models.Permission{
		{ID: 1, Name: "system", Number: "SYS", ParentID: 0, Level: 1, Status: 1, Sort: 1},
		{ID: 2, Name: "user-mgmt", Number: "SYS_USER", ParentID: 1, Level: 2, Status: 1, Sort: 1},
		{ID: 3, Name: "role-mgmt", Number: "SYS_ROLE", ParentID: 1, Level: 2, Status: 1, Sort: 2},
		{ID: 4, Name: "user-create", Number: "SYS_USER_ADD", ParentID: 2, Level: 3, Status: 1, Sort: 1},
		{ID: 5, Name: "user-delete", Number: "SYS_USER_DEL", ParentID: 2, Level: 3, Status: 1, Sort: 2},
	})
}

func TestPermissionArena_IsDescendant(t *testing.T) {
	arena := sampleArena()

	assert.True(t, arena.IsDescendant(1, 4))
	assert.True(t, arena.IsDescendant(2, 5))
	assert.True(t, arena.IsDescendant(3, 3)) // 自身视为后代
	assert.False(t, arena.IsDescendant(2, 3))
	assert.False(t, arena.IsDescendant(4, 1))
}

func TestPermissionArena_AddChild(t *testing.T) {
	arena := sampleArena()

	child := &models.Permission{ID: 6, Name: "role-assign", Number: "SYS_ROLE_ASSIGN", Status: 1}
	require.NoError(t, arena.AddChild(3, child))
	assert.Equal(t, uint64(3), child.ParentID)
	assert.Equal(t, 3, child.Level)

	t.Run("DuplicateNumberUnderSameParent", func(t *testing.T) {
		dup := &models.Permission{ID: 7, Number: "SYS_USER_ADD"}
		err := arena.AddChild(2, dup)
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("MissingParent", func(t *testing.T) {
		orphan := &models.Permission{ID: 8, Number: "X"}
		err := arena.AddChild(999, orphan)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestPermissionArena_Reparent(t *testing.T) {
	t.Run("MoveSubtree", func(t *testing.T) {
		arena := sampleArena()
		require.NoError(t, arena.Reparent(2, 3))

		moved, _ := arena.Get(2)
		assert.Equal(t, uint64(3), moved.ParentID)
		assert.Equal(t, 3, moved.Level)

		// 子树层级整体重算
		leaf, _ := arena.Get(4)
		assert.Equal(t, 4, leaf.Level)
	})

	t.Run("MoveToRoot", func(t *testing.T) {
		arena := sampleArena()
		require.NoError(t, arena.Reparent(2, 0))

		moved, _ := arena.Get(2)
		assert.Zero(t, moved.ParentID)
		assert.Equal(t, 1, moved.Level)
		leaf, _ := arena.Get(5)
		assert.Equal(t, 2, leaf.Level)
	})

	t.Run("RejectMoveOntoOwnDescendant", func(t *testing.T) {
		arena := sampleArena()
		err := arena.Reparent(2, 4)
		assert.ErrorIs(t, err, repository.ErrInvalidScope)

		err = arena.Reparent(1, 1)
		assert.ErrorIs(t, err, repository.ErrInvalidScope)
	})

	t.Run("MissingTarget", func(t *testing.T) {
		arena := sampleArena()
		assert.ErrorIs(t, arena.Reparent(2, 999), repository.ErrNotFound)
		assert.ErrorIs(t, arena.Reparent(999, 1), repository.ErrNotFound)
	})
}

func TestPermissionArena_RemoveChild(t *testing.T) {
	arena := sampleArena()

	require.NoError(t, arena.RemoveChild(1, 2))
	detached, _ := arena.Get(2)
	assert.Zero(t, detached.ParentID)
	assert.Equal(t, 1, detached.Level)

	// 孙辈仍指向被摘除的节点
	grandchild, _ := arena.Get(4)
	assert.Equal(t, uint64(2), grandchild.ParentID)

	err := arena.RemoveChild(1, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, arena.RemoveChild(3, 4), repository.ErrInvalidScope)
	assert.ErrorIs(t, arena.RemoveChild(1, 999), repository.ErrNotFound)
}

func TestPermissionArena_SubtreeIDs(t *testing.T) {
	arena := sampleArena()

	ids := arena.SubtreeIDs(2)
	assert.ElementsMatch(t, []uint64{2, 4, 5}, ids)

	ids = arena.SubtreeIDs(1)
	assert.ElementsMatch(t, []uint64{1, 2, 3, 4, 5}, ids)

	assert.Nil(t, arena.SubtreeIDs(999))
}

func TestPermissionArena_HasActiveChildren(t *testing.T) {
	arena := NewPermissionArena([]models.Permission{
		{ID: 1, Number: "A", Level: 1, Status: 1},
		{ID: 2, Number: "B", ParentID: 1, Level: 2, Status: 1, IsDeleted: 1},
	})

	// 唯一的子节点已软删除
	assert.False(t, arena.HasActiveChildren(1))

	arena2 := sampleArena()
	assert.True(t, arena2.HasActiveChildren(2))
	assert.False(t, arena2.HasActiveChildren(4))
}

func TestPermissionArena_BuildTree(t *testing.T) {
	arena := sampleArena()

	t.Run("Forest", func(t *testing.T) {
		tree, err := arena.BuildTree(0)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "system", tree[0].Name)
		require.Len(t, tree[0].Children, 2)
		// 同级按sort升序
		assert.Equal(t, "user-mgmt", tree[0].Children[0].Name)
		assert.Equal(t, "role-mgmt", tree[0].Children[1].Name)
		assert.Len(t, tree[0].Children[0].Children, 2)
	})

	t.Run("Subtree", func(t *testing.T) {
		tree, err := arena.BuildTree(2)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "user-mgmt", tree[0].Name)
		assert.Len(t, tree[0].Children, 2)
	})

	t.Run("MissingRoot", func(t *testing.T) {
		_, err := arena.BuildTree(999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ExcludesDisabledAndDeleted", func(t *testing.T) {
		mixed := NewPermissionArena([]models.Permission{
			{ID: 1, Number: "ROOT", Level: 1, Status: 1},
			{ID: 2, Number: "OFF", ParentID: 1, Level: 2, Status: 0},
			{ID: 3, Number: "GONE", ParentID: 1, Level: 2, Status: 1, IsDeleted: 1},
			{ID: 4, Number: "ON", ParentID: 1, Level: 2, Status: 1},
		})
		tree, err := mixed.BuildTree(0)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		require.Len(t, tree[0].Children, 1)
		assert.Equal(t, "ON", tree[0].Children[0].Number)
	})
}

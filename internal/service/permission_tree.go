package service

import (
	"sort"

	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/internal/domain/vo"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

// PermissionArena 权限树的内存索引
// 节点按ID扁平存放，父子关系只存parent_id；树视图按需从索引推导，
// 不维护常驻的双向指针结构。
type PermissionArena struct {
	nodes map[uint64]*models.Permission
}

// NewPermissionArena 从权限列表构建索引
func NewPermissionArena(permissions []models.Permission) *PermissionArena {
	arena := &PermissionArena{
		nodes: make(map[uint64]*models.Permission, len(permissions)),
	}
	for i := range permissions {
		p := permissions[i]
		p.Children = nil
		arena.nodes[p.ID] = &p
	}
	return arena
}

// Get 按ID取节点，软删除节点仍可寻址
func (a *PermissionArena) Get(id uint64) (*models.Permission, bool) {
	node, ok := a.nodes[id]
	return node, ok
}

// AddChild 把child挂到parent下
// 同一父节点下业务编号重复的子节点被拒绝；child的level设为parent.level+1，
// 孙辈层级不在此处修正，整体重算交给RecomputeLevels。
func (a *PermissionArena) AddChild(parentID uint64, child *models.Permission) error {
	parent, ok := a.nodes[parentID]
	if !ok {
		return errors.Wrapf(repository.ErrNotFound, "parent permission %d", parentID)
	}

	for _, node := range a.nodes {
		if node.ParentID == parentID && node.Number == child.Number && node.ID != child.ID {
			return errors.Wrapf(repository.ErrConflict, "permission number %q already exists under parent %d", child.Number, parentID)
		}
	}

	child.ParentID = parentID
	child.Level = parent.Level + 1
	a.nodes[child.ID] = child
	return nil
}

// RemoveChild 把child从parent下摘除，挂回根
// 孙辈节点的parent_id保持指向被摘除的child，不做级联调整。
func (a *PermissionArena) RemoveChild(parentID, childID uint64) error {
	child, ok := a.nodes[childID]
	if !ok {
		return errors.Wrapf(repository.ErrNotFound, "permission %d", childID)
	}
	if child.ParentID != parentID {
		return errors.Wrapf(repository.ErrInvalidScope, "permission %d is not a child of %d", childID, parentID)
	}

	child.ParentID = 0
	child.Level = 1
	return nil
}

// IsDescendant 判断candidate是否在ancestor的子树内（含自身）
// 沿parent链上溯，带访问标记，畸形的父链不会导致死循环。
func (a *PermissionArena) IsDescendant(ancestorID, candidateID uint64) bool {
	if ancestorID == candidateID {
		return true
	}
	visited := make(map[uint64]bool)
	current := candidateID
	for current != 0 && !visited[current] {
		visited[current] = true
		node, ok := a.nodes[current]
		if !ok {
			return false
		}
		if node.ParentID == ancestorID {
			return true
		}
		current = node.ParentID
	}
	return false
}

// Reparent 把节点移动到新父节点下
// 目标父节点位于该节点自己的子树内时拒绝，保证树无环。
func (a *PermissionArena) Reparent(id, newParentID uint64) error {
	node, ok := a.nodes[id]
	if !ok {
		return errors.Wrapf(repository.ErrNotFound, "permission %d", id)
	}

	if newParentID == 0 {
		node.ParentID = 0
		node.Level = 1
		a.RecomputeLevels(id)
		return nil
	}

	if a.IsDescendant(id, newParentID) {
		return errors.Wrapf(repository.ErrInvalidScope, "cannot move permission %d under its own descendant %d", id, newParentID)
	}

	parent, ok := a.nodes[newParentID]
	if !ok {
		return errors.Wrapf(repository.ErrNotFound, "parent permission %d", newParentID)
	}

	node.ParentID = newParentID
	node.Level = parent.Level + 1
	a.RecomputeLevels(id)
	return nil
}

// RecomputeLevels 自rootID起逐层重算 level = parent.level + 1
func (a *PermissionArena) RecomputeLevels(rootID uint64) {
	root, ok := a.nodes[rootID]
	if !ok {
		return
	}

	childrenOf := a.childIndex()
	queue := []*models.Permission{root}
	visited := map[uint64]bool{root.ID: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range childrenOf[current.ID] {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			child.Level = current.Level + 1
			queue = append(queue, child)
		}
	}
}

// SubtreeIDs 返回rootID子树的全部节点ID（含自身），含软删除节点
func (a *PermissionArena) SubtreeIDs(rootID uint64) []uint64 {
	if _, ok := a.nodes[rootID]; !ok {
		return nil
	}

	childrenOf := a.childIndex()
	ids := []uint64{rootID}
	visited := map[uint64]bool{rootID: true}
	queue := []uint64{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range childrenOf[current] {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			ids = append(ids, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return ids
}

// HasActiveChildren 判断节点是否存在未删除的直接子节点
func (a *PermissionArena) HasActiveChildren(id uint64) bool {
	for _, node := range a.nodes {
		if node.ParentID == id && node.IsDeleted == 0 {
			return true
		}
	}
	return false
}

// BuildTree 构建树形视图
// rootID为0时返回全部根节点的森林；软删除和禁用节点不出现在视图中；
// 子节点按sort升序、再按ID升序排列。
func (a *PermissionArena) BuildTree(rootID uint64) ([]*vo.Permission, error) {
	childrenOf := a.childIndex()

	var build func(node *models.Permission, visited map[uint64]bool) (*vo.Permission, error)
	build = func(node *models.Permission, visited map[uint64]bool) (*vo.Permission, error) {
		if visited[node.ID] {
			// 畸形父链，终止该分支
			return nil, nil
		}
		visited[node.ID] = true

		var view vo.Permission
		if err := copier.Copy(&view, node); err != nil {
			return nil, errors.Wrap(err, "failed to copy permission to view")
		}
		view.Children = nil

		for _, child := range sortedChildren(childrenOf[node.ID]) {
			if !child.IsEnabled() {
				continue
			}
			childView, err := build(child, visited)
			if err != nil {
				return nil, err
			}
			if childView != nil {
				view.Children = append(view.Children, childView)
			}
		}
		return &view, nil
	}

	var roots []*models.Permission
	if rootID != 0 {
		node, ok := a.nodes[rootID]
		if !ok {
			return nil, errors.Wrapf(repository.ErrNotFound, "permission %d", rootID)
		}
		roots = []*models.Permission{node}
	} else {
		for _, node := range a.nodes {
			if node.ParentID == 0 {
				roots = append(roots, node)
			}
		}
		roots = sortedChildren(roots)
	}

	var result []*vo.Permission
	visited := make(map[uint64]bool)
	for _, root := range roots {
		if !root.IsEnabled() {
			continue
		}
		view, err := build(root, visited)
		if err != nil {
			return nil, err
		}
		if view != nil {
			result = append(result, view)
		}
	}
	return result, nil
}

// childIndex 按parent_id分组
func (a *PermissionArena) childIndex() map[uint64][]*models.Permission {
	index := make(map[uint64][]*models.Permission)
	for _, node := range a.nodes {
		if node.ParentID != 0 {
			index[node.ParentID] = append(index[node.ParentID], node)
		}
	}
	return index
}

// sortedChildren 按sort升序、ID升序排列
func sortedChildren(children []*models.Permission) []*models.Permission {
	sorted := append([]*models.Permission(nil), children...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Sort != sorted[j].Sort {
			return sorted[i].Sort < sorted[j].Sort
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

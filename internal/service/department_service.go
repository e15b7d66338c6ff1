package service

import (
	"context"
	"sort"

	"github.com/ayxworxfr/go_authcore/internal/dao"
	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
	"github.com/ayxworxfr/go_authcore/internal/domain/models"
	"github.com/ayxworxfr/go_authcore/internal/domain/params"
	"github.com/ayxworxfr/go_authcore/internal/domain/vo"
	"github.com/ayxworxfr/go_authcore/pkg/logger"
	"github.com/ayxworxfr/go_authcore/pkg/repository"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DepartmentService 部门管理服务
type DepartmentService struct {
	deptRepo repository.Repository[models.Department]
}

// NewDepartmentService 创建部门服务实例
func NewDepartmentService() *DepartmentService {
	return &DepartmentService{
		deptRepo: dao.DepartmentRepo,
	}
}

// CreateDepartment 创建部门
func (s *DepartmentService) CreateDepartment(ctx context.Context, req *params.CreateDepartmentRequest) (*vo.Department, error) {
	if req.ParentID != 0 {
		if _, err := s.deptRepo.FindByID(ctx, req.ParentID); err != nil {
			logger.Error(ctx, "Failed to retrieve parent department", zap.Error(err), zap.Uint64("parent_id", req.ParentID))
			return nil, errors.Wrap(err, "failed to retrieve parent department")
		}
	}

	var dept models.Department
	if err := copier.Copy(&dept, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to department")
	}

	if err := s.deptRepo.Create(ctx, &dept); err != nil {
		logger.Error(ctx, "Failed to create department", zap.Error(err))
		return nil, errors.Wrap(err, "failed to create department")
	}

	var result vo.Department
	if err := copier.Copy(&result, &dept); err != nil {
		return nil, errors.Wrap(err, "failed to copy department to result")
	}
	return &result, nil
}

// UpdateDepartment 更新部门
// 变更parent_id时拒绝挂到自身子树内，避免成环。
func (s *DepartmentService) UpdateDepartment(ctx context.Context, req *params.UpdateDepartmentRequest) (*vo.Department, error) {
	dept, err := s.deptRepo.FindByID(ctx, req.ID)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve department", zap.Error(err), zap.Uint64("department_id", req.ID))
		return nil, errors.Wrap(err, "failed to retrieve department")
	}

	if req.ParentID != nil && *req.ParentID != dept.ParentID {
		if *req.ParentID == dept.ID {
			return nil, errors.Wrapf(repository.ErrInvalidScope, "department %d cannot be its own parent", dept.ID)
		}
		if *req.ParentID != 0 {
			subtree, err := s.SubtreeIDs(ctx, dept.ID)
			if err != nil {
				return nil, err
			}
			for _, id := range subtree {
				if id == *req.ParentID {
					return nil, errors.Wrapf(repository.ErrInvalidScope, "department %d is a descendant of %d", *req.ParentID, dept.ID)
				}
			}
			if _, err := s.deptRepo.FindByID(ctx, *req.ParentID); err != nil {
				return nil, errors.Wrap(err, "failed to retrieve parent department")
			}
		}
	}

	if err := copier.Copy(dept, &req); err != nil {
		return nil, errors.Wrap(err, "failed to copy request to department")
	}
	if req.Status != nil {
		dept.Status = *req.Status
	}

	if err := s.deptRepo.Update(ctx, dept); err != nil {
		logger.Error(ctx, "Failed to update department", zap.Error(err), zap.Uint64("department_id", req.ID))
		return nil, errors.Wrap(err, "failed to update department")
	}

	// 迁移到根或显式禁用属于零值写入，需指定列
	var cols []string
	if req.ParentID != nil && *req.ParentID == 0 {
		cols = append(cols, "parent_id")
	}
	if req.Status != nil && *req.Status == enums.StatusDisabled {
		cols = append(cols, "status")
	}
	if len(cols) > 0 {
		err := s.deptRepo.UpdateByOption(ctx, dept, &repository.QueryOption{
			Filters: []repository.Condition{{Field: "id", Op: repository.OpEq, Value: dept.ID}},
			Cols:    cols,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to update department columns")
		}
	}

	var result vo.Department
	if err := copier.Copy(&result, dept); err != nil {
		return nil, errors.Wrap(err, "failed to copy department to result")
	}
	return &result, nil
}

// DeleteDepartment 删除部门（存在子部门时拒绝）
func (s *DepartmentService) DeleteDepartment(ctx context.Context, id uint64) error {
	_, err := s.deptRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve department", zap.Error(err), zap.Uint64("department_id", id))
		return errors.Wrap(err, "failed to retrieve department")
	}

	children, err := s.ChildrenOf(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return errors.Wrapf(repository.ErrConflict, "department %d has child departments", id)
	}

	if err := s.deptRepo.DeleteByID(ctx, id); err != nil {
		logger.Error(ctx, "Failed to delete department", zap.Error(err), zap.Uint64("department_id", id))
		return errors.Wrap(err, "failed to delete department")
	}
	return nil
}

// GetDepartment 获取单个部门
func (s *DepartmentService) GetDepartment(ctx context.Context, id uint64) (*vo.Department, error) {
	dept, err := s.deptRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve department", zap.Error(err), zap.Uint64("department_id", id))
		return nil, errors.Wrap(err, "failed to retrieve department")
	}

	var result vo.Department
	if err := copier.Copy(&result, &dept); err != nil {
		return nil, errors.Wrap(err, "failed to copy department to result")
	}
	return &result, nil
}

// GetDepartmentList 获取部门列表
func (s *DepartmentService) GetDepartmentList(ctx context.Context, req *params.GetDepartmentListRequest) ([]vo.Department, int64, error) {
	depts, total, err := s.deptRepo.List(ctx, req.ToFilters(), &repository.ListOptions{
		Page:      req.Page.Page,
		PageSize:  req.PageSize,
		NeedTotal: req.NeedTotal,
	})
	if err != nil {
		logger.Error(ctx, "Failed to retrieve departments", zap.Error(err))
		return nil, 0, errors.Wrap(err, "failed to retrieve departments")
	}

	var result []vo.Department
	if err := copier.Copy(&result, &depts); err != nil {
		return nil, 0, errors.Wrap(err, "failed to copy departments to result")
	}
	return result, total, nil
}

// GetDepartmentTree 构建部门树视图，同级按sort、id排序
func (s *DepartmentService) GetDepartmentTree(ctx context.Context) ([]*vo.Department, error) {
	depts, err := s.deptRepo.FindAllBy(ctx, nil)
	if err != nil {
		logger.Error(ctx, "Failed to retrieve departments", zap.Error(err))
		return nil, errors.Wrap(err, "failed to retrieve departments")
	}

	byParent := make(map[uint64][]models.Department)
	for _, dept := range depts {
		byParent[dept.ParentID] = append(byParent[dept.ParentID], dept)
	}

	var build func(parentID uint64) []*vo.Department
	build = func(parentID uint64) []*vo.Department {
		children := byParent[parentID]
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].Sort != children[j].Sort {
				return children[i].Sort < children[j].Sort
			}
			return children[i].ID < children[j].ID
		})

		nodes := make([]*vo.Department, 0, len(children))
		for _, child := range children {
			node := &vo.Department{}
			if err := copier.Copy(node, &child); err != nil {
				continue
			}
			node.Children = build(child.ID)
			nodes = append(nodes, node)
		}
		return nodes
	}

	return build(0), nil
}

// ChildrenOf 获取直接子部门
func (s *DepartmentService) ChildrenOf(ctx context.Context, deptID uint64) ([]models.Department, error) {
	children, err := s.deptRepo.FindAllBy(ctx, map[string]any{
		"parent_id": deptID,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to retrieve children of department %d", deptID)
	}
	return children, nil
}

// SubtreeIDs 获取部门及全部后代的ID集合，BFS遍历
func (s *DepartmentService) SubtreeIDs(ctx context.Context, deptID uint64) ([]uint64, error) {
	depts, err := s.deptRepo.FindAllBy(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve departments")
	}

	childrenOf := make(map[uint64][]uint64)
	for _, dept := range depts {
		childrenOf[dept.ParentID] = append(childrenOf[dept.ParentID], dept.ID)
	}

	result := []uint64{deptID}
	visited := map[uint64]bool{deptID: true}
	queue := []uint64{deptID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range childrenOf[current] {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			result = append(result, childID)
			queue = append(queue, childID)
		}
	}
	return result, nil
}

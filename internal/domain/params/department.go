package params

// ---------------------- 部门管理模块 ----------------------

// CreateDepartmentRequest 创建部门请求
type CreateDepartmentRequest struct {
	Name     string `json:"name"`
	ParentID uint64 `json:"parent_id"`
	Sort     int    `json:"sort"`
	Status   int    `json:"status"`
}

// UpdateDepartmentRequest 更新部门请求
type UpdateDepartmentRequest struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	ParentID *uint64 `json:"parent_id"`
	Sort     int     `json:"sort"`
	Status   *int    `json:"status"`
}

// DeleteDepartmentRequest 删除部门请求
type DeleteDepartmentRequest struct {
	IDs []uint64 `json:"ids"`
}

// GetDepartmentListRequest 获取部门列表请求
type GetDepartmentListRequest struct {
	Page
	Name     string `query:"name" xorm:"name op=like"`
	ParentID uint64 `query:"parent_id" xorm:"parent_id op=eq"`
	Status   int    `query:"status" xorm:"status op=eq"`
}

// ToFilters 转换为条件映射
func (r *GetDepartmentListRequest) ToFilters() map[string]any {
	filters := make(map[string]any)
	if r.Name != "" {
		filters["name"] = r.Name
	}
	if r.ParentID != 0 {
		filters["parent_id"] = r.ParentID
	}
	if r.Status != 0 {
		filters["status"] = r.Status
	}
	return filters
}

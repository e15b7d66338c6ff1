package params

// ---------------------- 权限管理模块 ----------------------

// DeletePolicy 删除含子节点权限时的策略
type DeletePolicy int

const (
	// RejectIfChildren 存在未删除子节点时拒绝删除
	RejectIfChildren DeletePolicy = iota
	// CascadeDelete 连同全部后代一并软删除
	CascadeDelete
)

// CreatePermissionRequest 创建权限请求
type CreatePermissionRequest struct {
	Name      string `json:"name"`
	Number    string `json:"number"`
	ParentID  uint64 `json:"parent_id"`
	MenuType  int    `json:"menu_type"` // 1:目录,2:菜单,3:按钮
	Status    int    `json:"status"`
	Sort      int    `json:"sort"`
	Path      string `json:"path"`
	Component string `json:"component"`
	Icon      string `json:"icon"`
	Perms     string `json:"perms"`
}

// CreatePermissionsRequest 批量创建权限请求
type CreatePermissionsRequest struct {
	Permissions []*CreatePermissionRequest `json:"permissions"`
}

// UpdatePermissionRequest 更新权限请求
type UpdatePermissionRequest struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Number    string  `json:"number"`
	ParentID  *uint64 `json:"parent_id"` // 指针区分未设置和挂到根
	MenuType  int     `json:"menu_type"`
	Status    *int    `json:"status"` // 指针区分未设置和禁用
	Sort      int     `json:"sort"`
	Path      string  `json:"path"`
	Component string  `json:"component"`
	Icon      string  `json:"icon"`
	Perms     string  `json:"perms"`
}

// DeletePermissionRequest 删除权限请求
type DeletePermissionRequest struct {
	IDs    []uint64     `json:"ids"`
	Policy DeletePolicy `json:"policy"`
}

// GetPermissionRequest 获取权限请求
type GetPermissionRequest struct {
	ID uint64 `query:"id"`
}

// GetPermissionListRequest 获取权限列表请求
type GetPermissionListRequest struct {
	Page
	Name     string `query:"name" xorm:"name op=like"`
	Number   string `query:"number" xorm:"number op=eq"`
	MenuType int    `query:"menu_type" xorm:"menu_type op=eq"`
	ParentID uint64 `query:"parent_id" xorm:"parent_id op=eq"`
	Status   int    `query:"status" xorm:"status op=eq"`
}

// ToFilters 转换为条件映射
func (r *GetPermissionListRequest) ToFilters() map[string]any {
	filters := make(map[string]any)
	if r.Name != "" {
		filters["name"] = r.Name
	}
	if r.Number != "" {
		filters["number"] = r.Number
	}
	if r.MenuType != 0 {
		filters["menu_type"] = r.MenuType
	}
	if r.ParentID != 0 {
		filters["parent_id"] = r.ParentID
	}
	if r.Status != 0 {
		filters["status"] = r.Status
	}
	return filters
}

// GetPermissionTreeRequest 获取权限树请求
type GetPermissionTreeRequest struct {
	RootID uint64 `query:"root_id"` // 0表示全部根节点
}

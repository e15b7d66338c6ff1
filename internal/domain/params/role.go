package params

// ---------------------- 角色管理模块 ----------------------

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Name           string   `json:"name"`
	RoleNumber     string   `json:"role_number"`
	Description    string   `json:"description"`
	AccessLevel    int      `json:"access_level"`
	AllowedDeptIDs []uint64 `json:"allowed_dept_ids"`
	Areas          []string `json:"areas"`
	Status         int      `json:"status"`
	PermissionIDs  []uint64 `json:"permission_ids"`
}

// CreateRolesRequest 批量创建角色请求
type CreateRolesRequest struct {
	Roles []*CreateRoleRequest `json:"roles"`
}

// UpdateRoleRequest 更新角色请求
type UpdateRoleRequest struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	RoleNumber     string    `json:"role_number"`
	Description    string    `json:"description"`
	AccessLevel    int       `json:"access_level"`
	AllowedDeptIDs *[]uint64 `json:"allowed_dept_ids"` // 指针区分未设置和清空
	Areas          *[]string `json:"areas"`
	Status         *int      `json:"status"`
	PermissionIDs  *[]uint64 `json:"permission_ids"` // 指针区分未设置和空数组
}

// DeleteRoleRequest 删除角色请求
type DeleteRoleRequest struct {
	IDs []uint64 `json:"ids"`
}

// GetRoleRequest 获取角色请求
type GetRoleRequest struct {
	ID uint64 `query:"id"`
}

// GetRoleListRequest 获取角色列表请求
type GetRoleListRequest struct {
	Page
	Name        string `query:"name" xorm:"name op=like"`
	RoleNumber  string `query:"role_number" xorm:"role_number op=eq"`
	AccessLevel int    `query:"access_level" xorm:"access_level op=eq"`
	Status      int    `query:"status" xorm:"status op=eq"`
}

// ToFilters 转换为条件映射
func (r *GetRoleListRequest) ToFilters() map[string]any {
	filters := make(map[string]any)
	if r.Name != "" {
		filters["name"] = r.Name
	}
	if r.RoleNumber != "" {
		// role_number为集合过滤字段，单值包一层切片
		filters["role_number"] = []string{r.RoleNumber}
	}
	if r.AccessLevel != 0 {
		filters["access_level"] = r.AccessLevel
	}
	if r.Status != 0 {
		filters["status"] = r.Status
	}
	return filters
}

// GetRolePermissionsRequest 获取角色权限请求
type GetRolePermissionsRequest struct {
	RoleID uint64 `query:"role_id"`
}

// AssignRolePermissionsRequest 分配角色权限请求
type AssignRolePermissionsRequest struct {
	RoleID        uint64   `json:"role_id"`
	PermissionIDs []uint64 `json:"permission_ids"`
}

// AssignRolesRequest 分配用户角色请求
type AssignRolesRequest struct {
	UserID  uint64   `json:"user_id"`
	RoleIDs []uint64 `json:"role_ids"`
}

// GetUserRolesRequest 获取用户角色请求
type GetUserRolesRequest struct {
	UserID uint64 `query:"user_id"`
}

package params

// ---------------------- 用户管理模块 ----------------------

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	DepartmentID uint64   `json:"department_id"`
	RoleIDs      []uint64 `json:"role_ids"`
	Status       int      `json:"status"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	DepartmentID uint64    `json:"department_id"`
	RoleIDs      *[]uint64 `json:"role_ids"` // 指针区分未设置和空数组
	Status       *int      `json:"status"`
}

// DeleteUserRequest 删除用户请求
type DeleteUserRequest struct {
	IDs []uint64 `json:"ids"`
}

// GetUserRequest 获取用户请求
type GetUserRequest struct {
	ID uint64 `query:"id"`
}

// GetUserListRequest 获取用户列表请求
// 部门集合为成员过滤，创建时间为范围过滤；
// 部门条件最终与调用方数据范围取交集，请求条件不会放大可见范围。
type GetUserListRequest struct {
	Page
	Username        string   `query:"username" xorm:"username op=like"`
	Status          int      `query:"status" xorm:"status op=eq"`
	DepartmentIDs   []uint64 `query:"department_ids" xorm:"department_id op=in"`
	CreateTimeRange []any    `query:"create_time_range"` // [from, to]，端点可为nil
	OrderBy         []string `query:"order_by"`
}

// ToFilters 转换为条件映射
func (r *GetUserListRequest) ToFilters() map[string]any {
	filters := make(map[string]any)
	if r.Username != "" {
		filters["username"] = r.Username
	}
	if r.Status != 0 {
		filters["status"] = r.Status
	}
	if len(r.DepartmentIDs) > 0 {
		filters["department_id"] = r.DepartmentIDs
	}
	if len(r.CreateTimeRange) > 0 {
		filters["create_time"] = r.CreateTimeRange
	}
	return filters
}

package models

// CallerIdentity 调用方身份
// 授权解析与范围查询不依赖隐式的"当前用户"，调用方身份由入参显式传递。
type CallerIdentity struct {
	UserID       uint64   `json:"user_id"`
	Username     string   `json:"username"`
	DepartmentID uint64   `json:"department_id"`
	RoleNumbers  []string `json:"role_numbers"`
}

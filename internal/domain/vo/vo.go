package vo

import (
	"time"
)

// Permission 权限视图对象，树形投影
type Permission struct {
	ID         uint64        `json:"id"`
	Name       string        `json:"name"`
	Number     string        `json:"number"`
	ParentID   uint64        `json:"parent_id"`
	Level      int           `json:"level"`
	MenuType   int           `json:"menu_type"`
	Status     int           `json:"status"`
	Sort       int           `json:"sort"`
	Path       string        `json:"path"`
	Component  string        `json:"component"`
	Icon       string        `json:"icon"`
	Perms      string        `json:"perms"`
	CreateTime time.Time     `json:"create_time"`
	UpdateTime time.Time     `json:"update_time"`
	Children   []*Permission `json:"children,omitempty"`
}

// Role 角色视图对象
type Role struct {
	ID             uint64        `json:"id"`
	Name           string        `json:"name"`
	RoleNumber     string        `json:"role_number"`
	Description    string        `json:"description"`
	AccessLevel    int           `json:"access_level"`
	AccessLabel    string        `json:"access_label"`
	AllowedDeptIDs []uint64      `json:"allowed_dept_ids"`
	Areas          []string      `json:"areas"`
	Creator        string        `json:"creator"`
	Modifier       string        `json:"modifier"`
	Status         int           `json:"status"`
	CreateTime     time.Time     `json:"create_time"`
	UpdateTime     time.Time     `json:"update_time"`
	Permissions    []*Permission `json:"permissions,omitempty"`
}

// Department 部门视图对象，树形投影
type Department struct {
	ID         uint64        `json:"id"`
	Name       string        `json:"name"`
	ParentID   uint64        `json:"parent_id"`
	Sort       int           `json:"sort"`
	Status     int           `json:"status"`
	CreateTime time.Time     `json:"create_time"`
	UpdateTime time.Time     `json:"update_time"`
	Children   []*Department `json:"children,omitempty"`
}

// User 用户视图对象
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	DepartmentID uint64    `json:"department_id"`
	Creator      string    `json:"creator"`
	Status       int       `json:"status"`
	CreateTime   time.Time `json:"create_time"`
	UpdateTime   time.Time `json:"update_time"`
	Roles        []*Role   `json:"roles,omitempty"`
}

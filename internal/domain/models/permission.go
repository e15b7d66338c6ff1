package models

import (
	"time"

	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
)

// Permission 权限模型
// 以扁平行存储树结构：parent_id为0表示根节点，level恒等于父节点level+1。
type Permission struct {
	ID         uint64        `xorm:"pk autoincr bigint unsigned 'id'" json:"id"`
	Name       string        `xorm:"varchar(50) notnull 'name'" json:"name"`
	Number     string        `xorm:"varchar(50) notnull unique 'number'" json:"number"`
	ParentID   uint64        `xorm:"bigint unsigned 'parent_id'" json:"parent_id"`
	Level      int           `xorm:"int 'level'" json:"level"`
	MenuType   int           `xorm:"int 'menu_type'" json:"menu_type"` // 1: 目录, 2: 菜单, 3: 按钮
	Status     int           `xorm:"int 'status'" json:"status"`       // 1=启用，0=禁用
	Sort       int           `xorm:"int 'sort'" json:"sort"`
	Path       string        `xorm:"varchar(255) 'path'" json:"path"`
	Component  string        `xorm:"varchar(255) 'component'" json:"component"`
	Icon       string        `xorm:"varchar(100) 'icon'" json:"icon"`
	Perms      string        `xorm:"varchar(100) 'perms'" json:"perms"`
	IsDeleted  int           `xorm:"int 'is_deleted'" json:"is_deleted"`
	CreateTime time.Time     `xorm:"created" json:"create_time"`
	UpdateTime time.Time     `xorm:"updated" json:"update_time"`
	Children   []*Permission `xorm:"-" json:"children,omitempty"`
}

// IsDirectory 是否目录节点
func (p *Permission) IsDirectory() bool {
	return p.MenuType == enums.MenuTypeDirectory
}

// IsMenu 是否菜单节点
func (p *Permission) IsMenu() bool {
	return p.MenuType == enums.MenuTypeMenu
}

// IsButton 是否按钮节点
func (p *Permission) IsButton() bool {
	return p.MenuType == enums.MenuTypeButton
}

// IsEnabled 是否启用且未删除
func (p *Permission) IsEnabled() bool {
	return p.Status == enums.StatusEnabled && p.IsDeleted == 0
}

// RolePermission 角色权限关联模型
type RolePermission struct {
	ID           uint64 `xorm:"pk autoincr bigint unsigned 'id'" json:"id"`
	RoleID       uint64 `xorm:"bigint unsigned notnull index 'role_id'" json:"role_id"`
	PermissionID uint64 `xorm:"bigint unsigned notnull index 'permission_id'" json:"permission_id"`
}

// UserRole 用户角色关联模型
type UserRole struct {
	ID     uint64 `xorm:"pk autoincr bigint unsigned 'id'" json:"id"`
	UserID uint64 `xorm:"bigint unsigned notnull index 'user_id'" json:"user_id"`
	RoleID uint64 `xorm:"bigint unsigned notnull index 'role_id'" json:"role_id"`
}

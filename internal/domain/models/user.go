package models

import (
	"time"
)

// User 用户模型
// 有效权限与数据范围始终通过角色解析得出，不落库。
type User struct {
	ID           uint64    `xorm:"pk autoincr bigint unsigned 'id'" json:"id"`
	Username     string    `xorm:"varchar(50) notnull unique 'username'" json:"username"`
	Email        string    `xorm:"varchar(100) 'email'" json:"email"`
	Phone        string    `xorm:"varchar(20) 'phone'" json:"phone"`
	DepartmentID uint64    `xorm:"bigint unsigned 'department_id'" json:"department_id"`
	Creator      string    `xorm:"varchar(50) 'creator'" json:"creator"`
	Status       int       `xorm:"int 'status'" json:"status"` // 1=启用，0=禁用
	CreateTime   time.Time `xorm:"created" json:"create_time"`
	UpdateTime   time.Time `xorm:"updated" json:"update_time"`
}

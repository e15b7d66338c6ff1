package models

import (
	"time"
)

// Department 部门模型
// parent_id为0表示顶级部门，OwnSubDept范围解析依赖该树。
type Department struct {
	ID         uint64    `xorm:"pk autoincr bigint unsigned 'id'" json:"id"`
	Name       string    `xorm:"varchar(50) notnull 'name'" json:"name"`
	ParentID   uint64    `xorm:"bigint unsigned 'parent_id'" json:"parent_id"`
	Sort       int       `xorm:"int 'sort'" json:"sort"`
	Status     int       `xorm:"int 'status'" json:"status"` // 1=启用，0=禁用
	CreateTime time.Time `xorm:"created" json:"create_time"`
	UpdateTime time.Time `xorm:"updated" json:"update_time"`
}

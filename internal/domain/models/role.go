package models

import (
	"time"

	"github.com/ayxworxfr/go_authcore/internal/domain/enums"
)

// Role 角色模型
// access_level决定数据可见范围；allowed_dept_ids仅在TargetDept下参与解析，
// 其余级别一律忽略该列。
type Role struct {
	ID             uint64    `xorm:"pk autoincr bigint unsigned 'id'" json:"id"`
	Name           string    `xorm:"varchar(50) notnull 'name'" json:"name"`
	RoleNumber     string    `xorm:"varchar(50) notnull unique 'role_number'" json:"role_number"`
	Description    string    `xorm:"varchar(255) 'description'" json:"description"`
	AccessLevel    int       `xorm:"int 'access_level'" json:"access_level"`
	AllowedDeptIDs []uint64  `xorm:"json 'allowed_dept_ids'" json:"allowed_dept_ids"`
	Areas          []string  `xorm:"json 'areas'" json:"areas"`
	Creator        string    `xorm:"varchar(50) 'creator'" json:"creator"`
	Modifier       string    `xorm:"varchar(50) 'modifier'" json:"modifier"`
	Status         int       `xorm:"int 'status'" json:"status"` // 1=启用，0=禁用
	CreateTime     time.Time `xorm:"created" json:"create_time"`
	UpdateTime     time.Time `xorm:"updated" json:"update_time"`
}

// IsUnrestricted 是否全部门可见
func (r *Role) IsUnrestricted() bool {
	return r.AccessLevel == enums.AccessLevelAllDept
}

// IsSelfOnly 是否仅本人数据可见
func (r *Role) IsSelfOnly() bool {
	return r.AccessLevel == enums.AccessLevelOneself
}

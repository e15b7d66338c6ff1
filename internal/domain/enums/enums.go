package enums

import (
	"sort"
	"sync"
)

// AccessLevel 数据可见范围级别
const (
	AccessLevelAllDept    = 1 // 全部门
	AccessLevelTargetDept = 2 // 指定部门
	AccessLevelOwnDept    = 3 // 本部门
	AccessLevelOwnSubDept = 4 // 本部门及子部门
	AccessLevelOneself    = 5 // 仅本人
)

// MenuType 权限节点类型
const (
	MenuTypeDirectory = 1 // 目录
	MenuTypeMenu      = 2 // 菜单
	MenuTypeButton    = 3 // 按钮
)

// Status 启用状态
const (
	StatusDisabled = 0 // 禁用
	StatusEnabled  = 1 // 启用
)

// Meta 枚举值元数据
type Meta struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Label string `json:"label"`
}

// registry 枚举名称到取值列表的静态注册表。
// 全部条目在包初始化时登记，启动后只读。
var (
	mu       sync.RWMutex
	registry = map[string][]Meta{}
)

func init() {
	register("access_level",
		Meta{Name: "AllDept", Value: AccessLevelAllDept, Label: "全部门"},
		Meta{Name: "TargetDept", Value: AccessLevelTargetDept, Label: "指定部门"},
		Meta{Name: "OwnDept", Value: AccessLevelOwnDept, Label: "本部门"},
		Meta{Name: "OwnSubDept", Value: AccessLevelOwnSubDept, Label: "本部门及子部门"},
		Meta{Name: "Oneself", Value: AccessLevelOneself, Label: "仅本人"},
	)
	register("menu_type",
		Meta{Name: "Directory", Value: MenuTypeDirectory, Label: "目录"},
		Meta{Name: "Menu", Value: MenuTypeMenu, Label: "菜单"},
		Meta{Name: "Button", Value: MenuTypeButton, Label: "按钮"},
	)
	register("status",
		Meta{Name: "Disabled", Value: StatusDisabled, Label: "禁用"},
		Meta{Name: "Enabled", Value: StatusEnabled, Label: "启用"},
	)
}

func register(name string, values ...Meta) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = values
}

// Values 返回指定枚举的全部取值（副本）
func Values(name string) []Meta {
	mu.RLock()
	defer mu.RUnlock()

	values, ok := registry[name]
	if !ok {
		return nil
	}
	return append([]Meta(nil), values...)
}

// Lookup 按数值查找枚举元数据
func Lookup(name string, value int) (Meta, bool) {
	mu.RLock()
	defer mu.RUnlock()

	for _, meta := range registry[name] {
		if meta.Value == value {
			return meta, true
		}
	}
	return Meta{}, false
}

// Names 返回全部已注册枚举名称，字典序
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsValid 判断数值是否为枚举的合法取值
func IsValid(name string, value int) bool {
	_, ok := Lookup(name, value)
	return ok
}

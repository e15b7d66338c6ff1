package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/ayxworxfr/go_authcore/pkg/logger"
	"github.com/pkg/errors"
)

// FilterSpec 声明实体仓储支持的四类过滤字段
// 每个仓储在创建时静态注册自己的FilterSpec，查询引擎据此把
// 字段名->值 的映射翻译为类型化查询条件。
type FilterSpec struct {
	Exact  []string // 等值匹配字段
	Member []string // 集合成员匹配字段（输入值为切片）
	Fuzzy  []string // 模糊匹配字段（两端通配的子串匹配）
	Range  []string // 区间匹配字段（输入值为 [from, to] 两元素）
}

// declares 判断字段是否在任一声明集合中
func (s FilterSpec) declares(field string) bool {
	for _, group := range [][]string{s.Exact, s.Member, s.Fuzzy, s.Range} {
		for _, f := range group {
			if f == field {
				return true
			}
		}
	}
	return false
}

// contains 辅助函数
func contains(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// BuildConditions 根据FilterSpec把过滤映射翻译为查询条件
// 未在任何声明集合中的键被跳过（允许调用方传入超集查询对象），
// 跳过时记录debug日志便于排查字段名拼写错误。
// 区间值必须是两元素序列，任一端为nil表示无界；格式错误返回 ErrInvalidScope。
func BuildConditions(ctx context.Context, spec FilterSpec, filters map[string]any) ([]Condition, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	var conditions []Condition
	for field, value := range filters {
		if value == nil {
			continue
		}
		if !spec.declares(field) {
			logger.Debugf(ctx, "filter key %q not declared in filter spec, ignored", field)
			continue
		}

		switch {
		case contains(spec.Exact, field):
			if isEmptyValue(value) {
				continue
			}
			conditions = append(conditions, Condition{Field: field, Op: OpEq, Value: value})

		case contains(spec.Member, field):
			items, err := toAnySlice(value)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidScope, "field %q: %v", field, err)
			}
			conditions = append(conditions, Condition{Field: field, Op: OpIn, Value: items})

		case contains(spec.Fuzzy, field):
			str, ok := value.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidScope, "field %q: fuzzy filter requires a string, got %T", field, value)
			}
			if str == "" {
				continue
			}
			conditions = append(conditions, Condition{Field: field, Op: OpLike, Value: str})

		case contains(spec.Range, field):
			rangeConds, err := buildRangeConditions(field, value)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, rangeConds...)
		}
	}

	return conditions, nil
}

// buildRangeConditions 构造区间条件，任一端省略则该端无界
func buildRangeConditions(field string, value any) ([]Condition, error) {
	bounds, err := toAnySlice(value)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidScope, "field %q: %v", field, err)
	}
	if len(bounds) != 2 {
		return nil, errors.Wrapf(ErrInvalidScope, "field %q: range filter requires [from, to], got %d elements", field, len(bounds))
	}

	from, to := bounds[0], bounds[1]
	fromSet := from != nil && !isEmptyValue(from)
	toSet := to != nil && !isEmptyValue(to)

	switch {
	case fromSet && toSet:
		return []Condition{{Field: field, Op: OpBetween, Value: []any{from, to}}}, nil
	case fromSet:
		return []Condition{{Field: field, Op: OpGe, Value: from}}, nil
	case toSet:
		return []Condition{{Field: field, Op: OpLe, Value: to}}, nil
	default:
		return nil, nil
	}
}

// toAnySlice 将任意切片类型转换为[]any
func toAnySlice(value any) ([]any, error) {
	if items, ok := value.([]any); ok {
		return items, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a slice, got %T", value)
	}
	items := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		items[i] = v.Index(i).Interface()
	}
	return items, nil
}

// isEmptyValue 判断过滤值是否为空（空字符串或零长度切片视为未提供）
func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case string:
		return v == ""
	case nil:
		return true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map {
		return rv.Len() == 0
	}
	return false
}

// ListOptions 列表查询选项
type ListOptions struct {
	Page      int      // 页码，从1开始；0表示不分页
	PageSize  int      // 每页条数
	NeedTotal bool     // 是否查询总数；不分页时总数恒等于返回条数
	OrderBy   []string // 排序字段列表，前缀"-"表示降序
}

// orderClause 校验排序字段并生成SQL排序子句
// 字段名前缀"-"表示降序；字段必须是模型声明的列，
// 未声明的字段返回 ErrInvalidScope，排序子句不接受任意字符串。
// 默认按创建顺序倒序（id降序，最新在前）。
func (o *ListOptions) orderClause(allowed []string) (string, error) {
	if o == nil || len(o.OrderBy) == 0 {
		return "id DESC", nil
	}
	parts := make([]string, 0, len(o.OrderBy))
	for _, field := range o.OrderBy {
		name := strings.TrimPrefix(field, "-")
		if !contains(allowed, name) {
			return "", errors.Wrapf(ErrInvalidScope, "unknown order field %q", name)
		}
		if strings.HasPrefix(field, "-") {
			parts = append(parts, name+" DESC")
		} else {
			parts = append(parts, name+" ASC")
		}
	}
	return strings.Join(parts, ", "), nil
}

// needTotal 是否需要执行总数统计
func (o *ListOptions) needTotal() bool {
	return o != nil && o.NeedTotal
}

// limitOffset 计算分页参数，未分页时返回0,0
func (o *ListOptions) limitOffset() (limit, offset int) {
	if o == nil || o.Page <= 0 || o.PageSize <= 0 {
		return 0, 0
	}
	return o.PageSize, (o.Page - 1) * o.PageSize
}

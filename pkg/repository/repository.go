package repository

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"
	"unicode"

	"github.com/ettle/strcase"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Repository 通用仓储接口
type Repository[T any] interface {
	TransactionExecutor
	Create(ctx context.Context, model *T) error
	Update(ctx context.Context, model *T) error
	Delete(ctx context.Context, model *T) error
	DeleteByID(ctx context.Context, id any) error
	DeleteByOption(ctx context.Context, opts *QueryOption) error
	UpdateByOption(ctx context.Context, model any, opts *QueryOption) error
	Find(ctx context.Context, model *T) (*T, error)
	FindByID(ctx context.Context, id any) (*T, error)
	FindByKey(ctx context.Context, key string, value any) (*T, error)
	FindAll(ctx context.Context, model *T) ([]T, error)
	List(ctx context.Context, filters map[string]any, opts *ListOptions) ([]T, int64, error)
	ListByConditions(ctx context.Context, conditions []Condition, opts *ListOptions) ([]T, int64, error)
	FindBy(ctx context.Context, filters map[string]any) (*T, error)
	FindAllBy(ctx context.Context, filters map[string]any) ([]T, error)
	BatchCreate(ctx context.Context, models []T) error
	QueryBuilder() *QueryBuilder[T]
	FilterSpec() FilterSpec
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) ([]T, error)
	QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// GenericRepository 通用仓储实现
type GenericRepository[T any] struct {
	processor ORMProcessor
	spec      FilterSpec
}

// NewRepository 创建仓储实例
// spec 声明该实体支持的四类过滤字段，由调用方静态注册。
func NewRepository[T any](processor ORMProcessor, spec ...FilterSpec) Repository[T] {
	repo := &GenericRepository[T]{processor: processor}
	if len(spec) > 0 {
		repo.spec = spec[0]
	}
	return repo
}

// FilterSpec 返回该仓储注册的过滤字段声明
func (r *GenericRepository[T]) FilterSpec() FilterSpec {
	return r.spec
}

// Create 插入单条记录
func (r *GenericRepository[T]) Create(ctx context.Context, model *T) error {
	return r.processor.Create(ctx, model)
}

// Update 更新记录（仅更新非零值字段，部分更新语义）
func (r *GenericRepository[T]) Update(ctx context.Context, model *T) error {
	return r.processor.Update(ctx, model)
}

// UpdateByOption 根据条件更新记录
func (r *GenericRepository[T]) UpdateByOption(ctx context.Context, model any, opts *QueryOption) error {
	return r.processor.UpdateByOption(ctx, model, opts)
}

// DeleteByOption 根据条件删除记录
// 空条件集被处理器拒绝并返回 ErrInvalidScope，防止误删全表。
func (r *GenericRepository[T]) DeleteByOption(ctx context.Context, opts *QueryOption) error {
	model := new(T)
	return r.processor.DeleteByOption(ctx, model, opts)
}

// Delete 删除记录
func (r *GenericRepository[T]) Delete(ctx context.Context, model *T) error {
	return r.processor.Delete(ctx, model)
}

// DeleteByID 根据ID删除记录
func (r *GenericRepository[T]) DeleteByID(ctx context.Context, id any) error {
	model := new(T)
	_, idField, err := r.getIDFieldName(model)
	if err != nil {
		return err
	}
	idField.Set(reflect.ValueOf(id))
	return r.processor.Delete(ctx, model)
}

// FindByID 根据ID查询，记录不存在时返回 ErrNotFound
func (r *GenericRepository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	idField, _, err := r.getIDFieldName(new(T))
	if err != nil {
		return nil, err
	}
	return r.FindByKey(ctx, idField, id)
}

// getIDFieldName 获取模型ID字段名称
func (r *GenericRepository[T]) getIDFieldName(model *T) (string, reflect.Value, error) {
	modelType := reflect.TypeOf(model).Elem()
	modelName := modelType.Name()

	// 拆分驼峰命名为单词，取最后一段
	lastCamelPart := getLastCamelPart(modelName)

	checkField := func(fieldName string) (reflect.Value, bool) {
		field := reflect.ValueOf(model).Elem().FieldByName(fieldName)
		return field, field.IsValid()
	}

	// 可能的ID字段命名（按优先级排序）
	possibleFieldNames := []string{
		"ID",
		"Id",
		fmt.Sprintf("%sID", modelName),
		fmt.Sprintf("%sId", modelName),
		fmt.Sprintf("%sID", lastCamelPart),
		fmt.Sprintf("%sId", lastCamelPart),
	}

	for _, fieldName := range possibleFieldNames {
		if field, ok := checkField(fieldName); ok {
			return strcase.ToSnake(fieldName), field, nil
		}
	}

	return "", reflect.ValueOf(nil), errors.New("model does not have an ID field")
}

// FindByKey 根据Key查询
// 多条匹配时按ID升序取第一条（固定的决定性选择），无匹配返回 ErrNotFound。
func (r *GenericRepository[T]) FindByKey(ctx context.Context, key string, value any) (*T, error) {
	queryOpts := &QueryOption{
		Filters: []Condition{
			{Field: key, Op: OpEq, Value: value},
		},
		OrderBy: "id ASC",
		Limit:   1,
	}

	queryResult, err := r.processor.Query(ctx, new(T), queryOpts)
	if err != nil {
		return nil, err
	}

	resultSlice, ok := queryResult.Data.([]T)
	if !ok || len(resultSlice) == 0 {
		return nil, ErrNotFound
	}

	return &resultSlice[0], nil
}

// FindAll 根据模型中的非零值字段条件查询所有记录
func (r *GenericRepository[T]) FindAll(ctx context.Context, model *T) ([]T, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}

	filters := r.processor.BuildFiltersFromModel(model)

	result, err := r.processor.Query(ctx, new(T), &QueryOption{
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}

	return result.Data.([]T), nil
}

// List 按过滤映射查询并返回 (items, total)
// 过滤键按仓储注册的FilterSpec翻译为条件，未声明的键被忽略；
// 不分页时返回全部匹配且total等于返回条数。
func (r *GenericRepository[T]) List(ctx context.Context, filters map[string]any, opts *ListOptions) ([]T, int64, error) {
	conditions, err := BuildConditions(ctx, r.spec, filters)
	if err != nil {
		return nil, 0, err
	}
	return r.ListByConditions(ctx, conditions, opts)
}

// ListByConditions 按已构造的条件列表查询并返回 (items, total)
// 供授权层把解析出的部门过滤条件与调用方条件合并后使用。
// 排序字段校验通过模型声明的列进行，未声明的字段返回 ErrInvalidScope。
func (r *GenericRepository[T]) ListByConditions(ctx context.Context, conditions []Condition, opts *ListOptions) ([]T, int64, error) {
	orderBy, err := opts.orderClause(columnNames(reflect.TypeOf(new(T))))
	if err != nil {
		return nil, 0, err
	}
	limit, offset := opts.limitOffset()
	queryOpts := &QueryOption{
		Filters:   conditions,
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
		SkipTotal: !opts.needTotal(),
	}

	result, err := r.processor.Query(ctx, new(T), queryOpts)
	if err != nil {
		return nil, 0, err
	}

	data, ok := result.Data.([]T)
	if !ok {
		return nil, 0, errors.New("invalid result type")
	}

	total := result.Total
	if limit == 0 {
		// 不分页时总数恒等于返回条数
		total = int64(len(data))
	}

	return data, total, nil
}

// FindBy 按过滤映射查询单条记录
// 多条匹配时按ID升序取第一条，无匹配返回 ErrNotFound。
func (r *GenericRepository[T]) FindBy(ctx context.Context, filters map[string]any) (*T, error) {
	conditions, err := BuildConditions(ctx, r.spec, filters)
	if err != nil {
		return nil, err
	}

	result, err := r.processor.Query(ctx, new(T), &QueryOption{
		Filters: conditions,
		OrderBy: "id ASC",
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}

	data, ok := result.Data.([]T)
	if !ok || len(data) == 0 {
		return nil, ErrNotFound
	}

	return &data[0], nil
}

// FindAllBy 按过滤映射查询所有匹配记录
func (r *GenericRepository[T]) FindAllBy(ctx context.Context, filters map[string]any) ([]T, error) {
	conditions, err := BuildConditions(ctx, r.spec, filters)
	if err != nil {
		return nil, err
	}

	result, err := r.processor.Query(ctx, new(T), &QueryOption{
		Filters: conditions,
	})
	if err != nil {
		return nil, err
	}

	return result.Data.([]T), nil
}

// Find 根据模型中的非零字段条件查询单条记录
func (r *GenericRepository[T]) Find(ctx context.Context, model *T) (*T, error) {
	if model == nil {
		return nil, errors.New("model cannot be nil")
	}

	queryOpts := &QueryOption{
		Filters: r.processor.BuildFiltersFromModel(model),
		OrderBy: "id ASC",
		Limit:   1,
	}

	result, err := r.processor.Query(ctx, model, queryOpts)
	if err != nil {
		return nil, err
	}

	data, ok := result.Data.([]T)
	if !ok || len(data) == 0 {
		return nil, ErrNotFound
	}

	return &data[0], nil
}

// BatchCreate 批量插入（整体成功或整体回滚）
func (r *GenericRepository[T]) BatchCreate(ctx context.Context, models []T) error {
	interfaceModels := make([]any, len(models))
	for i := range models {
		interfaceModels[i] = &models[i]
	}
	return r.processor.BatchCreate(ctx, interfaceModels)
}

// QueryBuilder 获取链式查询构建器
func (r *GenericRepository[T]) QueryBuilder() *QueryBuilder[T] {
	return NewQueryBuilder[T](r.processor)
}

// Exec 执行SQL语句
func (r *GenericRepository[T]) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return r.processor.Exec(ctx, sql, args...)
}

// Query 执行SQL并把结果行映射为模型
func (r *GenericRepository[T]) Query(ctx context.Context, sql string, args ...any) ([]T, error) {
	rows, err := r.processor.QueryRows(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	var result []T
	for _, row := range rows {
		var item T
		if err := MapToStruct(row, &item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

// QueryRows 查询多行结果
func (r *GenericRepository[T]) QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return r.processor.QueryRows(ctx, sql, args...)
}

// GenericRepository 实现 TransactionExecutor 接口
func (r *GenericRepository[T]) Transaction(ctx context.Context, fn TransactionFunc) (any, error) {
	return r.processor.Transaction(ctx, fn)
}

// Begin 开始事务（仓储层代理方法）
func (r *GenericRepository[T]) Begin(ctx context.Context) (context.Context, error) {
	return r.processor.Begin(ctx)
}

// Commit 提交事务（仓储层代理方法）
func (r *GenericRepository[T]) Commit(ctx context.Context) error {
	return r.processor.Commit(ctx)
}

// Rollback 回滚事务（仓储层代理方法）
func (r *GenericRepository[T]) Rollback(ctx context.Context) error {
	return r.processor.Rollback(ctx)
}

// MapToStruct 将map[string]any转换为结构体
func MapToStruct(src map[string]any, dst any) error {
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           dst,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			byteSliceToPrimitiveHookFunc(),
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}

	return decoder.Decode(src)
}

// byteSliceToPrimitiveHookFunc 处理[]byte到基本类型的转换
func byteSliceToPrimitiveHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.Slice || f.Elem().Kind() != reflect.Uint8 {
			return data, nil
		}

		str := string(data.([]byte))

		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.ParseInt(str, 10, 64)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.ParseUint(str, 10, 64)
		case reflect.Float32, reflect.Float64:
			return strconv.ParseFloat(str, 64)
		case reflect.Bool:
			return strconv.ParseBool(str)
		case reflect.String:
			return str, nil
		case reflect.Struct:
			if t.String() == "time.Time" {
				return parseTime(str)
			}
		}

		return data, nil
	}
}

// parseTime 尝试多种格式解析时间字符串
func parseTime(str string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, str); err == nil {
			return t, nil
		}
	}

	// 尝试解析时间戳（秒）
	if unixTime, err := strconv.ParseInt(str, 10, 64); err == nil {
		return time.Unix(unixTime, 0), nil
	}

	return time.Time{}, errors.New("Unrecognized time format: " + str)
}

// getLastCamelPart 拆分驼峰命名（大驼峰），返回最后一段单词
// 例：SalesOpportunity -> Opportunity；User -> User
func getLastCamelPart(camelName string) string {
	if camelName == "" {
		return ""
	}

	var parts []string
	start := 0
	for i, r := range camelName {
		if unicode.IsUpper(r) && i > start {
			parts = append(parts, camelName[start:i])
			start = i
		}
	}
	parts = append(parts, camelName[start:])

	return parts[len(parts)-1]
}

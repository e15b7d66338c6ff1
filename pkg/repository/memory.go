package repository

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ettle/strcase"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// MemoryProcessor 内存处理器实现
// 与 XormProcessor 遵循相同的过滤/分页/计数/事务语义，
// 作为四类过滤契约的参考实现，供单元测试在无数据库环境下使用。
// 行为对齐点：自增ID、created/updated时间戳、unique约束冲突、
// 空删除条件拒绝、事务快照回滚。
type MemoryProcessor struct {
	mu     sync.Mutex
	tables map[string][]any  // 表名 -> 行指针列表
	nextID map[string]uint64 // 表名 -> 下一个自增ID
}

// NewMemoryProcessor 创建内存处理器
func NewMemoryProcessor() *MemoryProcessor {
	return &MemoryProcessor{
		tables: make(map[string][]any),
		nextID: make(map[string]uint64),
	}
}

// memoryTxKey 内存事务上下文键
type memoryTxKey struct{}

// memoryTx 事务状态：持有开始时的全量快照，回滚时恢复
type memoryTx struct {
	snapshotTables map[string][]any
	snapshotNextID map[string]uint64
	done           bool
}

// columnMeta 模型列元数据
type columnMeta struct {
	name       string // 数据库列名
	fieldIndex int
	isPK       bool
	isAutoIncr bool
	isCreated  bool
	isUpdated  bool
	isUnique   bool
}

// modelColumns 解析模型的xorm标签得到列元数据
// 规则与xorm默认一致：引号内为列名，否则字段名转snake_case；
// 标签为"-"的字段（如树投影的children）不映射列。
func modelColumns(modelType reflect.Type) []columnMeta {
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	var columns []columnMeta
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		tag := field.Tag.Get("xorm")
		if tag == "-" {
			continue
		}
		name := extractColumnName(tag)
		if name == "" {
			name = strcase.ToSnake(field.Name)
		}
		columns = append(columns, columnMeta{
			name:       name,
			fieldIndex: i,
			isPK:       strings.Contains(tag, "pk"),
			isAutoIncr: strings.Contains(tag, "autoincr"),
			isCreated:  strings.Contains(tag, "created"),
			isUpdated:  strings.Contains(tag, "updated"),
			isUnique:   strings.Contains(tag, "unique"),
		})
	}
	return columns
}

// columnNames 模型声明的全部列名，供排序字段校验使用
func columnNames(modelType reflect.Type) []string {
	columns := modelColumns(modelType)
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.name
	}
	return names
}

// extractColumnName 提取xorm标签中引号内的列名
func extractColumnName(tag string) string {
	start := strings.IndexByte(tag, '\'')
	if start == -1 {
		return ""
	}
	end := strings.IndexByte(tag[start+1:], '\'')
	if end == -1 {
		return ""
	}
	return tag[start+1 : start+1+end]
}

// tableName 模型类型对应的表名
func tableName(modelType reflect.Type) string {
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	return strcase.ToSnake(modelType.Name())
}

// fieldByColumn 按列名取行的字段值
func fieldByColumn(row any, columns []columnMeta, column string) (reflect.Value, bool) {
	v := reflect.ValueOf(row)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for _, col := range columns {
		if col.name == column {
			return v.Field(col.fieldIndex), true
		}
	}
	return reflect.Value{}, false
}

// lock 加锁并返回解锁函数
func (p *MemoryProcessor) lock(ctx context.Context) func() {
	p.mu.Lock()
	return p.mu.Unlock
}

// Create 插入单条记录：分配自增ID、打创建/更新时间戳、校验unique约束
func (p *MemoryProcessor) Create(ctx context.Context, model any) error {
	defer p.lock(ctx)()
	return p.insertLocked(model)
}

func (p *MemoryProcessor) insertLocked(model any) error {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() != reflect.Ptr {
		return errors.New("model must be a pointer")
	}
	table := tableName(modelType)
	columns := modelColumns(modelType)
	elem := reflect.ValueOf(model).Elem()

	now := time.Now()
	for _, col := range columns {
		field := elem.Field(col.fieldIndex)
		switch {
		case col.isPK && col.isAutoIncr:
			if field.CanUint() && field.Uint() == 0 {
				field.SetUint(p.allocateID(table))
			} else if field.CanUint() && field.Uint() >= p.nextID[table] {
				p.nextID[table] = field.Uint() + 1
			}
		case col.isCreated || col.isUpdated:
			if t, ok := field.Interface().(time.Time); ok && (t.IsZero() || col.isUpdated) {
				field.Set(reflect.ValueOf(now))
			}
		}
	}

	if err := p.checkUniqueLocked(table, columns, model, 0); err != nil {
		return err
	}

	// 存储独立副本，隔离调用方后续修改
	stored := reflect.New(modelType.Elem())
	stored.Elem().Set(elem)
	p.tables[table] = append(p.tables[table], stored.Interface())
	return nil
}

// allocateID 分配表内自增ID
func (p *MemoryProcessor) allocateID(table string) uint64 {
	if p.nextID[table] == 0 {
		p.nextID[table] = 1
	}
	id := p.nextID[table]
	p.nextID[table]++
	return id
}

// checkUniqueLocked 校验unique列冲突，excludeID排除自身
func (p *MemoryProcessor) checkUniqueLocked(table string, columns []columnMeta, model any, excludeID uint64) error {
	elem := reflect.ValueOf(model)
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	for _, col := range columns {
		if !col.isUnique {
			continue
		}
		value := elem.Field(col.fieldIndex).Interface()
		if isEmptyValue(value) {
			continue
		}
		for _, row := range p.tables[table] {
			rowID := rowPrimaryKey(row, columns)
			if excludeID != 0 && rowID == excludeID {
				continue
			}
			existing, ok := fieldByColumn(row, columns, col.name)
			if ok && looseEqual(existing.Interface(), value) {
				return errors.Wrapf(ErrConflict, "duplicate value for unique column %q", col.name)
			}
		}
	}
	return nil
}

// rowPrimaryKey 读取行主键值
func rowPrimaryKey(row any, columns []columnMeta) uint64 {
	v := reflect.ValueOf(row)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for _, col := range columns {
		if col.isPK {
			field := v.Field(col.fieldIndex)
			if field.CanUint() {
				return field.Uint()
			}
		}
	}
	return 0
}

// Update 部分更新：仅非零值字段覆盖原值，记录不存在返回 ErrNotFound
func (p *MemoryProcessor) Update(ctx context.Context, model any) error {
	defer p.lock(ctx)()
	return p.updateLocked(model)
}

func (p *MemoryProcessor) updateLocked(model any) error {
	modelType := reflect.TypeOf(model)
	table := tableName(modelType)
	columns := modelColumns(modelType)
	id := rowPrimaryKey(model, columns)
	if id == 0 {
		return errors.New("model must have a valid primary key field")
	}

	if err := p.checkUniqueLocked(table, columns, model, id); err != nil {
		return err
	}

	patch := reflect.ValueOf(model).Elem()
	for i, row := range p.tables[table] {
		if rowPrimaryKey(row, columns) != id {
			continue
		}
		// 基于旧行构造新副本，零值字段保持旧值
		updated := reflect.New(modelType.Elem())
		updated.Elem().Set(reflect.ValueOf(row).Elem())
		for _, col := range columns {
			patchField := patch.Field(col.fieldIndex)
			if col.isPK || patchField.IsZero() {
				continue
			}
			updated.Elem().Field(col.fieldIndex).Set(patchField)
		}
		for _, col := range columns {
			if col.isUpdated {
				updated.Elem().Field(col.fieldIndex).Set(reflect.ValueOf(time.Now()))
			}
		}
		p.tables[table][i] = updated.Interface()
		return nil
	}
	return ErrNotFound
}

// UpdateByOption 根据查询选项更新记录
func (p *MemoryProcessor) UpdateByOption(ctx context.Context, model any, opts *QueryOption) error {
	defer p.lock(ctx)()

	modelType := reflect.TypeOf(model)
	table := tableName(modelType)
	columns := modelColumns(modelType)
	patch := reflect.ValueOf(model).Elem()

	for i, row := range p.tables[table] {
		if !matchAll(row, columns, opts.Filters) {
			continue
		}
		updated := reflect.New(modelType.Elem())
		updated.Elem().Set(reflect.ValueOf(row).Elem())
		for _, col := range columns {
			patchField := patch.Field(col.fieldIndex)
			if col.isPK {
				continue
			}
			// 指定列强制写入，否则跳过零值字段
			if len(opts.Cols) > 0 {
				if !lo.Contains(opts.Cols, col.name) {
					continue
				}
			} else if patchField.IsZero() {
				continue
			}
			updated.Elem().Field(col.fieldIndex).Set(patchField)
		}
		p.tables[table][i] = updated.Interface()
	}
	return nil
}

// Delete 根据主键或非零字段条件删除记录
func (p *MemoryProcessor) Delete(ctx context.Context, model any) error {
	defer p.lock(ctx)()

	modelType := reflect.TypeOf(model)
	table := tableName(modelType)
	columns := modelColumns(modelType)
	filters := p.BuildFiltersFromModel(model)
	if id := rowPrimaryKey(model, columns); id != 0 {
		filters = []Condition{{Field: primaryColumn(columns), Op: OpEq, Value: id}}
	}
	if len(filters) == 0 {
		return nil
	}

	p.deleteMatchingLocked(table, columns, filters)
	return nil
}

// primaryColumn 主键列名
func primaryColumn(columns []columnMeta) string {
	for _, col := range columns {
		if col.isPK {
			return col.name
		}
	}
	return "id"
}

// DeleteByOption 根据查询选项删除记录，空条件集拒绝
func (p *MemoryProcessor) DeleteByOption(ctx context.Context, model any, opts *QueryOption) error {
	if opts == nil || len(opts.Filters) == 0 {
		return errors.Wrap(ErrInvalidScope, "refusing to delete without conditions")
	}
	defer p.lock(ctx)()

	modelType := reflect.TypeOf(model)
	p.deleteMatchingLocked(tableName(modelType), modelColumns(modelType), opts.Filters)
	return nil
}

func (p *MemoryProcessor) deleteMatchingLocked(table string, columns []columnMeta, filters []Condition) {
	remaining := p.tables[table][:0:0]
	for _, row := range p.tables[table] {
		if !matchAll(row, columns, filters) {
			remaining = append(remaining, row)
		}
	}
	p.tables[table] = remaining
}

// Query 按条件查询，返回 (分页数据, 过滤后总数)
func (p *MemoryProcessor) Query(ctx context.Context, model any, opts *QueryOption) (*QueryResult, error) {
	defer p.lock(ctx)()

	modelType := reflect.TypeOf(model)
	table := tableName(modelType)
	columns := modelColumns(modelType)

	var matched []any
	for _, row := range p.tables[table] {
		if opts == nil || matchAll(row, columns, opts.Filters) {
			matched = append(matched, row)
		}
	}

	if opts != nil && opts.OrderBy != "" {
		sortRows(matched, columns, opts.OrderBy)
	}

	total := int64(len(matched))
	if opts != nil && opts.Limit > 0 {
		start := opts.Offset
		if start > len(matched) {
			start = len(matched)
		}
		end := start + opts.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	// 跳过总数统计时以本页条数代替
	if opts != nil && opts.SkipTotal {
		total = int64(len(matched))
	}

	elemType := modelType
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	slice := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(matched))
	for _, row := range matched {
		slice = reflect.Append(slice, reflect.ValueOf(row).Elem())
	}

	return &QueryResult{Data: slice.Interface(), Total: total}, nil
}

// BatchCreate 批量插入：任一条失败则整体回滚
func (p *MemoryProcessor) BatchCreate(ctx context.Context, models []any) error {
	defer p.lock(ctx)()

	snapshotTables, snapshotNext := p.snapshotLocked()
	for _, model := range models {
		if err := p.insertLocked(model); err != nil {
			p.tables, p.nextID = snapshotTables, snapshotNext
			return err
		}
	}
	return nil
}

// Exec 内存处理器不支持原生SQL
func (p *MemoryProcessor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return 0, errors.Wrap(ErrStorage, "raw SQL is not supported by the memory processor")
}

// QueryRow 内存处理器不支持原生SQL
func (p *MemoryProcessor) QueryRow(ctx context.Context, sql string, args ...any) (map[string]any, error) {
	return nil, errors.Wrap(ErrStorage, "raw SQL is not supported by the memory processor")
}

// QueryRows 内存处理器不支持原生SQL
func (p *MemoryProcessor) QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	return nil, errors.Wrap(ErrStorage, "raw SQL is not supported by the memory processor")
}

// BuildFiltersFromModel 从模型中提取非零字段作为查询条件
// 标签解析规则与 XormProcessor 保持一致。
func (p *MemoryProcessor) BuildFiltersFromModel(model any) []Condition {
	var tagHelper XormProcessor
	return tagHelper.BuildFiltersFromModel(model)
}

// snapshotLocked 复制当前全量状态（行指针不可变，浅拷贝切片即可）
func (p *MemoryProcessor) snapshotLocked() (map[string][]any, map[string]uint64) {
	tables := make(map[string][]any, len(p.tables))
	for name, rows := range p.tables {
		tables[name] = append([]any(nil), rows...)
	}
	next := make(map[string]uint64, len(p.nextID))
	for name, id := range p.nextID {
		next[name] = id
	}
	return tables, next
}

// Begin 开始事务：记录快照，提交前的修改可整体回滚
func (p *MemoryProcessor) Begin(ctx context.Context) (context.Context, error) {
	p.mu.Lock()
	tables, next := p.snapshotLocked()
	p.mu.Unlock()

	tx := &memoryTx{snapshotTables: tables, snapshotNextID: next}
	return context.WithValue(ctx, memoryTxKey{}, tx), nil
}

// Commit 提交事务：丢弃快照
func (p *MemoryProcessor) Commit(ctx context.Context) error {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok || tx == nil {
		return errors.New("transaction not found in context")
	}
	tx.done = true
	return nil
}

// Rollback 回滚事务：恢复快照
func (p *MemoryProcessor) Rollback(ctx context.Context) error {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	if !ok || tx == nil {
		return errors.New("transaction not found in context")
	}
	if tx.done {
		return nil
	}
	p.mu.Lock()
	p.tables, p.nextID = tx.snapshotTables, tx.snapshotNextID
	p.mu.Unlock()
	tx.done = true
	return nil
}

// Transaction 以事务方式执行一组操作
func (p *MemoryProcessor) Transaction(ctx context.Context, fn TransactionFunc) (any, error) {
	// 已在事务中时直接复用当前事务
	if tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok && !tx.done {
		return fn(ctx)
	}

	txCtx, err := p.Begin(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = p.Rollback(txCtx)
			panic(r)
		}
	}()

	result, err := fn(txCtx)
	if err != nil {
		_ = p.Rollback(txCtx)
		return nil, err
	}

	if err := p.Commit(txCtx); err != nil {
		return nil, err
	}
	return result, nil
}

// matchAll 判断行是否满足全部条件
func matchAll(row any, columns []columnMeta, filters []Condition) bool {
	for _, cond := range filters {
		if !matchCondition(row, columns, cond) {
			return false
		}
	}
	return true
}

// matchCondition 对单个条件求值
func matchCondition(row any, columns []columnMeta, cond Condition) bool {
	field, ok := fieldByColumn(row, columns, cond.Field)
	if !ok {
		return false
	}
	value := field.Interface()

	switch cond.Op {
	case OpEq:
		return looseEqual(value, cond.Value)
	case OpNe:
		return !looseEqual(value, cond.Value)
	case OpGt:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp > 0
	case OpLt:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp < 0
	case OpGe:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp >= 0
	case OpLe:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp <= 0
	case OpLike:
		str, ok1 := value.(string)
		pattern, ok2 := cond.Value.(string)
		return ok1 && ok2 && strings.Contains(str, pattern)
	case OpStartsWith:
		str, ok1 := value.(string)
		pattern, ok2 := cond.Value.(string)
		return ok1 && ok2 && strings.HasPrefix(str, pattern)
	case OpEndsWith:
		str, ok1 := value.(string)
		pattern, ok2 := cond.Value.(string)
		return ok1 && ok2 && strings.HasSuffix(str, pattern)
	case OpIn, OpNotIn:
		items, err := toAnySlice(cond.Value)
		if err != nil {
			return false
		}
		found := false
		for _, item := range items {
			if looseEqual(value, item) {
				found = true
				break
			}
		}
		if cond.Op == OpIn {
			return found
		}
		return !found
	case OpBetween:
		bounds, err := toAnySlice(cond.Value)
		if err != nil || len(bounds) != 2 {
			return false
		}
		low, ok1 := compareValues(value, bounds[0])
		high, ok2 := compareValues(value, bounds[1])
		return ok1 && ok2 && low >= 0 && high <= 0
	case OpNull:
		return field.IsZero()
	case OpNotNull:
		return !field.IsZero()
	default:
		return true
	}
}

// looseEqual 宽松相等：数值类型跨宽度比较，其余走DeepEqual
func looseEqual(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues 比较两个可排序值，返回 (-1/0/1, 是否可比较)
func compareValues(a, b any) (int, bool) {
	if at, aok := a.(time.Time); aok {
		bt, bok := toTime(b)
		if !bok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}

	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if isNumeric(av) && isNumeric(bv) {
		af, bf := toFloat(av), toFloat(bv)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	if av.Kind() == reflect.String && bv.Kind() == reflect.String {
		return strings.Compare(av.String(), bv.String()), true
	}

	return 0, false
}

// toTime 转换为time.Time
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := parseTime(t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// isNumeric 判断反射值是否为数值类型
func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toFloat 数值统一转float64比较
func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

// sortRows 按排序子句对行排序（"col DESC, col2 ASC"）
func sortRows(rows []any, columns []columnMeta, orderBy string) {
	type sortKey struct {
		column string
		desc   bool
	}
	var keys []sortKey
	for _, part := range strings.Split(orderBy, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		key := sortKey{column: fields[0]}
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			key.desc = true
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range keys {
			fi, iok := fieldByColumn(rows[i], columns, key.column)
			fj, jok := fieldByColumn(rows[j], columns, key.column)
			if !iok || !jok {
				continue
			}
			cmp, ok := compareValues(fi.Interface(), fj.Interface())
			if !ok || cmp == 0 {
				continue
			}
			if key.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

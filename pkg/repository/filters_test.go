package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpec = FilterSpec{
	Exact:  []string{"status", "creator"},
	Member: []string{"department_id", "id"},
	Fuzzy:  []string{"username"},
	Range:  []string{"create_time"},
}

func TestBuildConditions(t *testing.T) {
	ctx := context.Background()

	t.Run("ExactFilter", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"status": 1})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, Condition{Field: "status", Op: OpEq, Value: 1}, conditions[0])
	})

	t.Run("ExactZeroIntIsKept", func(t *testing.T) {
		// 数值0是合法过滤值，只有空字符串和空切片视为未提供
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"status": 0})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, OpEq, conditions[0].Op)
	})

	t.Run("ExactEmptyStringSkipped", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"creator": ""})
		require.NoError(t, err)
		assert.Empty(t, conditions)
	})

	t.Run("MemberFilter", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"department_id": []uint64{3, 7}})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, "department_id", conditions[0].Field)
		assert.Equal(t, OpIn, conditions[0].Op)
		assert.Equal(t, []any{uint64(3), uint64(7)}, conditions[0].Value)
	})

	t.Run("MemberRequiresSlice", func(t *testing.T) {
		_, err := BuildConditions(ctx, testSpec, map[string]any{"department_id": 3})
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("MemberEmptySliceProducesCondition", func(t *testing.T) {
		// 空集合是显式条件，命中零行，不等价于未提供
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"id": []uint64{}})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, OpIn, conditions[0].Op)
		assert.Empty(t, conditions[0].Value)
	})

	t.Run("FuzzyFilter", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"username": "ali"})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, Condition{Field: "username", Op: OpLike, Value: "ali"}, conditions[0])
	})

	t.Run("FuzzyRequiresString", func(t *testing.T) {
		_, err := BuildConditions(ctx, testSpec, map[string]any{"username": 42})
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("RangeBothBounds", func(t *testing.T) {
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"create_time": []any{from, to}})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, OpBetween, conditions[0].Op)
		assert.Equal(t, []any{from, to}, conditions[0].Value)
	})

	t.Run("RangeOpenEnded", func(t *testing.T) {
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"create_time": []any{from, nil}})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, Condition{Field: "create_time", Op: OpGe, Value: from}, conditions[0])

		conditions, err = BuildConditions(ctx, testSpec, map[string]any{"create_time": []any{nil, from}})
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.Equal(t, Condition{Field: "create_time", Op: OpLe, Value: from}, conditions[0])
	})

	t.Run("RangeBothBoundsOmitted", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"create_time": []any{nil, nil}})
		require.NoError(t, err)
		assert.Empty(t, conditions)
	})

	t.Run("RangeWrongArity", func(t *testing.T) {
		_, err := BuildConditions(ctx, testSpec, map[string]any{"create_time": []any{1, 2, 3}})
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("RangeNonSlice", func(t *testing.T) {
		_, err := BuildConditions(ctx, testSpec, map[string]any{"create_time": "2024-01-01"})
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("UndeclaredKeySkipped", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{
			"status":  1,
			"unknown": "whatever",
		})
		require.NoError(t, err)
		assert.Len(t, conditions, 1)
	})

	t.Run("NilValueSkipped", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, map[string]any{"status": nil})
		require.NoError(t, err)
		assert.Empty(t, conditions)
	})

	t.Run("EmptyFilters", func(t *testing.T) {
		conditions, err := BuildConditions(ctx, testSpec, nil)
		require.NoError(t, err)
		assert.Nil(t, conditions)
	})
}

func TestListOptions(t *testing.T) {
	columns := []string{"id", "create_time", "username"}

	t.Run("DefaultOrder", func(t *testing.T) {
		var opts *ListOptions
		clause, err := opts.orderClause(columns)
		require.NoError(t, err)
		assert.Equal(t, "id DESC", clause)

		clause, err = (&ListOptions{}).orderClause(columns)
		require.NoError(t, err)
		assert.Equal(t, "id DESC", clause)
	})

	t.Run("OrderByPrefix", func(t *testing.T) {
		opts := &ListOptions{OrderBy: []string{"-create_time", "id"}}
		clause, err := opts.orderClause(columns)
		require.NoError(t, err)
		assert.Equal(t, "create_time DESC, id ASC", clause)
	})

	t.Run("UnknownOrderField", func(t *testing.T) {
		opts := &ListOptions{OrderBy: []string{"-secret_col"}}
		_, err := opts.orderClause(columns)
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("OrderFieldNotRawSQL", func(t *testing.T) {
		opts := &ListOptions{OrderBy: []string{"username; DROP TABLE user"}}
		_, err := opts.orderClause(columns)
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("LimitOffset", func(t *testing.T) {
		limit, offset := (&ListOptions{Page: 3, PageSize: 20}).limitOffset()
		assert.Equal(t, 20, limit)
		assert.Equal(t, 40, offset)
	})

	t.Run("Unpaginated", func(t *testing.T) {
		limit, offset := (&ListOptions{NeedTotal: true}).limitOffset()
		assert.Zero(t, limit)
		assert.Zero(t, offset)

		limit, offset = (*ListOptions)(nil).limitOffset()
		assert.Zero(t, limit)
		assert.Zero(t, offset)
	})
}

package repository

import (
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// 仓储层统一错误类型
// 处理器在存储边界完成一次性归类，上层通过 errors.Is 判断错误种类。
var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")

	// ErrConflict 唯一约束或外键约束冲突
	ErrConflict = errors.New("constraint conflict")

	// ErrInvalidScope 非法的查询范围（空删除条件、格式错误的过滤值等）
	ErrInvalidScope = errors.New("invalid query scope")

	// ErrStorage 存储后端故障，仓储层不做重试
	ErrStorage = errors.New("storage error")
)

// MySQL错误码
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
	mysqlErrRowIsReferenced = 1451
)

// translateError 将底层驱动错误归类为仓储层错误
// 约束冲突归为 ErrConflict，其余后端错误归为 ErrStorage；nil 原样返回。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidScope) || errors.Is(err, ErrStorage) {
		return err
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrNoReferencedRow, mysqlErrRowIsReferenced:
			return errors.Wrap(ErrConflict, mysqlErr.Message)
		}
	}

	return errors.Wrap(ErrStorage, err.Error())
}

package gormpersistence

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"woori-codeshare/internal/repository"
)

// translateError 将驱动层的唯一约束错误映射为仓库错误，其余原样返回。
func translateError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return repository.ErrDuplicateEntry
	}
	return err
}

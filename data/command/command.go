// Package command 实现与驱动无关的命令执行：参数构建、Reader、Writer 与行映射
//
// 命令绑定在一个 dispatch.Executor 上（独立连接或工作单元的事务），
// 由 ICommandSource 统一产出；Reader / Writer 只持有命令来源，不区分背后是谁。
package command

import (
	"context"

	"commq/data/db"
	"commq/data/db/dialect"
	"commq/data/db/dispatch"
	"commq/errors"
)

// Command 一次逻辑操作对应的命令，执行一次后即失效
type Command struct {
	Text string
	Type db.CommandType

	exec     dispatch.Executor
	dialect  dialect.Dialect
	params   *Parameters
	executed bool
}

// NewCommand 创建绑定在执行器上的命令
func NewCommand(exec dispatch.Executor, d dialect.Dialect) *Command {
	return &Command{exec: exec, dialect: d, params: newParameters(d)}
}

// Parameters 命令的参数集合
func (c *Command) Parameters() *Parameters { return c.params }

// Dialect 命令绑定连接的方言
func (c *Command) Dialect() dialect.Dialect { return c.dialect }

// ExecuteReader 执行并返回游标，调用方负责关闭
func (c *Command) ExecuteReader(ctx context.Context) (*Cursor, error) {
	query, args, err := c.prepare(true)
	if err != nil {
		return nil, err
	}
	rows, err := c.exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return newCursor(ctx, rows), nil
}

// ExecuteScalar 执行并返回第一行第一列；没有行时返回 nil
func (c *Command) ExecuteScalar(ctx context.Context) (v any, err error) {
	cursor, err := c.ExecuteReader(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cursor.Close(); err == nil && cerr != nil {
			v, err = nil, cerr
		}
	}()
	if !cursor.Next() {
		return nil, cursor.Err()
	}
	return cursor.ValueAt(0)
}

// ExecuteNonQuery 执行并返回受影响行数
func (c *Command) ExecuteNonQuery(ctx context.Context) (int64, error) {
	query, args, err := c.prepare(false)
	if err != nil {
		return 0, err
	}
	res, err := c.exec.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Command) prepare(returnsRows bool) (string, []any, error) {
	if c.executed {
		return "", nil, errors.InvalidOperation("command has already been executed")
	}
	c.executed = true

	args, err := c.params.bind()
	if err != nil {
		return "", nil, err
	}
	if c.Type == db.CommandStoredProcedure {
		return c.dialect.StoredProcedure(c.Text, args, returnsRows)
	}
	query, values := c.dialect.BindNamed(c.Text, args)
	return query, values, nil
}

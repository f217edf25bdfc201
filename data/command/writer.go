package command

import (
	"context"

	"commq/data/db"
)

// Writer 变更命令执行器；从不提交或回滚，事务由工作单元负责
type Writer struct {
	runner
}

// NewWriter 基于命令来源创建 Writer
func NewWriter(source ICommandSource) *Writer {
	return &Writer{runner{source: source, name: "Writer"}}
}

// Command 执行非查询语句，返回受影响行数
func (w *Writer) Command(ctx context.Context, text string, setup Setup) (int64, error) {
	cmd, err := w.command(text, db.CommandText, setup)
	if err != nil {
		return 0, err
	}
	return cmd.ExecuteNonQuery(ctx)
}

// StoredProcedure 调用存储过程，返回受影响行数
func (w *Writer) StoredProcedure(ctx context.Context, name string, setup Setup) (int64, error) {
	cmd, err := w.command(name, db.CommandStoredProcedure, setup)
	if err != nil {
		return 0, err
	}
	return cmd.ExecuteNonQuery(ctx)
}

// ExecScalar 执行语句并返回单个标量（例如 RETURNING / OUTPUT 生成的主键）
func ExecScalar[T any](ctx context.Context, w *Writer, text string, setup Setup) (T, error) {
	cmd, err := w.command(text, db.CommandText, setup)
	if err != nil {
		var zero T
		return zero, err
	}
	return scalar[T](ctx, cmd)
}

// ProcedureScalar 调用存储过程并返回单个标量
func ProcedureScalar[T any](ctx context.Context, w *Writer, name string, setup Setup) (T, error) {
	cmd, err := w.command(name, db.CommandStoredProcedure, setup)
	if err != nil {
		var zero T
		return zero, err
	}
	return scalar[T](ctx, cmd)
}

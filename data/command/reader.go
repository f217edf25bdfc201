package command

import (
	"context"

	"commq/data/db"
	"commq/errors"
)

// Setup 参数设置回调，可为 nil
type Setup func(p *Parameters)

// runner Reader 与 Writer 共用的命令构建与释放
type runner struct {
	source ICommandSource
	name   string
	closed bool
}

func (r *runner) command(text string, typ db.CommandType, setup Setup) (*Command, error) {
	if r.closed {
		return nil, errors.Disposed(r.name)
	}
	cmd, err := r.source.CreateCommand()
	if err != nil {
		return nil, err
	}
	cmd.Text = text
	cmd.Type = typ
	if setup != nil {
		setup(cmd.Parameters())
	}
	return cmd, nil
}

// Close 释放命令来源；重复调用返回 nil
func (r *runner) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.source.Release(ctx)
}

// Reader 只读命令执行器
type Reader struct {
	runner
}

// NewReader 基于命令来源创建 Reader
func NewReader(source ICommandSource) *Reader {
	return &Reader{runner{source: source, name: "Reader"}}
}

// Raw 执行查询并返回游标，调用方负责关闭
func (r *Reader) Raw(ctx context.Context, query string, setup Setup) (*Cursor, error) {
	cmd, err := r.command(query, db.CommandText, setup)
	if err != nil {
		return nil, err
	}
	return cmd.ExecuteReader(ctx)
}

// StoredProcedure 调用返回结果集的存储过程
func (r *Reader) StoredProcedure(ctx context.Context, name string, setup Setup) (*Cursor, error) {
	cmd, err := r.command(name, db.CommandStoredProcedure, setup)
	if err != nil {
		return nil, err
	}
	return cmd.ExecuteReader(ctx)
}

// Enumerable 读取全部行，按 *T 的 Read 方法映射
func Enumerable[T any, PT interface {
	*T
	IReadable
}](ctx context.Context, r *Reader, query string, setup Setup) ([]T, error) {
	return EnumerableWith[T](ctx, r, query, readable[T, PT]{}, setup)
}

// EnumerableWith 读取全部行，使用外部映射器
func EnumerableWith[T any](ctx context.Context, r *Reader, query string, m IDataMapper[T], setup Setup) ([]T, error) {
	cursor, err := r.Raw(ctx, query, setup)
	if err != nil {
		return nil, err
	}
	return Collect(cursor, m)
}

// Single 读取至多一行；没有匹配行时 found 为 false，err 为 nil
func Single[T any, PT interface {
	*T
	IReadable
}](ctx context.Context, r *Reader, query string, setup Setup) (T, bool, error) {
	return SingleWith[T](ctx, r, query, readable[T, PT]{}, setup)
}

// SingleWith 同 Single，使用外部映射器
func SingleWith[T any](ctx context.Context, r *Reader, query string, m IDataMapper[T], setup Setup) (T, bool, error) {
	cursor, err := r.Raw(ctx, query, setup)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return first(cursor, m)
}

// Scalar 执行查询并把第一行第一列转换为 T
func Scalar[T any](ctx context.Context, r *Reader, query string, setup Setup) (T, error) {
	cmd, err := r.command(query, db.CommandText, setup)
	if err != nil {
		var zero T
		return zero, err
	}
	return scalar[T](ctx, cmd)
}

func scalar[T any](ctx context.Context, cmd *Command) (T, error) {
	v, err := cmd.ExecuteScalar(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return Convert[T](v)
}

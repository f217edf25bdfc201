// Package dispatch 对原始驱动句柄做能力探测，包装为统一的 context 风格接口
//
// 每个资源（连接、事务、游标、执行器）在包装时逐项探测 data/db 中的 I*Context 可选接口：
//   - 实现了：直接调用原生的 context 版本；
//   - 未实现：调用阻塞版本，调用前检查 ctx 是否已取消（取消时返回 ctx.Err()）。
//
// 释放类操作（Rollback、Close）的回退路径不检查 ctx：资源必须能在已取消的上下文中释放。
// 调用方只面对 Connection / Transaction / Rows / Executor，不感知走了哪条路径。
package dispatch

import (
	"context"
	"database/sql"

	"commq/data/db"
)

// Executor 统一的执行接口
type Executor interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Rows 统一的只进游标
type Rows interface {
	// Next 推进到下一行；没有下一行时返回 false 与游标上的错误（若有）
	Next(ctx context.Context) (bool, error)
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Transaction 统一的事务接口
type Transaction interface {
	Executor

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection 统一的连接接口
type Connection interface {
	Executor

	Open(ctx context.Context) error
	Begin(ctx context.Context, level db.IsolationLevel) (Transaction, error)
	Close(ctx context.Context) error

	// Raw 返回原始句柄（用于方言探测等）
	Raw() db.IConnection
}

// OpenAndGet 通过工厂创建连接并打开
//
// 打开失败时经探测后的路径关闭句柄（不受 ctx 取消影响），驱动错误原样返回。
func OpenAndGet(ctx context.Context, factory db.IConnectionFactory) (Connection, error) {
	raw, err := factory.Create()
	if err != nil {
		return nil, err
	}
	conn := WrapConnection(raw)
	if err := conn.Open(ctx); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return conn, nil
}

// blocking 将阻塞调用包装为带 ctx 的形式：调用前检查取消
func blocking(fn func() error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn()
	}
}

// release 将阻塞的释放调用包装为带 ctx 的形式：忽略 ctx
func release(fn func() error) func(context.Context) error {
	return func(context.Context) error { return fn() }
}

// Package db 定义与具体驱动无关的连接/事务/结果集能力面
//
// 设计目标：
// 1. 驱动只需实现阻塞式的最小接口（IConnection / ITransaction / IRows）
// 2. 支持 context 的驱动额外实现 I*Context 可选接口，由 dispatch 包在运行时探测
// 3. 上层（command / uow）只面对 dispatch 包装后的统一接口，不感知走了哪条路径
package db

import (
	"context"
	"database/sql"
)

// IExecutor 阻塞式执行能力，连接与事务都实现
type IExecutor interface {
	Query(query string, args ...any) (IRows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// IExecutorContext 可选：支持 context 的执行能力
type IExecutorContext interface {
	QueryContext(ctx context.Context, query string, args ...any) (IRows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IConnection 原始连接句柄
//
// Create 出来的连接处于未打开状态，必须先 Open；同一连接同一时刻至多一个活动事务。
type IConnection interface {
	IExecutor

	Open() error
	Begin(level IsolationLevel) (ITransaction, error)
	Close() error
}

// IContextOpener 可选：支持 context 的打开
type IContextOpener interface {
	OpenContext(ctx context.Context) error
}

// IContextBeginner 可选：支持 context 的开启事务
type IContextBeginner interface {
	BeginContext(ctx context.Context, level IsolationLevel) (ITransaction, error)
}

// IContextCloser 可选：支持 context 的关闭
type IContextCloser interface {
	CloseContext(ctx context.Context) error
}

// ITransaction 事务接口
type ITransaction interface {
	IExecutor

	// 事务控制
	Commit() error
	Rollback() error
}

// ITransactionContext 可选：支持 context 的提交/回滚
type ITransactionContext interface {
	CommitContext(ctx context.Context) error
	RollbackContext(ctx context.Context) error
}

// IRows 查询结果集接口（只进游标）
type IRows interface {
	// 遍历结果
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error

	// 获取列信息
	Columns() ([]string, error)
}

// IRowsContext 可选：支持 context 的游标推进
type IRowsContext interface {
	NextContext(ctx context.Context) (bool, error)
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
//
// 实现方应返回诸如 "mysql"、"sqlite"、"postgres"、"sqlserver" 等 driver/dialect 名，
// 供 dialect 包推断命名参数绑定方式与存储过程调用语法。
type IDialectNameProvider interface {
	// GetDialectName 返回底层数据库方言名称
	GetDialectName() string
}

// IConnectionFactory 连接工厂
//
// Create 返回未打开的连接；驱动的连接错误（网络、认证）原样返回。
type IConnectionFactory interface {
	Create() (IConnection, error)
}

// ConnectionFactoryFunc 函数适配器
type ConnectionFactoryFunc func() (IConnection, error)

func (f ConnectionFactoryFunc) Create() (IConnection, error) { return f() }

// DBConfig 数据库配置
type DBConfig struct {
	Driver   string // mysql, postgres, sqlite, etc.
	Database string // 驱动 DSN，原样传给 sql.Open

	// 连接池配置
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒

	// 初始化 Ping 超时（秒），0 表示 3 秒
	PingTimeout int
}

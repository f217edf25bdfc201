package command

import (
	"context"

	"commq/data/db/dialect"
	"commq/data/db/dispatch"
	"commq/errors"
)

// ICommandSource 命令来源
//
// 由工作单元（命令绑定在活动事务上）或独立连接提供。
// Release 释放来源拥有的资源：独立连接在此关闭，工作单元的来源什么也不做。
type ICommandSource interface {
	CreateCommand() (*Command, error)
	Release(ctx context.Context) error
}

// ConnectionSource 独占一个已打开连接的命令来源
type ConnectionSource struct {
	conn    dispatch.Connection
	dialect dialect.Dialect
	closed  bool
}

// NewConnectionSource 包装已打开的连接，方言由原始句柄推断
func NewConnectionSource(conn dispatch.Connection) *ConnectionSource {
	return &ConnectionSource{conn: conn, dialect: dialect.FromConnection(conn.Raw())}
}

func (s *ConnectionSource) CreateCommand() (*Command, error) {
	if s.closed {
		return nil, errors.Disposed("connection")
	}
	return NewCommand(s.conn, s.dialect), nil
}

// Release 关闭连接，只关闭一次
func (s *ConnectionSource) Release(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(context.WithoutCancel(ctx))
}

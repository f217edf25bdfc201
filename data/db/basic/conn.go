package basic

import (
	"context"
	"database/sql"
	"fmt"

	core "commq/data/db"
	"commq/data/db/dialect"
)

var errNotOpen = fmt.Errorf("basic: connection is not open")

// Conn 独占 *sql.Conn 的连接，实现阻塞接口与全部 context 可选接口
type Conn struct {
	pool    *sql.DB
	driver  string
	dialect dialect.Dialect
	conn    *sql.Conn
	closed  bool
}

func (c *Conn) Open() error { return c.OpenContext(context.Background()) }

// OpenContext 从连接池取出一个独占连接
func (c *Conn) OpenContext(ctx context.Context) error {
	if c.closed {
		return fmt.Errorf("basic: connection already closed")
	}
	if c.conn != nil {
		return fmt.Errorf("basic: connection already open")
	}
	conn, err := c.pool.Conn(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Conn) Begin(level core.IsolationLevel) (core.ITransaction, error) {
	return c.BeginContext(context.Background(), level)
}

func (c *Conn) BeginContext(ctx context.Context, level core.IsolationLevel) (core.ITransaction, error) {
	if c.conn == nil {
		return nil, errNotOpen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// *sql.Tx 会在 BeginTx 的 ctx 结束时自动回滚；事务生命周期只由后续各操作的 ctx 控制
	tx, err := c.conn.BeginTx(context.WithoutCancel(ctx), &sql.TxOptions{Isolation: c.dialect.TxIsolation(level)})
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (c *Conn) Query(query string, args ...any) (core.IRows, error) {
	return c.QueryContext(context.Background(), query, args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (core.IRows, error) {
	if c.conn == nil {
		return nil, errNotOpen
	}
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (c *Conn) Exec(query string, args ...any) (sql.Result, error) {
	return c.ExecContext(context.Background(), query, args...)
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.conn == nil {
		return nil, errNotOpen
	}
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *Conn) Close() error { return c.CloseContext(context.Background()) }

// CloseContext 把连接归还连接池；未打开或已关闭时什么也不做
func (c *Conn) CloseContext(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// GetDialectName 实现 core.IDialectNameProvider
func (c *Conn) GetDialectName() string {
	return c.driver
}

var (
	_ core.IConnection          = (*Conn)(nil)
	_ core.IContextOpener       = (*Conn)(nil)
	_ core.IContextBeginner     = (*Conn)(nil)
	_ core.IContextCloser       = (*Conn)(nil)
	_ core.IExecutorContext     = (*Conn)(nil)
	_ core.IDialectNameProvider = (*Conn)(nil)
)

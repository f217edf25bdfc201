package dispatch

import (
	"context"
	"database/sql"

	"commq/data/db"
)

// ---- Executor ----

// WrapExecutor 探测 IExecutorContext
func WrapExecutor(x db.IExecutor) Executor {
	if xc, ok := x.(db.IExecutorContext); ok {
		return nativeExecutor{x: xc}
	}
	return fallbackExecutor{x: x}
}

type nativeExecutor struct{ x db.IExecutorContext }

func (e nativeExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.x.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return WrapRows(rows), nil
}

func (e nativeExecutor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return e.x.ExecContext(ctx, query, args...)
}

type fallbackExecutor struct{ x db.IExecutor }

func (e fallbackExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := e.x.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return WrapRows(rows), nil
}

func (e fallbackExecutor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.x.Exec(query, args...)
}

// ---- Rows ----

// WrapRows 探测 IRowsContext
func WrapRows(raw db.IRows) Rows {
	r := &rows{IRows: raw}
	if rc, ok := raw.(db.IRowsContext); ok {
		r.next = rc.NextContext
	} else {
		r.next = func(ctx context.Context) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if !raw.Next() {
				return false, raw.Err()
			}
			return true, nil
		}
	}
	return r
}

type rows struct {
	db.IRows
	next func(ctx context.Context) (bool, error)
}

func (r *rows) Next(ctx context.Context) (bool, error) { return r.next(ctx) }

// ---- Transaction ----

// WrapTransaction 探测 IExecutorContext 与 ITransactionContext
func WrapTransaction(raw db.ITransaction) Transaction {
	t := &transaction{Executor: WrapExecutor(raw), raw: raw}
	if tc, ok := raw.(db.ITransactionContext); ok {
		t.commit = tc.CommitContext
		t.rollback = tc.RollbackContext
	} else {
		t.commit = blocking(raw.Commit)
		t.rollback = release(raw.Rollback)
	}
	return t
}

type transaction struct {
	Executor
	raw      db.ITransaction
	commit   func(ctx context.Context) error
	rollback func(ctx context.Context) error
}

func (t *transaction) Commit(ctx context.Context) error   { return t.commit(ctx) }
func (t *transaction) Rollback(ctx context.Context) error { return t.rollback(ctx) }

// ---- Connection ----

// WrapConnection 按操作逐项探测：打开、开启事务、关闭、执行
func WrapConnection(raw db.IConnection) Connection {
	c := &connection{Executor: WrapExecutor(raw), raw: raw}

	if o, ok := raw.(db.IContextOpener); ok {
		c.open = o.OpenContext
	} else {
		c.open = blocking(raw.Open)
	}

	if b, ok := raw.(db.IContextBeginner); ok {
		c.begin = b.BeginContext
	} else {
		c.begin = func(ctx context.Context, level db.IsolationLevel) (db.ITransaction, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return raw.Begin(level)
		}
	}

	if cl, ok := raw.(db.IContextCloser); ok {
		c.close = cl.CloseContext
	} else {
		c.close = release(raw.Close)
	}
	return c
}

type connection struct {
	Executor
	raw   db.IConnection
	open  func(ctx context.Context) error
	begin func(ctx context.Context, level db.IsolationLevel) (db.ITransaction, error)
	close func(ctx context.Context) error
}

func (c *connection) Open(ctx context.Context) error  { return c.open(ctx) }
func (c *connection) Close(ctx context.Context) error { return c.close(ctx) }
func (c *connection) Raw() db.IConnection             { return c.raw }

func (c *connection) Begin(ctx context.Context, level db.IsolationLevel) (Transaction, error) {
	tx, err := c.begin(ctx, level)
	if err != nil {
		return nil, err
	}
	return WrapTransaction(tx), nil
}

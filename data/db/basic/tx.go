package basic

import (
	"context"
	"database/sql"

	core "commq/data/db"
)

// Tx 事务实现，委托给 *sql.Tx
//
// database/sql 的提交与回滚没有 context 版本，因此 Tx 只实现阻塞的 Commit/Rollback，
// 执行类操作同时提供 context 版本。
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Query(query string, args ...any) (core.IRows, error) {
	return t.QueryContext(context.Background(), query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (t *Tx) Exec(query string, args ...any) (sql.Result, error) {
	return t.tx.Exec(query, args...)
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }
func (t *Tx) Raw() *sql.Tx    { return t.tx }

var (
	_ core.ITransaction     = (*Tx)(nil)
	_ core.IExecutorContext = (*Tx)(nil)
)

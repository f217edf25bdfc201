package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"commq/data/db"
)

// BlockingConn 只实现阻塞接口的连接
type BlockingConn struct {
	driver *Driver
	opened bool
	closed bool
	tx     *BlockingTx
}

func (c *BlockingConn) GetDialectName() string { return c.driver.dialect }

// IsOpen 连接是否处于打开状态
func (c *BlockingConn) IsOpen() bool { return c.opened && !c.closed }

func (c *BlockingConn) Open() error {
	c.driver.record("conn.Open")
	return c.open()
}

func (c *BlockingConn) open() error {
	if c.driver.OpenErr != nil {
		return c.driver.OpenErr
	}
	if c.closed {
		return fmt.Errorf("dbtest: connection already closed")
	}
	c.opened = true
	return nil
}

func (c *BlockingConn) Begin(level db.IsolationLevel) (db.ITransaction, error) {
	c.driver.record("conn.Begin")
	return c.begin(level)
}

func (c *BlockingConn) begin(level db.IsolationLevel) (*BlockingTx, error) {
	if !c.IsOpen() {
		return nil, errNotOpen
	}
	if c.driver.BeginErr != nil {
		return nil, c.driver.BeginErr
	}
	if c.tx != nil && !c.tx.done {
		return nil, fmt.Errorf("dbtest: a transaction is already active on this connection")
	}
	c.tx = &BlockingTx{conn: c, level: level}
	return c.tx, nil
}

func (c *BlockingConn) Query(query string, args ...any) (db.IRows, error) {
	c.driver.record("conn.Query")
	return c.query(query, args, nil)
}

func (c *BlockingConn) query(query string, args []any, tx *BlockingTx) (*BlockingRows, error) {
	if !c.IsOpen() {
		return nil, errNotOpen
	}
	resp, err := c.driver.run(query, args, tx)
	if err != nil {
		return nil, err
	}
	return &BlockingRows{driver: c.driver, cols: resp.Columns, data: resp.Rows, pos: -1}, nil
}

func (c *BlockingConn) Exec(query string, args ...any) (sql.Result, error) {
	c.driver.record("conn.Exec")
	return c.exec(query, args, nil)
}

func (c *BlockingConn) exec(query string, args []any, tx *BlockingTx) (sql.Result, error) {
	if !c.IsOpen() {
		return nil, errNotOpen
	}
	resp, err := c.driver.run(query, args, tx)
	if err != nil {
		return nil, err
	}
	return result{affected: resp.Affected, insertID: resp.InsertID}, nil
}

func (c *BlockingConn) Close() error {
	c.driver.record("conn.Close")
	return c.shutdown()
}

func (c *BlockingConn) shutdown() error {
	c.closed = true
	return c.driver.CloseErr
}

// NativeConn 额外实现全部 context 能力的连接
type NativeConn struct {
	*BlockingConn
}

func (c *NativeConn) OpenContext(ctx context.Context) error {
	c.driver.record("conn.OpenContext")
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.open()
}

func (c *NativeConn) BeginContext(ctx context.Context, level db.IsolationLevel) (db.ITransaction, error) {
	c.driver.record("conn.BeginContext")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := c.begin(level)
	if err != nil {
		return nil, err
	}
	return &NativeTx{BlockingTx: tx}, nil
}

func (c *NativeConn) QueryContext(ctx context.Context, query string, args ...any) (db.IRows, error) {
	c.driver.record("conn.QueryContext")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := c.query(query, args, nil)
	if err != nil {
		return nil, err
	}
	return &NativeRows{BlockingRows: rows}, nil
}

func (c *NativeConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.driver.record("conn.ExecContext")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.exec(query, args, nil)
}

func (c *NativeConn) CloseContext(ctx context.Context) error {
	c.driver.record("conn.CloseContext")
	return c.shutdown()
}

// BlockingTx 只实现阻塞接口的事务
type BlockingTx struct {
	conn  *BlockingConn
	level db.IsolationLevel
	done  bool
}

// Level 开启事务时传入的隔离级别
func (t *BlockingTx) Level() db.IsolationLevel { return t.level }

func (t *BlockingTx) Query(query string, args ...any) (db.IRows, error) {
	t.conn.driver.record("tx.Query")
	if t.done {
		return nil, sql.ErrTxDone
	}
	return t.conn.query(query, args, t)
}

func (t *BlockingTx) Exec(query string, args ...any) (sql.Result, error) {
	t.conn.driver.record("tx.Exec")
	if t.done {
		return nil, sql.ErrTxDone
	}
	return t.conn.exec(query, args, t)
}

func (t *BlockingTx) Commit() error {
	t.conn.driver.record("tx.Commit")
	return t.commit()
}

func (t *BlockingTx) commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	if t.conn.driver.CommitErr != nil {
		return t.conn.driver.CommitErr
	}
	t.done = true
	return nil
}

func (t *BlockingTx) Rollback() error {
	t.conn.driver.record("tx.Rollback")
	return t.rollback()
}

func (t *BlockingTx) rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return t.conn.driver.RollbackErr
}

// NativeTx 额外实现 context 能力的事务
type NativeTx struct {
	*BlockingTx
}

func (t *NativeTx) QueryContext(ctx context.Context, query string, args ...any) (db.IRows, error) {
	t.conn.driver.record("tx.QueryContext")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.done {
		return nil, sql.ErrTxDone
	}
	rows, err := t.conn.query(query, args, t.BlockingTx)
	if err != nil {
		return nil, err
	}
	return &NativeRows{BlockingRows: rows}, nil
}

func (t *NativeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.conn.driver.record("tx.ExecContext")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.done {
		return nil, sql.ErrTxDone
	}
	return t.conn.exec(query, args, t.BlockingTx)
}

func (t *NativeTx) CommitContext(ctx context.Context) error {
	t.conn.driver.record("tx.CommitContext")
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func (t *NativeTx) RollbackContext(ctx context.Context) error {
	t.conn.driver.record("tx.RollbackContext")
	return t.rollback()
}

// BlockingRows 只实现阻塞接口的结果集
type BlockingRows struct {
	driver *Driver
	cols   []string
	data   [][]any
	pos    int
	closed bool
}

func (r *BlockingRows) Next() bool {
	r.driver.record("rows.Next")
	return r.advance()
}

func (r *BlockingRows) advance() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.data)
}

func (r *BlockingRows) Scan(dest ...any) error {
	if r.closed || r.pos < 0 || r.pos >= len(r.data) {
		return fmt.Errorf("dbtest: Scan called without a current row")
	}
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("dbtest: expected %d destination arguments in Scan, not %d", len(row), len(dest))
	}
	for i := range dest {
		if err := assign(dest[i], row[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *BlockingRows) Columns() ([]string, error) {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out, nil
}

func (r *BlockingRows) Close() error {
	r.driver.record("rows.Close")
	r.closed = true
	return nil
}

func (r *BlockingRows) Err() error { return nil }

// NativeRows 额外实现 NextContext 的结果集
type NativeRows struct {
	*BlockingRows
}

func (r *NativeRows) NextContext(ctx context.Context) (bool, error) {
	r.driver.record("rows.NextContext")
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.advance(), nil
}

func assign(dest, v any) error {
	if d, ok := dest.(*any); ok {
		*d = v
		return nil
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("dbtest: destination %T is not a non-nil pointer", dest)
	}
	ev := dv.Elem()
	if v == nil {
		ev.Set(reflect.Zero(ev.Type()))
		return nil
	}
	sv := reflect.ValueOf(v)
	if sv.Type().AssignableTo(ev.Type()) {
		ev.Set(sv)
		return nil
	}
	if isNumeric(sv.Kind()) && isNumeric(ev.Kind()) {
		ev.Set(sv.Convert(ev.Type()))
		return nil
	}
	return fmt.Errorf("dbtest: cannot scan %T into %T", v, dest)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

var (
	_ db.IConnection         = (*BlockingConn)(nil)
	_ db.IContextOpener      = (*NativeConn)(nil)
	_ db.IContextBeginner    = (*NativeConn)(nil)
	_ db.IContextCloser      = (*NativeConn)(nil)
	_ db.IExecutorContext    = (*NativeConn)(nil)
	_ db.ITransactionContext = (*NativeTx)(nil)
	_ db.IExecutorContext    = (*NativeTx)(nil)
	_ db.IRowsContext        = (*NativeRows)(nil)
)

// Package dbtest 提供可编排的内存假驱动，用于能力分派与状态机测试
//
// 同一个 Driver 可以产出两种连接：
//   - Blocking：只实现 data/db 的阻塞接口；
//   - Native：额外实现全部 I*Context 可选接口。
//
// 每次调用都会记录在 Driver.Calls 中（例如 "conn.Open"、"conn.OpenContext"、"tx.Rollback"），
// 测试据此断言走了哪条路径、每个句柄被释放了几次。
package dbtest

import (
	"database/sql"
	"fmt"
	"sync"

	"commq/data/db"
)

// Response 针对某条查询文本的预设结果
type Response struct {
	Columns  []string
	Rows     [][]any
	Affected int64
	InsertID int64
	Err      error
}

// Executed 一次执行记录
type Executed struct {
	Query string
	Args  []any
	InTx  bool
	Level db.IsolationLevel
}

// Driver 假驱动
type Driver struct {
	mu        sync.Mutex
	dialect   string
	responses map[string]Response
	calls     []string
	executed  []Executed

	OpenErr     error
	BeginErr    error
	CommitErr   error
	RollbackErr error
	CloseErr    error
}

// NewDriver 创建假驱动，dialect 为 GetDialectName 返回值（可为空）
func NewDriver(dialect string) *Driver {
	return &Driver{dialect: dialect, responses: make(map[string]Response)}
}

// On 为查询文本预设结果；未预设的查询返回空结果集
func (d *Driver) On(query string, resp Response) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[query] = resp
	return d
}

// Factory 返回连接工厂；native 为 true 时产出支持 context 的连接
func (d *Driver) Factory(native bool) db.IConnectionFactory {
	return db.ConnectionFactoryFunc(func() (db.IConnection, error) {
		d.record("factory.Create")
		return d.NewConn(native), nil
	})
}

// NewConn 直接创建一个未打开的连接
func (d *Driver) NewConn(native bool) db.IConnection {
	c := &BlockingConn{driver: d}
	if native {
		return &NativeConn{BlockingConn: c}
	}
	return c
}

// Calls 返回调用记录副本
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// Count 返回某调用出现的次数
func (d *Driver) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Executed 返回执行记录副本
func (d *Driver) Executed() []Executed {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Executed, len(d.executed))
	copy(out, d.executed)
	return out
}

func (d *Driver) record(name string) {
	d.mu.Lock()
	d.calls = append(d.calls, name)
	d.mu.Unlock()
}

func (d *Driver) run(query string, args []any, tx *BlockingTx) (Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := Executed{Query: query, Args: append([]any(nil), args...)}
	if tx != nil {
		e.InTx = true
		e.Level = tx.level
	}
	d.executed = append(d.executed, e)
	resp := d.responses[query]
	if resp.Err != nil {
		return Response{}, resp.Err
	}
	return resp, nil
}

// ---- 结果 ----

type result struct{ affected, insertID int64 }

func (r result) LastInsertId() (int64, error) { return r.insertID, nil }
func (r result) RowsAffected() (int64, error) { return r.affected, nil }

var _ sql.Result = result{}

var errNotOpen = fmt.Errorf("dbtest: connection is not open")

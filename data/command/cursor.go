package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commq/data/db/dispatch"
	"commq/errors"
)

// Cursor 只进游标，加上按列名读取的便捷方法
//
// 调用方拥有游标的生命周期，必须 Close。列序号在首次按名读取时解析并缓存，
// 当前行的值在首次读取时一次性扫描进缓冲区。映射回调执行期间禁止调用 Next。
type Cursor struct {
	ctx  context.Context
	rows dispatch.Rows

	columns  []string
	ordinals map[string]int
	values   []any
	loaded   bool
	onRow    bool

	mapping bool
	closed  bool
	err     error
}

func newCursor(ctx context.Context, rows dispatch.Rows) *Cursor {
	return &Cursor{ctx: ctx, rows: rows}
}

// Next 推进到下一行
func (c *Cursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if c.mapping {
		c.err = errors.InvalidOperation("a mapper must not advance the cursor")
		return false
	}
	c.loaded = false
	ok, err := c.rows.Next(c.ctx)
	if err != nil {
		c.err = err
	}
	c.onRow = ok && err == nil
	return c.onRow
}

// Err 返回遍历过程中的错误
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close 关闭游标，重复调用无副作用
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.onRow = false
	return c.rows.Close()
}

// Columns 列名
func (c *Cursor) Columns() ([]string, error) {
	if err := c.resolve(); err != nil {
		return nil, err
	}
	out := make([]string, len(c.columns))
	copy(out, c.columns)
	return out, nil
}

// Scan 将当前行扫描到 dest，语义同 database/sql
func (c *Cursor) Scan(dest ...any) error {
	if !c.onRow {
		return errors.InvalidOperation("Scan called without a current row")
	}
	return c.rows.Scan(dest...)
}

// Ordinal 返回列序号（大小写不敏感）
func (c *Cursor) Ordinal(name string) (int, error) {
	if err := c.resolve(); err != nil {
		return -1, err
	}
	i, ok := c.ordinals[strings.ToLower(name)]
	if !ok {
		return -1, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("column %q not found in result", name))
	}
	return i, nil
}

// ValueAt 按序号读取当前行的原始值
func (c *Cursor) ValueAt(i int) (any, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.values) {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("column ordinal %d out of range", i))
	}
	return c.values[i], nil
}

// Value 按列名读取当前行的原始值
func (c *Cursor) Value(name string) (any, error) {
	i, err := c.Ordinal(name)
	if err != nil {
		return nil, err
	}
	return c.ValueAt(i)
}

// IsNull 列值是否为 NULL
func (c *Cursor) IsNull(name string) (bool, error) {
	v, err := c.Value(name)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (c *Cursor) String(name string) (string, error)   { return Column[string](c, name) }
func (c *Cursor) Int64(name string) (int64, error)     { return Column[int64](c, name) }
func (c *Cursor) Float64(name string) (float64, error) { return Column[float64](c, name) }
func (c *Cursor) Bool(name string) (bool, error)       { return Column[bool](c, name) }
func (c *Cursor) Time(name string) (time.Time, error)  { return Column[time.Time](c, name) }
func (c *Cursor) Bytes(name string) ([]byte, error)    { return Column[[]byte](c, name) }

// Column 按列名读取并转换为 T
func Column[T any](c *Cursor, name string) (T, error) {
	v, err := c.Value(name)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := Convert[T](v)
	if err != nil {
		return out, errors.NewErrorWithCause(errors.ErrCodeTypeMismatch,
			fmt.Sprintf("column %q", name), err).WithContext("column", name)
	}
	return out, nil
}

func (c *Cursor) resolve() error {
	if c.ordinals != nil {
		return nil
	}
	cols, err := c.rows.Columns()
	if err != nil {
		return err
	}
	c.columns = cols
	c.ordinals = make(map[string]int, len(cols))
	for i, name := range cols {
		key := strings.ToLower(name)
		if _, dup := c.ordinals[key]; !dup {
			c.ordinals[key] = i
		}
	}
	return nil
}

func (c *Cursor) load() error {
	if c.loaded {
		return nil
	}
	if !c.onRow {
		return errors.InvalidOperation("no current row")
	}
	if err := c.resolve(); err != nil {
		return err
	}
	if c.values == nil {
		c.values = make([]any, len(c.columns))
	}
	dest := make([]any, len(c.values))
	for i := range c.values {
		c.values[i] = nil
		dest[i] = &c.values[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		return err
	}
	c.loaded = true
	return nil
}

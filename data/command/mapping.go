package command

// IReadable 自映射：实体从游标当前行填充自身字段
//
// 在 *T 上实现；T 的零值即默认构造。实现不得推进游标。
type IReadable interface {
	Read(c *Cursor) error
}

// IDataMapper 外部映射器：从游标当前行产出 T，实现不得推进游标
type IDataMapper[T any] interface {
	Map(c *Cursor) (T, error)
}

// MapperFunc 函数适配器
type MapperFunc[T any] func(c *Cursor) (T, error)

func (f MapperFunc[T]) Map(c *Cursor) (T, error) { return f(c) }

// readable 把自映射类型适配为 IDataMapper
type readable[T any, PT interface {
	*T
	IReadable
}] struct{}

func (readable[T, PT]) Map(c *Cursor) (T, error) {
	var v T
	err := PT(&v).Read(c)
	return v, err
}

// mapRow 在当前行上执行映射；映射期间游标拒绝 Next
func mapRow[T any](c *Cursor, m IDataMapper[T]) (T, error) {
	c.mapping = true
	v, err := m.Map(c)
	c.mapping = false
	if err == nil && c.err != nil {
		err = c.err
	}
	return v, err
}

// Collect 遍历游标全部行并映射，结束后关闭游标
func Collect[T any](c *Cursor, m IDataMapper[T]) (out []T, err error) {
	defer func() {
		if cerr := c.Close(); err == nil && cerr != nil {
			out, err = nil, cerr
		}
	}()
	for c.Next() {
		v, err := mapRow(c, m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// first 读取至多一行，结束后关闭游标
func first[T any](c *Cursor, m IDataMapper[T]) (v T, found bool, err error) {
	defer func() {
		if cerr := c.Close(); err == nil && cerr != nil {
			var zero T
			v, found, err = zero, false, cerr
		}
	}()
	if !c.Next() {
		return v, false, c.Err()
	}
	v, err = mapRow(c, m)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

package uow

import "commq/logging"

// Ownership 连接所有权策略
type Ownership int

const (
	// Owned Close 时关闭连接（默认）
	Owned Ownership = iota
	// Borrowed 连接由外部持有，Close 只结束事务
	Borrowed
)

func (o Ownership) String() string {
	if o == Borrowed {
		return "Borrowed"
	}
	return "Owned"
}

// Option 工作单元选项
type Option func(*UnitOfWork)

// WithOwnership 设置连接所有权
func WithOwnership(o Ownership) Option {
	return func(u *UnitOfWork) { u.ownership = o }
}

// WithLogger 指定日志实现，默认使用全局 Logger
func WithLogger(l logging.Logger) Option {
	return func(u *UnitOfWork) {
		if l != nil {
			u.logger = l
		}
	}
}

package uow

import (
	"context"

	"commq/data/db"
	"commq/data/db/dispatch"
)

// Factory 打开连接并返回已开启事务的工作单元
type Factory struct {
	connections db.IConnectionFactory
	opts        []Option
}

// NewFactory 创建工作单元工厂；opts 应用于每个产出的工作单元
//
// 工厂打开的连接总是由工作单元持有，WithOwnership 在这里不生效。
func NewFactory(connections db.IConnectionFactory, opts ...Option) *Factory {
	return &Factory{connections: connections, opts: opts}
}

// Create 以驱动默认隔离级别创建
func (f *Factory) Create(ctx context.Context) (*UnitOfWork, error) {
	return f.CreateWithIsolation(ctx, db.LevelDefault)
}

// CreateWithIsolation 打开连接、开启事务；开启失败时关闭连接再返回错误
func (f *Factory) CreateWithIsolation(ctx context.Context, level db.IsolationLevel) (*UnitOfWork, error) {
	conn, err := dispatch.OpenAndGet(ctx, f.connections)
	if err != nil {
		return nil, err
	}

	opts := append(append([]Option(nil), f.opts...), WithOwnership(Owned))
	u := New(conn, opts...)
	if err := u.BeginTransactionWithIsolation(ctx, level); err != nil {
		_ = u.Close(ctx)
		return nil, err
	}
	return u, nil
}

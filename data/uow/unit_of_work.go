// Package uow 实现事务范围的工作单元
//
// 一个 UnitOfWork 独占一个连接、同一时刻至多一个事务，是绑定该事务的命令的唯一来源。
// 状态迁移：
//
//	Created ──BeginTransaction──▶ Active ──SaveChanges──▶ Committed
//	                                │
//	                                └──Rollback / Close──▶ RolledBack
//
// 任意状态下 Close 都会（必要时先回滚）释放连接并进入 Closed；再次 Close 为空操作。
// 进入 Committed / RolledBack / Closed 之后，事务相关操作返回 ErrDisposed。
// 实例不支持并发调用。
package uow

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"

	"commq/data/command"
	"commq/data/db"
	"commq/data/db/dialect"
	"commq/data/db/dispatch"
	"commq/errors"
	"commq/logging"
)

// State 工作单元状态
type State int

const (
	StateCreated State = iota
	StateActive
	StateCommitted
	StateRolledBack
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateActive:
		return "Active"
	case StateCommitted:
		return "Committed"
	case StateRolledBack:
		return "RolledBack"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal 是否已不能再进行事务操作
func (s State) Terminal() bool {
	return s >= StateCommitted
}

const objectName = "UnitOfWork"

// UnitOfWork 工作单元
type UnitOfWork struct {
	id        string
	conn      dispatch.Connection
	tx        dispatch.Transaction
	dialect   dialect.Dialect
	level     db.IsolationLevel
	state     State
	ownership Ownership
	logger    logging.Logger
}

// New 包装一个已打开的连接，初始状态 Created
func New(conn dispatch.Connection, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		id:      uuid.NewString(),
		conn:    conn,
		dialect: dialect.FromConnection(conn.Raw()),
		state:   StateCreated,
		logger:  logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.WithFields(logging.String("uow_id", u.id))
	return u
}

func (u *UnitOfWork) ID() string                   { return u.id }
func (u *UnitOfWork) State() State                 { return u.state }
func (u *UnitOfWork) Dialect() dialect.Dialect     { return u.dialect }
func (u *UnitOfWork) Isolation() db.IsolationLevel { return u.level }

// BeginTransaction 以驱动默认隔离级别开启事务
func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	return u.BeginTransactionWithIsolation(ctx, db.LevelDefault)
}

// BeginTransactionWithIsolation 开启事务：Created → Active
//
// 开启失败时状态保持 Created，驱动错误原样返回。
func (u *UnitOfWork) BeginTransactionWithIsolation(ctx context.Context, level db.IsolationLevel) error {
	switch {
	case u.state == StateActive:
		return errors.InvalidOperation("a transaction is already active on this unit of work")
	case u.state.Terminal():
		return errors.Disposed(objectName)
	}

	tx, err := u.conn.Begin(ctx, level)
	if err != nil {
		return err
	}
	u.tx = tx
	u.level = level
	u.state = StateActive
	u.logger.Debug(ctx, "transaction begun", logging.String("isolation", level.String()))
	return nil
}

// CreateCommand 创建绑定在活动事务上的命令
func (u *UnitOfWork) CreateCommand() (*command.Command, error) {
	switch {
	case u.state == StateCreated:
		return nil, errors.InvalidOperation("BeginTransaction must be called before creating commands")
	case u.state.Terminal():
		return nil, errors.Disposed(objectName)
	}
	return command.NewCommand(u.tx, u.dialect), nil
}

// CreateReader 返回委托本工作单元创建命令的 Reader；状态检查推迟到执行时
func (u *UnitOfWork) CreateReader() *command.Reader {
	return command.NewReader(source{u})
}

// CreateWriter 返回委托本工作单元创建命令的 Writer
func (u *UnitOfWork) CreateWriter() *command.Writer {
	return command.NewWriter(source{u})
}

// SaveChanges 提交事务：Active → Committed
//
// 提交失败时状态保持 Active，由 Close 负责回滚。
func (u *UnitOfWork) SaveChanges(ctx context.Context) error {
	switch {
	case u.state == StateCreated:
		return errors.InvalidOperation("no active transaction to save")
	case u.state.Terminal():
		return errors.Disposed(objectName)
	}

	if err := u.tx.Commit(ctx); err != nil {
		u.logger.Warn(ctx, "commit failed", logging.Error(err))
		return err
	}
	u.tx = nil
	u.state = StateCommitted
	u.logger.Debug(ctx, "transaction committed")
	return nil
}

// Rollback 显式回滚：Active → RolledBack
//
// 无论驱动回滚是否成功，事务句柄都只释放一次，状态进入 RolledBack。
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	switch {
	case u.state == StateCreated:
		return errors.InvalidOperation("no active transaction to roll back")
	case u.state.Terminal():
		return errors.Disposed(objectName)
	}
	return u.rollback(ctx)
}

func (u *UnitOfWork) rollback(ctx context.Context) error {
	tx := u.tx
	u.tx = nil
	u.state = StateRolledBack

	err := tx.Rollback(ctx)
	if err != nil && stdErrors.Is(err, sql.ErrTxDone) {
		// 驱动已经结束了事务（例如 ctx 取消触发的自动回滚或失败的提交）
		err = nil
	}
	if err != nil {
		u.logger.Warn(ctx, "rollback failed", logging.Error(err))
		return err
	}
	u.logger.Debug(ctx, "transaction rolled back")
	return nil
}

// Close 释放工作单元
//
// 仍处于 Active 时先回滚；随后按所有权策略关闭连接，连接只释放一次。
// 回滚失败时仍会关闭连接，两个错误一并返回。使用不可取消的 ctx 完成清理，
// 重复调用返回 nil。
func (u *UnitOfWork) Close(ctx context.Context) error {
	if u.state == StateClosed {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	var errs []error
	if u.state == StateActive {
		if err := u.rollback(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	u.state = StateClosed

	if u.ownership == Owned {
		if err := u.conn.Close(ctx); err != nil {
			u.logger.Warn(ctx, "close connection failed", logging.Error(err))
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}

// source 把工作单元适配为命令来源；连接由工作单元释放，Release 什么也不做
type source struct{ u *UnitOfWork }

func (s source) CreateCommand() (*command.Command, error) { return s.u.CreateCommand() }
func (s source) Release(context.Context) error            { return nil }

var _ command.ICommandSource = source{}

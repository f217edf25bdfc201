package uow_test

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commq/data/db"
	"commq/data/db/dbtest"
	"commq/data/uow"
	"commq/errors"
	"commq/logging"
	"commq/patterns/retry"
)

func fastRetry(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, BackoffFactor: 1}
}

func TestTransact_RetriesTransientConflicts(t *testing.T) {
	d := dbtest.NewDriver("sqlite")
	f := uow.NewFactory(d.Factory(true), uow.WithLogger(logging.NewNoopLogger()))

	attempts := 0
	err := uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		attempts++
		if attempts == 1 {
			return stdErrors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	}, uow.WithRetry(fastRetry(3)))

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	// 每次尝试使用新的连接与事务
	assert.Equal(t, 2, d.Count("factory.Create"))
	assert.Equal(t, 1, d.Count("tx.RollbackContext"))
	assert.Equal(t, 1, d.Count("tx.CommitContext"))
	assert.Equal(t, 2, d.Count("conn.CloseContext"))
}

func TestTransact_DoesNotRetryOtherErrors(t *testing.T) {
	d := dbtest.NewDriver("sqlite")
	f := uow.NewFactory(d.Factory(false))

	boom := stdErrors.New("constraint failed")
	attempts := 0
	err := uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		attempts++
		return boom
	}, uow.WithRetry(fastRetry(5)))

	assert.Same(t, boom, err)
	assert.Equal(t, 1, attempts)
}

func TestTransact_NeverRetriesMisuse(t *testing.T) {
	d := dbtest.NewDriver("sqlite")
	f := uow.NewFactory(d.Factory(true))

	attempts := 0
	err := uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		attempts++
		return u.BeginTransaction(ctx)
	}, uow.WithRetry(retry.Config{MaxAttempts: 3, Retryable: func(error) bool { return true }}))

	// 显式 Retryable 由调用方负责
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		attempts++
		return errors.InvalidOperation("database is locked")
	}, uow.WithRetry(fastRetry(3)))
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)
	assert.Equal(t, 1, attempts)
}

func TestTransact_GivesUpAfterMaxAttempts(t *testing.T) {
	commitErr := stdErrors.New("could not serialize access due to concurrent update")
	d := dbtest.NewDriver("postgres")
	d.CommitErr = commitErr
	f := uow.NewFactory(d.Factory(true), uow.WithLogger(logging.NewNoopLogger()))

	err := uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		return nil
	}, uow.WithRetry(fastRetry(3)), uow.WithIsolation(db.LevelSerializable))

	assert.Same(t, commitErr, err)
	assert.Equal(t, 3, d.Count("tx.CommitContext"))
	assert.Equal(t, 3, d.Count("conn.CloseContext"))
}

func TestTransact_ReportsCloseFailure(t *testing.T) {
	closeErr := stdErrors.New("connection reset")
	d := dbtest.NewDriver("sqlite")
	d.CloseErr = closeErr
	f := uow.NewFactory(d.Factory(true), uow.WithLogger(logging.NewNoopLogger()))

	err := uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		return nil
	})
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, 1, d.Count("tx.CommitContext"))
}

func TestFactory_BeginFailureClosesConnection(t *testing.T) {
	beginErr := stdErrors.New("too many clients")
	d := dbtest.NewDriver("postgres")
	d.BeginErr = beginErr

	_, err := uow.NewFactory(d.Factory(true)).Create(context.Background())
	assert.Same(t, beginErr, err)
	assert.Equal(t, 1, d.Count("conn.CloseContext"))

	_, err = uow.NewFactory(d.Factory(false), uow.WithOwnership(uow.Borrowed)).Create(context.Background())
	assert.Same(t, beginErr, err)
	assert.Equal(t, 1, d.Count("conn.Close"), "factory-opened connections are always owned")
}

func TestFactory_OpenFailure(t *testing.T) {
	openErr := stdErrors.New("auth failed")
	d := dbtest.NewDriver("mysql")
	d.OpenErr = openErr

	_, err := uow.NewFactory(d.Factory(true)).Create(context.Background())
	assert.Same(t, openErr, err)
	assert.Equal(t, 0, d.Count("conn.BeginContext"))
}

// lockedOnce 第一次 Create 失败，之后委托给 next；按 sqlite 声明方言
type lockedOnce struct {
	next  db.IConnectionFactory
	calls int
}

func (f *lockedOnce) Create() (db.IConnection, error) {
	f.calls++
	if f.calls == 1 {
		return nil, stdErrors.New("database is locked")
	}
	return f.next.Create()
}

func (f *lockedOnce) GetDialectName() string { return "sqlite" }

func TestTransact_RetriesConnectFailureByFactoryDialect(t *testing.T) {
	d := dbtest.NewDriver("sqlite")
	connections := &lockedOnce{next: d.Factory(true)}
	f := uow.NewFactory(connections, uow.WithLogger(logging.NewNoopLogger()))

	runs := 0
	err := uow.Transact(context.Background(), f, func(ctx context.Context, u *uow.UnitOfWork) error {
		runs++
		return nil
	}, uow.WithRetry(fastRetry(3)))

	require.NoError(t, err)
	assert.Equal(t, 2, connections.calls)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, d.Count("tx.CommitContext"))
}

func TestTransact_ConnectFailureWithoutDialectIsNotRetried(t *testing.T) {
	calls := 0
	connections := db.ConnectionFactoryFunc(func() (db.IConnection, error) {
		calls++
		return nil, stdErrors.New("database is locked")
	})

	err := uow.Transact(context.Background(), uow.NewFactory(connections), func(ctx context.Context, u *uow.UnitOfWork) error {
		return nil
	}, uow.WithRetry(fastRetry(3)))

	assert.EqualError(t, err, "database is locked")
	assert.Equal(t, 1, calls)
}

package uow_test

import (
	"bytes"
	"context"
	stdErrors "errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commq/data/db"
	"commq/data/db/dbtest"
	"commq/data/db/dispatch"
	"commq/data/uow"
	"commq/errors"
	"commq/logging"
)

func newUnit(t *testing.T, d *dbtest.Driver, native bool, opts ...uow.Option) *uow.UnitOfWork {
	t.Helper()
	conn, err := dispatch.OpenAndGet(context.Background(), d.Factory(native))
	require.NoError(t, err)
	return uow.New(conn, opts...)
}

func TestUnitOfWork_BeginTwiceFails(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, dbtest.NewDriver("sqlite"), true)
	defer u.Close(ctx)

	require.NoError(t, u.BeginTransaction(ctx))
	assert.Equal(t, uow.StateActive, u.State())

	err := u.BeginTransaction(ctx)
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)
	assert.True(t, errors.IsMisuse(err))
	assert.Equal(t, uow.StateActive, u.State())
}

func TestUnitOfWork_CommandBeforeBeginFails(t *testing.T) {
	ctx := context.Background()
	u := newUnit(t, dbtest.NewDriver("sqlite"), false)
	defer u.Close(ctx)

	_, err := u.CreateCommand()
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)

	// Reader / Writer 可以提前创建，状态检查发生在执行时
	w := u.CreateWriter()
	_, err = w.Command(ctx, "DELETE FROM items", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidOperation)

	assert.ErrorIs(t, u.SaveChanges(ctx), errors.ErrInvalidOperation)
	assert.ErrorIs(t, u.Rollback(ctx), errors.ErrInvalidOperation)
}

func TestUnitOfWork_SaveChangesTwiceIsDisposed(t *testing.T) {
	ctx := context.Background()
	d := dbtest.NewDriver("sqlite")
	u := newUnit(t, d, false)
	defer u.Close(ctx)

	require.NoError(t, u.BeginTransaction(ctx))
	require.NoError(t, u.SaveChanges(ctx))
	assert.Equal(t, uow.StateCommitted, u.State())

	assert.ErrorIs(t, u.SaveChanges(ctx), errors.ErrDisposed)
	assert.ErrorIs(t, u.Rollback(ctx), errors.ErrDisposed)
	assert.ErrorIs(t, u.BeginTransaction(ctx), errors.ErrDisposed)
	_, err := u.CreateCommand()
	assert.ErrorIs(t, err, errors.ErrDisposed)
	assert.Equal(t, 1, d.Count("tx.Commit"))
}

func TestUnitOfWork_CommandsCarryTransaction(t *testing.T) {
	ctx := context.Background()
	d := dbtest.NewDriver("sqlite")
	u := newUnit(t, d, true)
	defer u.Close(ctx)

	require.NoError(t, u.BeginTransactionWithIsolation(ctx, db.LevelSerializable))
	assert.Equal(t, db.LevelSerializable, u.Isolation())

	w := u.CreateWriter()
	_, err := w.Command(ctx, "UPDATE items SET name = 'a'", nil)
	require.NoError(t, err)
	_, err = w.Command(ctx, "UPDATE items SET name = 'b'", nil)
	require.NoError(t, err)

	exec := d.Executed()
	require.Len(t, exec, 2)
	for _, e := range exec {
		assert.True(t, e.InTx)
		assert.Equal(t, db.LevelSerializable, e.Level)
	}
	assert.Equal(t, "UPDATE items SET name = 'a'", exec[0].Query, "commands run in issue order")
}

func TestUnitOfWork_CloseRollsBackActiveTransaction(t *testing.T) {
	for _, native := range []bool{true, false} {
		ctx := context.Background()
		d := dbtest.NewDriver("sqlite")
		u := newUnit(t, d, native)
		require.NoError(t, u.BeginTransaction(ctx))

		require.NoError(t, u.Close(ctx))
		assert.Equal(t, uow.StateClosed, u.State())
		assert.Equal(t, 1, d.Count("tx.Rollback")+d.Count("tx.RollbackContext"))
		assert.Equal(t, 1, d.Count("conn.Close")+d.Count("conn.CloseContext"))

		// 再次 Close 为空操作，不会重复释放句柄
		require.NoError(t, u.Close(ctx))
		assert.Equal(t, 1, d.Count("tx.Rollback")+d.Count("tx.RollbackContext"))
		assert.Equal(t, 1, d.Count("conn.Close")+d.Count("conn.CloseContext"))
	}
}

func TestUnitOfWork_CloseAfterCommitDoesNotRollback(t *testing.T) {
	ctx := context.Background()
	d := dbtest.NewDriver("sqlite")
	u := newUnit(t, d, true)
	require.NoError(t, u.BeginTransaction(ctx))
	require.NoError(t, u.SaveChanges(ctx))
	require.NoError(t, u.Close(ctx))

	assert.Equal(t, 0, d.Count("tx.RollbackContext"))
	assert.Equal(t, 1, d.Count("conn.CloseContext"))
}

func TestUnitOfWork_CloseWithCancelledContext(t *testing.T) {
	d := dbtest.NewDriver("sqlite")
	u := newUnit(t, d, true)
	require.NoError(t, u.BeginTransaction(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, u.Close(ctx))
	assert.Equal(t, 1, d.Count("tx.RollbackContext"))
	assert.Equal(t, 1, d.Count("conn.CloseContext"))
}

func TestUnitOfWork_RollbackFailureStillClosesConnection(t *testing.T) {
	ctx := context.Background()
	rollbackErr := stdErrors.New("rollback: broken pipe")
	closeErr := stdErrors.New("close: broken pipe")
	d := dbtest.NewDriver("sqlite")
	d.RollbackErr = rollbackErr
	d.CloseErr = closeErr

	u := newUnit(t, d, false, uow.WithLogger(logging.NewNoopLogger()))
	require.NoError(t, u.BeginTransaction(ctx))

	err := u.Close(ctx)
	assert.ErrorIs(t, err, rollbackErr)
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, 1, d.Count("conn.Close"))
	assert.Equal(t, uow.StateClosed, u.State())
}

func TestUnitOfWork_ExplicitRollback(t *testing.T) {
	ctx := context.Background()
	d := dbtest.NewDriver("sqlite")
	u := newUnit(t, d, true)
	require.NoError(t, u.BeginTransaction(ctx))

	require.NoError(t, u.Rollback(ctx))
	assert.Equal(t, uow.StateRolledBack, u.State())
	assert.ErrorIs(t, u.SaveChanges(ctx), errors.ErrDisposed)

	require.NoError(t, u.Close(ctx))
	assert.Equal(t, 1, d.Count("tx.RollbackContext"))
}

func TestUnitOfWork_CommitFailureLeavesTransactionActive(t *testing.T) {
	ctx := context.Background()
	commitErr := stdErrors.New("serialization failure")
	d := dbtest.NewDriver("sqlite")
	d.CommitErr = commitErr
	u := newUnit(t, d, true, uow.WithLogger(logging.NewNoopLogger()))
	require.NoError(t, u.BeginTransaction(ctx))

	assert.Same(t, commitErr, u.SaveChanges(ctx))
	assert.Equal(t, uow.StateActive, u.State())

	require.NoError(t, u.Close(ctx))
	assert.Equal(t, 1, d.Count("tx.RollbackContext"))
}

func TestUnitOfWork_BeginFailureKeepsCreated(t *testing.T) {
	ctx := context.Background()
	beginErr := stdErrors.New("too many connections")
	d := dbtest.NewDriver("sqlite")
	d.BeginErr = beginErr
	u := newUnit(t, d, false)
	defer u.Close(ctx)

	assert.Same(t, beginErr, u.BeginTransaction(ctx))
	assert.Equal(t, uow.StateCreated, u.State())
}

func TestUnitOfWork_BorrowedLeavesConnectionOpen(t *testing.T) {
	ctx := context.Background()
	d := dbtest.NewDriver("sqlite")
	conn, err := dispatch.OpenAndGet(ctx, d.Factory(true))
	require.NoError(t, err)

	u := uow.New(conn, uow.WithOwnership(uow.Borrowed))
	require.NoError(t, u.BeginTransaction(ctx))
	require.NoError(t, u.Close(ctx))
	assert.Equal(t, 1, d.Count("tx.RollbackContext"))
	assert.Equal(t, 0, d.Count("conn.CloseContext"))

	// 外部持有者仍可继续使用连接
	_, err = conn.Exec(ctx, "SELECT 1")
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))
}

func TestUnitOfWork_ReaderCloseReleasesNothing(t *testing.T) {
	ctx := context.Background()
	d := dbtest.NewDriver("sqlite")
	u := newUnit(t, d, true)
	defer u.Close(ctx)
	require.NoError(t, u.BeginTransaction(ctx))

	r := u.CreateReader()
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, 0, d.Count("conn.CloseContext"))
	assert.Equal(t, uow.StateActive, u.State())
}

func TestUnitOfWork_LogsLifecycleWithID(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := logging.NewStdLogger("[test]").WithLevel(logging.DebugLevel).WithOutput(log.New(&buf, "", 0))

	u := newUnit(t, dbtest.NewDriver("sqlite"), true, uow.WithLogger(logger))
	require.NoError(t, u.BeginTransactionWithIsolation(ctx, db.LevelReadCommitted))
	require.NoError(t, u.SaveChanges(ctx))
	require.NoError(t, u.Close(ctx))

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] [test] transaction begun uow_id="+u.ID()+" isolation=ReadCommitted")
	assert.Contains(t, out, "transaction committed")
	assert.Equal(t, 2, strings.Count(out, "uow_id="+u.ID()))
}

func TestUnitOfWork_DialectFromConnection(t *testing.T) {
	u := newUnit(t, dbtest.NewDriver("postgresql"), true)
	defer u.Close(context.Background())
	assert.Equal(t, "postgres", string(u.Dialect().Name()))
	assert.NotEmpty(t, u.ID())
}

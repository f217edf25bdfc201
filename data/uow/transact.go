package uow

import (
	"context"

	"commq/data/db"
	"commq/data/db/dialect"
	"commq/errors"
	"commq/logging"
	"commq/patterns/retry"
)

// TransactOption Transact 选项
type TransactOption func(*transactConfig)

type transactConfig struct {
	level db.IsolationLevel
	retry *retry.Config
}

// WithIsolation 指定隔离级别
func WithIsolation(level db.IsolationLevel) TransactOption {
	return func(c *transactConfig) { c.level = level }
}

// WithRetry 整体重跑工作单元
//
// 未设置 cfg.Retryable 时，只重试方言识别为事务冲突的错误（序列化失败、死锁、忙）；
// 状态机误用永不重试。每次重试都使用新的连接与事务。
func WithRetry(cfg retry.Config) TransactOption {
	return func(c *transactConfig) { c.retry = &cfg }
}

// Transact 在一个工作单元中执行 fn
//
// fn 返回 nil 时提交，否则回滚；工作单元总会被关闭。fn 的错误原样返回。
// fn 不应自行调用 SaveChanges，否则随后的提交返回 ErrDisposed。
func Transact(ctx context.Context, f *Factory, fn func(ctx context.Context, u *UnitOfWork) error, opts ...TransactOption) error {
	cfg := transactConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	// 连接或开启事务失败时还没有工作单元，先按工厂声明的方言分类
	d := dialect.FromConnection(f.connections)
	run := func(ctx context.Context, attempt int) (err error) {
		u, err := f.CreateWithIsolation(ctx, cfg.level)
		if err != nil {
			return err
		}
		d = u.Dialect()
		defer func() {
			if cerr := u.Close(ctx); err == nil {
				err = cerr
			}
		}()
		if attempt > 1 {
			u.logger.Debug(ctx, "retrying unit of work", logging.Int("attempt", attempt))
		}

		if err := fn(ctx, u); err != nil {
			return err
		}
		return u.SaveChanges(ctx)
	}

	if cfg.retry == nil {
		return run(ctx, 1)
	}

	rc := *cfg.retry
	if rc.Retryable == nil {
		rc.Retryable = func(err error) bool {
			return !errors.IsMisuse(err) && d.IsRetryable(err)
		}
	}
	return retry.DoWithInfo(ctx, run, rc)
}

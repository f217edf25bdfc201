// Package retry 提供带指数退避的调用方重试策略
//
// 命令层与工作单元本身从不重试；需要整体重跑事务时由调用方通过本包组合（见 uow.WithRetry）。
package retry

import (
	"context"
	"math"
	"time"
)

// Operation 可重试的操作函数类型
type Operation func(ctx context.Context) error

// OperationWithInfo 可重试的操作，attempt 从 1 开始
type OperationWithInfo func(ctx context.Context, attempt int) error

// Config 重试配置
type Config struct {
	MaxAttempts   int           // 最大尝试次数（包括首次），<= 0 视为 1
	InitialDelay  time.Duration // 初始退避延迟
	BackoffFactor float64       // 退避倍数（指数退避）
	MaxDelay      time.Duration // 最大延迟，0 表示不限制

	// Retryable 判断错误是否值得重试；nil 表示所有错误都重试
	Retryable func(err error) bool
}

// DefaultConfig 返回默认配置
//
// 默认值：
//   - MaxAttempts: 3（1次初始 + 2次重试）
//   - InitialDelay: 10ms
//   - BackoffFactor: 2.0
//   - MaxDelay: 1s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      1 * time.Second,
	}
}

// Do 执行带重试的操作
//
// 返回 nil（任意一次成功）、不可重试的错误（立即返回）、最后一次尝试的错误，
// 或者在等待期间 ctx 被取消时返回 ctx.Err()。
func Do(ctx context.Context, op Operation, cfg Config) error {
	return DoWithInfo(ctx, func(ctx context.Context, _ int) error { return op(ctx) }, cfg)
}

// DoWithInfo 同 Do，每次尝试都会传入当前尝试次数
func DoWithInfo(ctx context.Context, op OperationWithInfo, cfg Config) error {
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts || (cfg.Retryable != nil && !cfg.Retryable(err)) {
			return err
		}

		timer := time.NewTimer(cfg.Delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}

// Delay 第 attempt 次失败之后的退避时长
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

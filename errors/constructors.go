package errors

import (
	"fmt"
	"runtime"
)

// InvalidOperation 状态机误用
func InvalidOperation(msg string) error {
	return withLocation(NewError(ErrCodeInvalidOperation, msg))
}

// Disposed 对象已释放后继续使用，object 为对象名（如 "UnitOfWork"）
func Disposed(object string) error {
	return withLocation(NewError(ErrCodeDisposed, fmt.Sprintf("cannot access a disposed object: %s", object)).
		WithContext("object", object))
}

// Unsupported 驱动/方言无法满足的能力
func Unsupported(msg string) error {
	return withLocation(NewError(ErrCodeUnsupported, msg))
}

// TypeMismatch 值 v 无法转换为 target 类型
func TypeMismatch(v any, target string) error {
	return withLocation(NewError(ErrCodeTypeMismatch, fmt.Sprintf("cannot convert %T to %s", v, target)).
		WithContext("target", target))
}

// TypeMismatchCause 带原因的类型转换错误（例如 strconv / time 解析失败）
func TypeMismatchCause(v any, target string, cause error) error {
	return withLocation(NewErrorWithCause(ErrCodeTypeMismatch, fmt.Sprintf("cannot convert %T to %s", v, target), cause).
		WithContext("target", target))
}

// withLocation 记录调用位置（跳过构造函数本身）
func withLocation(err IError) error {
	if _, file, line, ok := runtime.Caller(2); ok {
		return err.WithContext("location", fmt.Sprintf("%s:%d", file, line))
	}
	return err
}

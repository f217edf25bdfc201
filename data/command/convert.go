package command

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"commq/errors"
)

// 文本时间的解析格式，按常见驱动的输出排列
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Convert 将驱动返回的值转换为 T
//
// 数值之间只做无损转换（范围或精度不符即失败）；字符串与 []byte 互转；
// 文本可解析为数值、布尔、时间与 UUID。NULL 只能转换为可为 nil 的 T（指针、接口、切片等），
// 其余情况返回 ErrCodeTypeMismatch。
func Convert[T any](v any) (T, error) {
	var zero T
	if v == nil {
		if nilable[T]() {
			return zero, nil
		}
		return zero, errors.TypeMismatch(nil, typeName[T]())
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case int64:
		out, err = signed[int64](v)
	case int:
		out, err = signed[int](v)
	case int32:
		out, err = signed[int32](v)
	case int16:
		out, err = signed[int16](v)
	case int8:
		out, err = signed[int8](v)
	case uint64:
		out, err = unsigned[uint64](v)
	case uint:
		out, err = unsigned[uint](v)
	case uint32:
		out, err = unsigned[uint32](v)
	case uint16:
		out, err = unsigned[uint16](v)
	case uint8:
		out, err = unsigned[uint8](v)
	case float64:
		out, err = toFloat64(v)
	case float32:
		var f float64
		if f, err = toFloat64(v); err == nil {
			if math.Abs(f) > math.MaxFloat32 {
				err = errors.TypeMismatch(v, "float32")
			}
			out = float32(f)
		}
	case bool:
		out, err = toBool(v)
	case string:
		s, ok := textValue(v)
		if !ok {
			return zero, errors.TypeMismatch(v, "string")
		}
		out = s
	case []byte:
		if s, ok := v.(string); ok {
			out = []byte(s)
		} else {
			return zero, errors.TypeMismatch(v, "[]byte")
		}
	case time.Time:
		out, err = toTime(v)
	case uuid.UUID:
		out, err = toUUID(v)
	case *int64:
		out, err = pointer[int64](v)
	case *int:
		out, err = pointer[int](v)
	case *int32:
		out, err = pointer[int32](v)
	case *float64:
		out, err = pointer[float64](v)
	case *bool:
		out, err = pointer[bool](v)
	case *string:
		out, err = pointer[string](v)
	case *time.Time:
		out, err = pointer[time.Time](v)
	case *uuid.UUID:
		out, err = pointer[uuid.UUID](v)
	default:
		return convertKind[T](v)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// convertKind 处理底层为内置类型的具名类型，例如 type Status string、type Count int64
func convertKind[T any](v any) (T, error) {
	var zero T
	rt := reflect.TypeFor[T]()
	rv := reflect.New(rt).Elem()

	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt64(v)
		if err != nil {
			return zero, err
		}
		if rv.OverflowInt(i) {
			return zero, errors.TypeMismatch(v, typeName[T]())
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := unsigned[uint64](v)
		if err != nil {
			return zero, err
		}
		if rv.OverflowUint(u) {
			return zero, errors.TypeMismatch(v, typeName[T]())
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(v)
		if err != nil {
			return zero, err
		}
		if rv.OverflowFloat(f) {
			return zero, errors.TypeMismatch(v, typeName[T]())
		}
		rv.SetFloat(f)
	case reflect.Bool:
		b, err := toBool(v)
		if err != nil {
			return zero, err
		}
		rv.SetBool(b)
	case reflect.String:
		s, ok := textValue(v)
		if !ok {
			return zero, errors.TypeMismatch(v, typeName[T]())
		}
		rv.SetString(s)
	case reflect.Slice:
		s, ok := textValue(v)
		if !ok || rt.Elem().Kind() != reflect.Uint8 {
			return zero, errors.TypeMismatch(v, typeName[T]())
		}
		rv.SetBytes([]byte(s))
	default:
		return zero, errors.TypeMismatch(v, typeName[T]())
	}
	return rv.Interface().(T), nil
}

func pointer[T any](v any) (*T, error) {
	x, err := Convert[T](v)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func nilable[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

type signedInt interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsignedInt interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func signed[T signedInt](v any) (T, error) {
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if int64(T(i)) != i {
		return 0, errors.TypeMismatch(v, typeName[T]())
	}
	return T(i), nil
}

func unsigned[T unsignedInt](v any) (T, error) {
	if u, ok := v.(uint64); ok {
		if uint64(T(u)) != u {
			return 0, errors.TypeMismatch(v, typeName[T]())
		}
		return T(u), nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 || uint64(T(i)) != uint64(i) {
		return 0, errors.TypeMismatch(v, typeName[T]())
	}
	return T(i), nil
}

// integerValue 只接受整数类型
func integerValue(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

// floatValue 接受浮点与整数类型
func floatValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if i, ok := integerValue(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toInt64(v any) (int64, error) {
	if i, ok := integerValue(v); ok {
		return i, nil
	}
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, errors.TypeMismatch(v, "int64")
		}
		return int64(x), nil
	case float32:
		return toInt64(float64(x))
	}
	if s, ok := textValue(v); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, errors.TypeMismatchCause(v, "int64", err)
		}
		return i, nil
	}
	return 0, errors.TypeMismatch(v, "int64")
}

func toFloat64(v any) (float64, error) {
	if f, ok := floatValue(v); ok {
		return f, nil
	}
	if s, ok := textValue(v); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, errors.TypeMismatchCause(v, "float64", err)
		}
		return f, nil
	}
	return 0, errors.TypeMismatch(v, "float64")
}

func toBool(v any) (bool, error) {
	if i, ok := integerValue(v); ok {
		switch i {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, errors.TypeMismatch(v, "bool")
	}
	if s, ok := textValue(v); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, errors.TypeMismatchCause(v, "bool", err)
		}
		return b, nil
	}
	return false, errors.TypeMismatch(v, "bool")
}

func toTime(v any) (time.Time, error) {
	s, ok := textValue(v)
	if !ok {
		return time.Time{}, errors.TypeMismatch(v, "time.Time")
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.TypeMismatchCause(v, "time.Time", fmt.Errorf("unrecognized time format %q", s))
}

func toUUID(v any) (uuid.UUID, error) {
	if b, ok := v.([]byte); ok && len(b) == 16 {
		return uuid.FromBytes(b)
	}
	s, ok := textValue(v)
	if !ok {
		return uuid.Nil, errors.TypeMismatch(v, "uuid.UUID")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.TypeMismatchCause(v, "uuid.UUID", err)
	}
	return id, nil
}

func textValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return "", false
	}
}

func parseDecimal(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	return r, nil
}

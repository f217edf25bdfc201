package command

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"commq/data/db"
	"commq/data/db/dialect"
	"commq/errors"
)

// Parameter 命令参数；Value 由调用方在 Add 之后赋值
type Parameter struct {
	Name  string
	Type  db.ParamType
	Size  int // 声明长度，<= 0 表示不限制
	Value any
}

// Parameters 命令的参数集合，按添加顺序保存
//
// 名称唯一性不在本地检查，重复名称交由驱动报错。
// 当前方言无法表示的逻辑类型会记录为粘滞错误，在命令执行时返回。
type Parameters struct {
	dialect dialect.Dialect
	items   []*Parameter
	err     error
}

func newParameters(d dialect.Dialect) *Parameters {
	return &Parameters{dialect: d}
}

// Add 声明参数
func (p *Parameters) Add(name string, t db.ParamType) *Parameter {
	return p.AddSized(name, t, 0)
}

// AddSized 声明带长度的参数（String 按字符数、Binary 按字节数）
func (p *Parameters) AddSized(name string, t db.ParamType, size int) *Parameter {
	if p.err == nil && !p.dialect.SupportsParamType(t) {
		p.err = errors.Unsupported(fmt.Sprintf("parameter %q: logical type %s is not supported by dialect %q",
			name, t, p.dialect.Name()))
	}
	param := &Parameter{Name: name, Type: t, Size: size}
	p.items = append(p.items, param)
	return param
}

// AddValue 声明参数并直接赋值
func (p *Parameters) AddValue(name string, t db.ParamType, value any) *Parameter {
	param := p.Add(name, t)
	param.Value = value
	return param
}

// Get 按名称查找参数（忽略 @ 前缀与大小写）
func (p *Parameters) Get(name string) (*Parameter, bool) {
	key := normalizeName(name)
	for _, param := range p.items {
		if normalizeName(param.Name) == key {
			return param, true
		}
	}
	return nil, false
}

// Len 参数个数
func (p *Parameters) Len() int { return len(p.items) }

// All 按添加顺序返回全部参数
func (p *Parameters) All() []*Parameter {
	out := make([]*Parameter, len(p.items))
	copy(out, p.items)
	return out
}

// Err 返回声明阶段记录的错误
func (p *Parameters) Err() error { return p.err }

func (p *Parameters) bind() ([]dialect.NamedArg, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.items) == 0 {
		return nil, nil
	}
	out := make([]dialect.NamedArg, 0, len(p.items))
	for _, param := range p.items {
		v, err := param.driverValue()
		if err != nil {
			return nil, err
		}
		out = append(out, dialect.NamedArg{Name: param.Name, Value: v})
	}
	return out, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimLeft(name, "@:$"))
}

// driverValue 按逻辑类型检查并翻译参数值
//
// nil 与空指针绑定为 NULL；实现 driver.Valuer 的值（如 sql.NullString）原样交给驱动。
func (p *Parameter) driverValue() (any, error) {
	v := p.Value
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(driver.Valuer); ok {
		return v, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		v = rv.Elem().Interface()
	}

	switch p.Type {
	case db.ParamString:
		s, ok := stringValue(v)
		if !ok {
			return nil, p.mismatch(v)
		}
		if p.Size > 0 && utf8.RuneCountInString(s) > p.Size {
			return nil, p.tooLong(v)
		}
		return s, nil
	case db.ParamInt16:
		return p.ranged(v, math.MinInt16, math.MaxInt16)
	case db.ParamInt32:
		return p.ranged(v, math.MinInt32, math.MaxInt32)
	case db.ParamInt64:
		return p.ranged(v, math.MinInt64, math.MaxInt64)
	case db.ParamByte:
		return p.ranged(v, 0, math.MaxUint8)
	case db.ParamBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, p.mismatch(v)
	case db.ParamFloat32, db.ParamFloat64:
		if f, ok := floatValue(v); ok {
			return f, nil
		}
		return nil, p.mismatch(v)
	case db.ParamDecimal:
		// 十进制按文本传递以避免二进制浮点误差
		if s, ok := v.(string); ok {
			if _, err := parseDecimal(s); err != nil {
				return nil, errors.TypeMismatchCause(v, p.Type.String(), err)
			}
			return s, nil
		}
		if i, ok := integerValue(v); ok {
			return i, nil
		}
		if f, ok := floatValue(v); ok {
			return f, nil
		}
		return nil, p.mismatch(v)
	case db.ParamDateTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		return nil, p.mismatch(v)
	case db.ParamBinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, p.mismatch(v)
		}
		if p.Size > 0 && len(b) > p.Size {
			return nil, p.tooLong(v)
		}
		return b, nil
	case db.ParamGuid:
		switch x := v.(type) {
		case uuid.UUID:
			return x.String(), nil
		case [16]byte:
			return uuid.UUID(x).String(), nil
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, errors.TypeMismatchCause(v, p.Type.String(), err)
			}
			return id.String(), nil
		}
		return nil, p.mismatch(v)
	default:
		return nil, errors.Unsupported(fmt.Sprintf("parameter %q: unknown logical type %s", p.Name, p.Type))
	}
}

func (p *Parameter) ranged(v any, lo, hi int64) (any, error) {
	i, ok := integerValue(v)
	if !ok || i < lo || i > hi {
		return nil, p.mismatch(v)
	}
	return i, nil
}

func (p *Parameter) mismatch(v any) error {
	return errors.NewError(errors.ErrCodeTypeMismatch,
		fmt.Sprintf("parameter %q: cannot convert %T to %s", p.Name, v, p.Type)).
		WithContext("target", p.Type.String()).
		WithContext("parameter", p.Name)
}

func (p *Parameter) tooLong(v any) error {
	return errors.NewError(errors.ErrCodeTypeMismatch,
		fmt.Sprintf("parameter %q: value exceeds declared size %d", p.Name, p.Size)).
		WithContext("parameter", p.Name).
		WithContext("size", p.Size)
}

func stringValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

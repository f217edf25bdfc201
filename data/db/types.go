package db

import (
	"database/sql"
	"fmt"
)

// IsolationLevel 事务隔离级别；LevelDefault 表示使用驱动默认值
type IsolationLevel int

const (
	LevelDefault IsolationLevel = iota
	LevelReadUncommitted
	LevelReadCommitted
	LevelWriteCommitted
	LevelRepeatableRead
	LevelSnapshot
	LevelSerializable
	LevelLinearizable
)

func (l IsolationLevel) String() string {
	switch l {
	case LevelDefault:
		return "Default"
	case LevelReadUncommitted:
		return "ReadUncommitted"
	case LevelReadCommitted:
		return "ReadCommitted"
	case LevelWriteCommitted:
		return "WriteCommitted"
	case LevelRepeatableRead:
		return "RepeatableRead"
	case LevelSnapshot:
		return "Snapshot"
	case LevelSerializable:
		return "Serializable"
	case LevelLinearizable:
		return "Linearizable"
	default:
		return fmt.Sprintf("IsolationLevel(%d)", int(l))
	}
}

// SQL 转换为 database/sql 的隔离级别
func (l IsolationLevel) SQL() sql.IsolationLevel {
	switch l {
	case LevelReadUncommitted:
		return sql.LevelReadUncommitted
	case LevelReadCommitted:
		return sql.LevelReadCommitted
	case LevelWriteCommitted:
		return sql.LevelWriteCommitted
	case LevelRepeatableRead:
		return sql.LevelRepeatableRead
	case LevelSnapshot:
		return sql.LevelSnapshot
	case LevelSerializable:
		return sql.LevelSerializable
	case LevelLinearizable:
		return sql.LevelLinearizable
	default:
		return sql.LevelDefault
	}
}

// CommandType 命令类型
type CommandType int

const (
	CommandText CommandType = iota
	CommandStoredProcedure
)

func (t CommandType) String() string {
	switch t {
	case CommandText:
		return "Text"
	case CommandStoredProcedure:
		return "StoredProcedure"
	default:
		return fmt.Sprintf("CommandType(%d)", int(t))
	}
}

// ParamType 与数据库引擎无关的逻辑参数类型
type ParamType int

const (
	ParamString ParamType = iota + 1
	ParamInt16
	ParamInt32
	ParamInt64
	ParamByte
	ParamBool
	ParamFloat32
	ParamFloat64
	ParamDecimal
	ParamDateTime
	ParamBinary
	ParamGuid
)

var paramTypeNames = map[ParamType]string{
	ParamString:   "String",
	ParamInt16:    "Int16",
	ParamInt32:    "Int32",
	ParamInt64:    "Int64",
	ParamByte:     "Byte",
	ParamBool:     "Boolean",
	ParamFloat32:  "Single",
	ParamFloat64:  "Double",
	ParamDecimal:  "Decimal",
	ParamDateTime: "DateTime",
	ParamBinary:   "Binary",
	ParamGuid:     "Guid",
}

func (t ParamType) String() string {
	if name, ok := paramTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ParamType(%d)", int(t))
}

// Valid 是否为已定义的逻辑类型
func (t ParamType) Valid() bool {
	_, ok := paramTypeNames[t]
	return ok
}

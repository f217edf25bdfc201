package dialect

import (
	"database/sql"
	"strings"

	core "commq/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL     Name = "mysql"
	NameSQLite    Name = "sqlite"
	NamePostgres  Name = "postgres"
	NameSQLServer Name = "sqlserver"
	NameUnknown   Name = ""
)

// Dialect 表示当前数据库的方言能力
//
// 只抽象命令层实际用到的能力：
//   - 命名参数 @Name 的绑定方式（sql.Named / $n / ?）
//   - 存储过程调用语法
//   - 隔离级别支持情况与可重试错误识别
type Dialect struct {
	name Name
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	case "sqlserver", "mssql":
		return Dialect{name: NameSQLServer}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromConnection 从原始连接推断方言
//
// 需要连接可选实现 IDialectNameProvider 接口；否则返回 Unknown。
func FromConnection(conn any) Dialect {
	if conn == nil {
		return Dialect{name: NameUnknown}
	}
	if p, ok := conn.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// SupportsParamType 当前方言能否表示该逻辑类型
//
// 所有已定义的逻辑类型都能映射到各方言（Guid/Decimal 在 SQLite/MySQL 中以文本传递），
// 未定义的类型值一律不支持。
func (d Dialect) SupportsParamType(t core.ParamType) bool {
	return t.Valid()
}

// SupportsStoredProcedures 是否支持存储过程调用
func (d Dialect) SupportsStoredProcedures() bool {
	return d.name != NameSQLite
}

// SupportsReadUncommitted 是否真正支持脏读
//
// Postgres 将 READ UNCOMMITTED 视为 READ COMMITTED；SQLite 仅在 shared-cache 模式下生效，
// 此处按普通连接处理。
func (d Dialect) SupportsReadUncommitted() bool {
	switch d.name {
	case NameMySQL, NameSQLServer:
		return true
	default:
		return false
	}
}

// IsRetryable 判断错误是否为可整体重试的事务冲突（序列化失败、死锁、忙）
//
// 与原生错误码相比，关键字匹配覆盖面更广但可能受驱动版本影响；
// 只用于调用方的重试策略，命令层本身从不重试。
//
// 支持的数据库及其错误特征：
//   - Postgres: "could not serialize access" (40001), "deadlock detected" (40P01)
//   - MySQL: "Deadlock found" (1213), "Lock wait timeout exceeded" (1205)
//   - SQLite: "database is locked" (SQLITE_BUSY)
//   - SQL Server: "deadlock victim" (1205)
func (d Dialect) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NamePostgres:
		return strings.Contains(msg, "could not serialize access") ||
			strings.Contains(msg, "deadlock detected")
	case NameMySQL:
		return strings.Contains(msg, "deadlock found") ||
			strings.Contains(msg, "lock wait timeout exceeded")
	case NameSQLite:
		return strings.Contains(msg, "database is locked") ||
			strings.Contains(msg, "sqlite_busy")
	case NameSQLServer:
		return strings.Contains(msg, "deadlock victim")
	default:
		return strings.Contains(msg, "deadlock") ||
			strings.Contains(msg, "could not serialize")
	}
}

// TxIsolation 将逻辑隔离级别翻译为传给 database/sql 的级别
//
// SQLite 的事务始终是可串行化的，驱动不接受其他级别，一律交给驱动默认值。
func (d Dialect) TxIsolation(level core.IsolationLevel) sql.IsolationLevel {
	if d.name == NameSQLite {
		return sql.LevelDefault
	}
	return level.SQL()
}

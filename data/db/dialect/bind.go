package dialect

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"commq/errors"
)

// NamedArg 已翻译为驱动值的命名参数，Name 可带或不带 @ 前缀
type NamedArg struct {
	Name  string
	Value any
}

// BindNamed 将 @Name 形式的命名参数绑定为方言可接受的形式
//
// 约定：
//   - SQLite / SQL Server / Unknown：文本不变，参数以 sql.Named 传递；
//   - Postgres：@Name 依次替换为 $1、$2...，同名参数复用同一序号；
//   - MySQL：@Name 替换为 ?，每次出现都追加一次参数值；
//   - 未声明的 @name（例如 MySQL 会话变量）与 @@系统变量 原样保留；
//   - 字符串字面量、带引号标识符、注释、Postgres 的 $tag$ 块内不做替换。
func (d Dialect) BindNamed(query string, args []NamedArg) (string, []any) {
	switch d.name {
	case NamePostgres, NameMySQL:
		return d.rewrite(query, args)
	default:
		return query, namedValues(args)
	}
}

func namedValues(args []NamedArg) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, sql.Named(trimParamPrefix(a.Name), a.Value))
	}
	return out
}

func (d Dialect) rewrite(query string, args []NamedArg) (string, []any) {
	if len(args) == 0 {
		return query, nil
	}

	index := make(map[string]int, len(args))
	for i, a := range args {
		index[strings.ToLower(trimParamPrefix(a.Name))] = i
	}
	ordinals := make(map[int]int, len(args))

	var (
		sb  strings.Builder
		out = make([]any, 0, len(args))
		n   = len(query)
	)
	sb.Grow(n + 8)

	for i := 0; i < n; {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || (ch == '`' && d.name == NameMySQL):
			end := d.skipQuoted(query, i)
			sb.WriteString(query[i:end])
			i = end
		case ch == '-' && i+1 < n && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = n
			} else {
				end += i
			}
			sb.WriteString(query[i:end])
			i = end
		case ch == '/' && i+1 < n && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = n
			} else {
				end += i + 4
			}
			sb.WriteString(query[i:end])
			i = end
		case ch == '$' && d.name == NamePostgres:
			end, ok := skipDollarQuoted(query, i)
			if !ok {
				end = i + 1
			}
			sb.WriteString(query[i:end])
			i = end
		case ch == '@':
			j := i + 1
			if j < n && query[j] == '@' {
				// @@系统变量
				j++
				for j < n && isIdentChar(query[j]) {
					j++
				}
				sb.WriteString(query[i:j])
				i = j
				continue
			}
			if j < n && isIdentStart(query[j]) {
				for j < n && isIdentChar(query[j]) {
					j++
				}
			}
			k, declared := index[strings.ToLower(query[i+1:j])]
			if j == i+1 || !declared {
				sb.WriteString(query[i:j])
				i = j
				continue
			}
			if d.name == NamePostgres {
				ord, seen := ordinals[k]
				if !seen {
					out = append(out, args[k].Value)
					ord = len(out)
					ordinals[k] = ord
				}
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(ord))
			} else {
				out = append(out, args[k].Value)
				sb.WriteByte('?')
			}
			i = j
		default:
			sb.WriteByte(ch)
			i++
		}
	}
	return sb.String(), out
}

// skipQuoted 返回引号块结束后的下标；成对引号视为转义，MySQL 额外支持反斜杠转义
func (d Dialect) skipQuoted(query string, start int) int {
	quote := query[start]
	n := len(query)
	for j := start + 1; j < n; j++ {
		c := query[j]
		if c == '\\' && d.name == NameMySQL && quote != '`' {
			j++
			continue
		}
		if c == quote {
			if j+1 < n && query[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return n
}

// skipDollarQuoted 识别 Postgres 的 $tag$...$tag$ 块；$1 之类的位置参数不是引号块
func skipDollarQuoted(query string, start int) (int, bool) {
	n := len(query)
	j := start + 1
	if j < n && query[j] >= '0' && query[j] <= '9' {
		return 0, false
	}
	for j < n && isIdentChar(query[j]) {
		j++
	}
	if j >= n || query[j] != '$' {
		return 0, false
	}
	delim := query[start : j+1]
	end := strings.Index(query[j+1:], delim)
	if end < 0 {
		return n, true
	}
	return j + 1 + end + len(delim), true
}

// StoredProcedure 生成存储过程调用文本与参数
//
// returnsRows 为 true 时按“返回结果集/标量”调用（Postgres 使用 SELECT * FROM fn(...)），
// 否则按过程调用（Postgres 使用 CALL）。参数按声明顺序传入。
//
//   - SQL Server：文本即过程名，参数以 sql.Named 传递（驱动走 RPC 调用）；
//   - Postgres：SELECT * FROM name($1, ...) / CALL name($1, ...)；
//   - MySQL：CALL name(?, ...)；
//   - SQLite：不支持存储过程；
//   - Unknown：CALL name(@p, ...)，参数以 sql.Named 传递。
func (d Dialect) StoredProcedure(name string, args []NamedArg, returnsRows bool) (string, []any, error) {
	if !d.SupportsStoredProcedures() {
		return "", nil, errors.Unsupported(fmt.Sprintf("dialect %q does not support stored procedures", d.name))
	}
	if !isSafeIdentifier(name) {
		return "", nil, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("unsafe stored procedure name %q", name))
	}

	switch d.name {
	case NameSQLServer:
		return name, namedValues(args), nil
	case NamePostgres, NameMySQL:
		placeholders := make([]string, len(args))
		values := make([]any, len(args))
		for i, a := range args {
			if d.name == NamePostgres {
				placeholders[i] = "$" + strconv.Itoa(i+1)
			} else {
				placeholders[i] = "?"
			}
			values[i] = a.Value
		}
		call := name + "(" + strings.Join(placeholders, ", ") + ")"
		if d.name == NamePostgres && returnsRows {
			return "SELECT * FROM " + call, values, nil
		}
		return "CALL " + call, values, nil
	default:
		placeholders := make([]string, len(args))
		for i, a := range args {
			placeholders[i] = "@" + trimParamPrefix(a.Name)
		}
		return "CALL " + name + "(" + strings.Join(placeholders, ", ") + ")", namedValues(args), nil
	}
}

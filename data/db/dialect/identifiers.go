package dialect

import "strings"

// isSafeIdentifier 判断存储过程名是否为“安全的数据库标识符”。
//
// 允许形式：
//   - 单一标识符：proc, read_users_1
//   - 带点的限定名：dbo.proc, schema.proc
//
// 按段校验：每段非空，首字符 [A-Za-z_]，后续字符 [A-Za-z0-9_]。
// 存储过程名会被拼进调用文本，因此必须拒绝空格、分号、括号等片段。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || !isIdentStart(part[0]) {
			return false
		}
		for i := 1; i < len(part); i++ {
			if !isIdentChar(part[i]) {
				return false
			}
		}
	}
	return true
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// trimParamPrefix 去掉参数名前缀 @ / : / $
func trimParamPrefix(name string) string {
	return strings.TrimLeft(name, "@:$")
}

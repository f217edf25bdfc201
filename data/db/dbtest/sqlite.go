package dbtest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "commq/data/db"
	"commq/data/db/basic"
)

// SQLite 在 t.TempDir() 中创建文件数据库，返回连接工厂；测试结束时关闭连接池
//
// params 追加到 DSN，例如 "_txlock=immediate"；busy_timeout 默认 5 秒。
func SQLite(t testing.TB, params ...string) *basic.DB {
	t.Helper()
	q := append([]string{"_pragma=busy_timeout(5000)"}, params...)
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?" + strings.Join(q, "&")
	db, err := basic.New(core.DBConfig{Driver: "sqlite", Database: dsn, MaxOpenConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

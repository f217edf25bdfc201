// Package basic 基于 database/sql 的连接工厂实现
//
// 连接池由 *sql.DB 负责；每次 Create 产出的连接在打开时从池中独占一个 *sql.Conn，
// 直到 Close 才归还。调用方必须先通过空导入注册驱动（例如 `_ "modernc.org/sqlite"`）。
package basic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	core "commq/data/db"
	"commq/data/db/dialect"
)

// DB 连接工厂，满足 core.IConnectionFactory
type DB struct {
	db     *sql.DB
	driver string
}

// New 根据 core.DBConfig 打开连接池并做可用性检查
func New(config core.DBConfig) (*DB, error) {
	var (
		driver = config.Driver
		dsn    = config.Database
	)
	if driver == "" {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// 连接池配置（可选）
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleTime) * time.Second)
	}

	timeout := 3 * time.Second
	if config.PingTimeout > 0 {
		timeout = time.Duration(config.PingTimeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, driver: driver}, nil
}

// NewFactory 包装已有连接池；driver 用于推断方言
func NewFactory(pool *sql.DB, driver string) *DB {
	return &DB{db: pool, driver: driver}
}

// Create 返回未打开的连接
func (d *DB) Create() (core.IConnection, error) {
	if d.db == nil {
		return nil, fmt.Errorf("basic: db is nil")
	}
	return &Conn{pool: d.db, driver: d.driver, dialect: dialect.New(d.driver)}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() *sql.DB                   { return d.db }

// GetDialectName 返回底层 driver 名
func (d *DB) GetDialectName() string {
	return d.driver
}

// ExecDDL 辅助：在连接池上直接执行 DDL（用于测试与示例）
func (d *DB) ExecDDL(ctx context.Context, stmts ...string) error {
	if d.db == nil {
		return fmt.Errorf("basic: db is nil")
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var _ core.IConnectionFactory = (*DB)(nil)

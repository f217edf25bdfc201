package command

import (
	"context"

	"commq/data/db"
	"commq/data/db/dispatch"
	"commq/logging"
)

// Option 工厂选项
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger 指定日志实现，默认使用全局 Logger
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReaderFactory 为每个 Reader 打开一个独占连接
type ReaderFactory struct {
	connections db.IConnectionFactory
	logger      logging.Logger
}

// NewReaderFactory 创建 Reader 工厂
func NewReaderFactory(connections db.IConnectionFactory, opts ...Option) *ReaderFactory {
	o := buildOptions(opts)
	return &ReaderFactory{connections: connections, logger: o.logger.WithFields(logging.String("component", "reader"))}
}

// Create 打开连接并返回独立 Reader；调用方负责 Close
func (f *ReaderFactory) Create(ctx context.Context) (*Reader, error) {
	src, err := openSource(ctx, f.connections, f.logger)
	if err != nil {
		return nil, err
	}
	return NewReader(src), nil
}

// WriterFactory 为每个 Writer 打开一个独占连接（不带事务，语句自动提交）
type WriterFactory struct {
	connections db.IConnectionFactory
	logger      logging.Logger
}

// NewWriterFactory 创建 Writer 工厂
func NewWriterFactory(connections db.IConnectionFactory, opts ...Option) *WriterFactory {
	o := buildOptions(opts)
	return &WriterFactory{connections: connections, logger: o.logger.WithFields(logging.String("component", "writer"))}
}

// Create 打开连接并返回独立 Writer；调用方负责 Close
func (f *WriterFactory) Create(ctx context.Context) (*Writer, error) {
	src, err := openSource(ctx, f.connections, f.logger)
	if err != nil {
		return nil, err
	}
	return NewWriter(src), nil
}

func openSource(ctx context.Context, connections db.IConnectionFactory, logger logging.Logger) (*ConnectionSource, error) {
	conn, err := dispatch.OpenAndGet(ctx, connections)
	if err != nil {
		logger.Warn(ctx, "open connection failed", logging.Error(err))
		return nil, err
	}
	src := NewConnectionSource(conn)
	logger.Debug(ctx, "connection opened", logging.String("dialect", string(src.dialect.Name())))
	return src, nil
}

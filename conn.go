package ckorm

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
)

// ConnProvider hands out dedicated connections. *sql.DB satisfies it.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// DBProvider adapts a *sql.DB pool to ConnProvider
type DBProvider struct {
	*sql.DB
}

// connManager 持有一个懒加载的连接，DB 实例之间不共享
// 获取连接时加锁（双重检查），执行语句时不加锁
type connManager struct {
	name     string
	provider ConnProvider
	stmts    *stmtCache

	mu     sync.Mutex
	held   atomic.Pointer[sql.Conn]
	closed atomic.Bool
}

func newConnManager(name string, provider ConnProvider, stmts *stmtCache) *connManager {
	return &connManager{name: name, provider: provider, stmts: stmts}
}

// acquire 返回当前持有的连接，没有则向 provider 申请一个新的
func (m *connManager) acquire(ctx context.Context) (*sql.Conn, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	// 1. 第一层检查：无锁快速返回
	if c := m.held.Load(); c != nil {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 2. 第二层检查：双重检查锁定
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if c := m.held.Load(); c != nil {
		return c, nil
	}

	c, err := m.provider.Conn(ctx)
	if err != nil {
		LogError("acquire connection failed", map[string]interface{}{
			"db":    m.name,
			"error": fixStringEncoding(err.Error()),
		})
		return nil, &ConnectionError{DB: m.name, Err: err}
	}
	m.held.Store(c)
	LogDebug("connection acquired", map[string]interface{}{"db": m.name})
	return c, nil
}

// invalidate 丢弃失效的连接，下次 acquire 会重新申请
// 只有 c 仍是当前持有的连接时才生效，避免并发时误关新连接
func (m *connManager) invalidate(c *sql.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held.CompareAndSwap(c, nil) {
		return
	}
	// 语句绑定在旧连接上，先关闭语句再关闭连接
	m.stmts.purge()
	_ = c.Close()
	LogWarn("connection invalidated", map[string]interface{}{"db": m.name})
}

// withConn 获取连接并执行 fn，fn 返回连接失效错误时丢弃该连接
func (m *connManager) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	c, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(c)
	if isBadConnError(err) {
		m.invalidate(c)
	}
	return err
}

// close 释放持有的连接，之后的操作返回 ErrClosed
func (m *connManager) close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stmts.purge()
	if c := m.held.Swap(nil); c != nil {
		return c.Close()
	}
	return nil
}

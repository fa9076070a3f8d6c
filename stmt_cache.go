package ckorm

import (
	"context"
	"database/sql"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// stmtCache 预编译语句缓存，语句绑定在当前持有的连接上
// 被淘汰或清空时关闭语句；连接重建时整体清空
type stmtCache struct {
	cache *lru.Cache[string, *sql.Stmt]

	// 统计指标
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// newStmtCache 创建语句缓存，size <= 0 表示不缓存
func newStmtCache(size int) *stmtCache {
	c := &stmtCache{}
	if size <= 0 {
		return c
	}
	cache, err := lru.NewWithEvict(size, func(_ string, stmt *sql.Stmt) {
		c.evictions.Add(1)
		_ = stmt.Close()
	})
	if err != nil {
		LogWarn("statement cache disabled", map[string]interface{}{"error": err.Error()})
		return c
	}
	c.cache = cache
	return c
}

func (c *stmtCache) enabled() bool {
	return c != nil && c.cache != nil
}

// prepare 返回 conn 上 query 的预编译语句，命中缓存时直接复用
// 不缓存时调用方负责关闭返回的语句（owned=true）
func (c *stmtCache) prepare(ctx context.Context, conn *sql.Conn, query string) (stmt *sql.Stmt, owned bool, err error) {
	if !c.enabled() {
		stmt, err = conn.PrepareContext(ctx, query)
		return stmt, true, err
	}
	if stmt, ok := c.cache.Get(query); ok {
		c.hits.Add(1)
		return stmt, false, nil
	}
	c.misses.Add(1)

	stmt, err = conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, false, err
	}
	// 并发情况下另一个调用可能已经放入相同语句，保留已有的
	if prev, ok, _ := c.cache.PeekOrAdd(query, stmt); ok {
		_ = stmt.Close()
		return prev, false, nil
	}
	return stmt, false, nil
}

// remove 删除并关闭指定语句
func (c *stmtCache) remove(query string) {
	if c.enabled() {
		c.cache.Remove(query)
	}
}

// purge 关闭并清空所有语句
func (c *stmtCache) purge() {
	if c.enabled() {
		c.cache.Purge()
	}
}

// Stats 返回缓存统计信息
func (c *stmtCache) Stats() map[string]interface{} {
	if !c.enabled() {
		return map[string]interface{}{"enabled": false}
	}
	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return map[string]interface{}{
		"enabled":   true,
		"size":      c.cache.Len(),
		"hits":      hits,
		"misses":    misses,
		"hit_rate":  hitRate,
		"evictions": c.evictions.Load(),
	}
}

package ckorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtCache_HitsAndEvictions(t *testing.T) {
	db, _ := openTestDB(t, WithStmtCacheSize(2))

	for i := 0; i < 3; i++ {
		_, err := SelectScalar[int64](ctx, db, "SELECT 1")
		require.NoError(t, err)
	}
	stats := db.StmtCacheStats()
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, int64(2), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])

	for _, q := range []string{"SELECT 2", "SELECT 3"} {
		_, err := SelectScalar[int64](ctx, db, q)
		require.NoError(t, err)
	}
	stats = db.StmtCacheStats()
	assert.Equal(t, int64(1), stats["evictions"])
	assert.Equal(t, 2, stats["size"])

	// 被淘汰的语句重新预编译
	n, err := SelectScalar[int64](ctx, db, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.V)
	assert.Equal(t, int64(4), db.StmtCacheStats()["misses"])
}

func TestStmtCache_Disabled(t *testing.T) {
	db, _ := openTestDB(t, WithStmtCacheSize(-1))
	for i := 0; i < 2; i++ {
		n, err := SelectScalar[int64](ctx, db, "SELECT 7")
		require.NoError(t, err)
		assert.Equal(t, int64(7), n.V)
	}
	assert.Equal(t, map[string]interface{}{"enabled": false}, db.StmtCacheStats())
}

func TestStmtCache_PurgedOnInvalidate(t *testing.T) {
	db, _ := openTestDB(t)
	_, err := SelectScalar[int64](ctx, db, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, db.StmtCacheStats()["size"])

	db.conn.invalidate(db.conn.held.Load())
	assert.Equal(t, 0, db.StmtCacheStats()["size"])

	_, err = SelectScalar[int64](ctx, db, "SELECT 1")
	require.NoError(t, err)
}

package ckorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddLimitOne(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT * FROM t", "SELECT * FROM t LIMIT 1"},
		{"SELECT * FROM t;", "SELECT * FROM t LIMIT 1"},
		{"SELECT * FROM t LIMIT 5", "SELECT * FROM t LIMIT 5"},
		{"select * from t limit 2, 3", "select * from t limit 2, 3"},
		{"SELECT 'LIMIT' FROM t", "SELECT 'LIMIT' FROM t LIMIT 1"},
		{"SELECT limited FROM t", "SELECT limited FROM t LIMIT 1"},
		{"SELECT * FROM events WHERE id = ? SETTINGS max_threads = 1",
			"SELECT * FROM events WHERE id = ? LIMIT 1 SETTINGS max_threads = 1"},
		{"SELECT * FROM events FORMAT JSONEachRow",
			"SELECT * FROM events LIMIT 1 FORMAT JSONEachRow"},
		{"SELECT * FROM events SETTINGS max_threads = 1 FORMAT JSONEachRow;",
			"SELECT * FROM events LIMIT 1 SETTINGS max_threads = 1 FORMAT JSONEachRow"},
		{"SELECT * FROM events WHERE note = 'FORMAT x'", "SELECT * FROM events WHERE note = 'FORMAT x' LIMIT 1"},
		{"SELECT * FROM t WHERE a IN (SELECT b FROM u LIMIT 3)", "SELECT * FROM t WHERE a IN (SELECT b FROM u LIMIT 3) LIMIT 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, addLimitOne(tt.in), tt.in)
	}
}

func TestStripOrderBy(t *testing.T) {
	assert.Equal(t, "WHERE a = ?", stripOrderBy("WHERE a = ? ORDER BY id DESC"))
	assert.Equal(t, "", stripOrderBy("ORDER BY id"))
	assert.Equal(t, "WHERE note = 'ORDER BY x'", stripOrderBy("WHERE note = 'ORDER BY x'"))
	assert.Equal(t, "WHERE a IN (SELECT b FROM u ORDER BY c LIMIT 1)",
		stripOrderBy("WHERE a IN (SELECT b FROM u ORDER BY c LIMIT 1) ORDER BY a"))
	assert.Equal(t, "WHERE a IN (SELECT b FROM u ORDER BY c LIMIT 1)",
		stripOrderBy("WHERE a IN (SELECT b FROM u ORDER BY c LIMIT 1)"))
}

func TestFindKeywordIgnoringQuotes(t *testing.T) {
	sql := "SELECT `from`, \"FROM\" FROM t /* FROM */ WHERE x = 'from'"
	assert.Equal(t, 22, findKeywordIgnoringQuotes(sql, "from", 1))
	assert.Equal(t, 22, findKeywordIgnoringQuotes(sql, "from", -1))
	assert.Equal(t, -1, findKeywordIgnoringQuotes(sql, "GROUP BY", 1))
	assert.Equal(t, -1, findKeywordIgnoringQuotes("", "FROM", 1))
	assert.Equal(t, -1, findKeywordIgnoringQuotes("SELECT 'it''s from' x", "FROM", 1))
	// 括号内的关键字不算
	assert.Equal(t, -1, findKeywordIgnoringQuotes("WHERE a IN (SELECT b FROM u)", "FROM", 1))
	assert.Equal(t, -1, findKeywordIgnoringQuotes("WHERE a IN (SELECT ')' FROM u)", "FROM", 1))
}

func TestJoinFragment(t *testing.T) {
	assert.Equal(t, "SELECT 1", joinFragment("SELECT 1", "  "))
	assert.Equal(t, "SELECT 1 WHERE a", joinFragment("SELECT 1", "WHERE a"))
	assert.Equal(t, "SELECT 1 WHERE a", joinFragment("SELECT 1", " WHERE a"))
}

func TestToJsonAndIsNil(t *testing.T) {
	var p *Page[int]
	assert.Equal(t, "{}", ToJson(p))
	assert.Equal(t, "{}", ToJson(nil))
	assert.Equal(t, `{"a":"<b>"}`, ToJson(map[string]string{"a": "<b>"}))
	assert.Equal(t, "{}", ToJson(make(chan int)))

	assert.True(t, isNil((*int)(nil)))
	assert.True(t, isNil([]int(nil)))
	assert.False(t, isNil(0))
	assert.False(t, isNil(""))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, ValidateTableName("events"))
	assert.NoError(t, ValidateTableName("analytics.events_2024"))
	assert.Error(t, ValidateTableName(""))
	assert.Error(t, ValidateTableName("1events"))
	assert.Error(t, ValidateTableName("a.b.c"))
	assert.Error(t, ValidateTableName("events; DROP TABLE x"))

	assert.NoError(t, validateColumnName("price_usd"))
	assert.Error(t, validateColumnName("db.col"))
	assert.Error(t, validateColumnName("bad-name"))
}

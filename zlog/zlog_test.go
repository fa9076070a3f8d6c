package zlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzguang83325/ckorm"
)

func TestAdapter_JSON(t *testing.T) {
	var buf bytes.Buffer
	a := NewConsole(&buf, ckorm.LevelDebug, false)
	a.Log(ckorm.LevelError, "SQL failed log", map[string]interface{}{
		"rows":  3,
		"sql":   "SELECT 1",
		"db":    "main",
		"error": errors.New("boom"),
		"args":  []interface{}{1, "a"},
	})

	line := buf.String()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "SQL failed log", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "main", entry["db"])
	assert.Equal(t, []interface{}{float64(1), "a"}, entry["args"])

	// db 在 sql 前，sql 在 rows 前
	assert.Less(t, strings.Index(line, `"db"`), strings.Index(line, `"sql"`))
	assert.Less(t, strings.Index(line, `"sql"`), strings.Index(line, `"rows"`))
}

func TestAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	a := NewConsole(&buf, ckorm.LevelWarn, false)
	a.Log(ckorm.LevelInfo, "hidden", nil)
	a.Log(ckorm.LevelDebug, "hidden", nil)
	assert.Empty(t, buf.String())

	a.Log(ckorm.LevelWarn, "shown", nil)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestAdapter_AsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	ckorm.SetLogger(New(zerolog.New(&buf)))
	defer ckorm.SetLogger(nil)

	ckorm.LogWarn("mapped column not in table, skipped", map[string]interface{}{"table": "events"})
	assert.Contains(t, buf.String(), `"table":"events"`)
	assert.Equal(t, zerolog.InfoLevel, NewConsole(nil, ckorm.LevelInfo, true).Logger().GetLevel())
}

package ckorm

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

type logEntry struct {
	level  LogLevel
	msg    string
	fields map[string]interface{}
}

// recordingLogger 收集日志，测试结束时恢复默认 Logger
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) Log(level LogLevel, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) find(msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func captureLogs(t *testing.T, debugMode bool) *recordingLogger {
	t.Helper()
	rec := &recordingLogger{}
	prevDebug := IsDebugEnabled()
	SetLogger(rec)
	debug.Store(debugMode)
	t.Cleanup(func() {
		SetLogger(nil)
		debug.Store(prevDebug)
	})
	return rec
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel(" DEBUG "))
	assert.Equal(t, LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LevelError, ParseLogLevel("error"))
	assert.Equal(t, LevelInfo, ParseLogLevel("verbose"))
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestOrderedFields(t *testing.T) {
	fields := map[string]interface{}{
		"rows": 1, "sql": "x", "db": "d", "alpha": 2, "error": "e", "batch_id": "b",
	}
	assert.Equal(t, []string{"db", "batch_id", "sql", "error", "alpha", "rows"}, OrderedFields(fields))
	assert.Empty(t, OrderedFields(nil))
}

func TestLogSQL_DebugOnly(t *testing.T) {
	rec := captureLogs(t, false)
	LogSQL("main", "SELECT\n\t1", nil, time.Millisecond)
	LogDebug("hidden")
	assert.Empty(t, rec.entries)

	debug.Store(true)
	LogSQL("main", "SELECT\n\t *  FROM t", []interface{}{1}, time.Millisecond)
	entries := rec.find("SQL log")
	require.Len(t, entries, 1)
	assert.Equal(t, LevelDebug, entries[0].level)
	assert.Equal(t, "SELECT * FROM t", entries[0].fields["sql"])
	assert.Equal(t, "main", entries[0].fields["db"])
	assert.Equal(t, []interface{}{1}, entries[0].fields["args"])
}

func TestLogSQLError_AlwaysLogged(t *testing.T) {
	rec := captureLogs(t, false)
	LogSQLError("main", "SELECT 1", nil, time.Millisecond, errors.New("boom"))
	entries := rec.find("SQL failed log")
	require.Len(t, entries, 1)
	assert.Equal(t, LevelError, entries[0].level)
	assert.Equal(t, "boom", entries[0].fields["error"])
	assert.Contains(t, entries[0].fields["caller"], "TestLogSQLError_AlwaysLogged")
	assert.NotContains(t, entries[0].fields, "args")
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.Log(LevelWarn, "hello", map[string]interface{}{"z": 1, "db": "main", "args": []interface{}{"a", 2}})

	line := buf.String()
	assert.Contains(t, line, "level=WARN")
	assert.Contains(t, line, `msg=hello`)
	assert.Less(t, strings.Index(line, "db=main"), strings.Index(line, "z=1"))
	assert.Contains(t, line, `args="['a', 2]"`)
}

func TestFixStringEncoding(t *testing.T) {
	assert.Equal(t, "plain 文本", fixStringEncoding("plain 文本"))

	gbk, err := simplifiedchinese.GBK.NewEncoder().String("表不存在")
	require.NoError(t, err)
	assert.Equal(t, "表不存在", fixStringEncoding(gbk))
}

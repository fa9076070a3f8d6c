package ckorm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps "debug", "info", "warn" and "error" to a LogLevel. Unknown names map to LevelInfo.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger interface defines simple behavior for logging with structured fields
type Logger interface {
	// Log records a log entry. fields is optional (can be nil).
	Log(level LogLevel, msg string, fields map[string]interface{})
}

// priorityKeys are printed first, in this order
var priorityKeys = []string{"db", "table", "batch_id", "duration", "sql", "args", "error"}

// OrderedFields returns the keys of fields with priorityKeys first and the rest sorted.
// Adapters use it to keep log lines stable.
func OrderedFields(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(priorityKeys))
	for _, k := range priorityKeys {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(fields)-len(keys))
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// slogLogger is an adapter for log/slog
type slogLogger struct {
	logger *slog.Logger
}

func (s *slogLogger) Log(level LogLevel, msg string, fields map[string]interface{}) {
	l := s.logger
	if l == nil {
		l = slog.Default()
	}

	var args []interface{}
	if len(fields) > 0 {
		args = make([]interface{}, 0, len(fields)*2)
		for _, k := range OrderedFields(fields) {
			v := fields[k]
			if k == "args" {
				if slice, ok := v.([]interface{}); ok {
					v = formatValue(slice)
				}
			}
			args = append(args, k, v)
		}
	}

	switch level {
	case LevelDebug:
		l.Debug(msg, args...)
	case LevelInfo:
		l.Info(msg, args...)
	case LevelWarn:
		l.Warn(msg, args...)
	case LevelError:
		l.Error(msg, args...)
	}
}

// NewSlogLogger creates a Logger that uses log/slog
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

// formatValue formats a log field value
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("'%s'", val)
	case []interface{}:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				strs = append(strs, fmt.Sprintf("'%s'", s))
			} else {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
		}
		return fmt.Sprintf("[%s]", strings.Join(strs, ", "))
	default:
		return fmt.Sprintf("%v", val)
	}
}

type loggerHolder struct {
	Logger
}

var (
	currentLogger atomic.Pointer[loggerHolder]
	debug         atomic.Bool
	re            = regexp.MustCompile(`\s+`)
)

func init() {
	currentLogger.Store(&loggerHolder{&slogLogger{}})
}

func logger() Logger {
	return currentLogger.Load().Logger
}

// 驱动返回的错误信息有时不是 UTF-8（服务端 locale 不同），按常见编码依次尝试解码
var errorTextEncodings = []encoding.Encoding{
	simplifiedchinese.GBK,
	simplifiedchinese.GB18030,
	traditionalchinese.Big5,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
}

// fixStringEncoding returns text unchanged when it is valid UTF-8, otherwise the first
// clean decoding among errorTextEncodings, otherwise text itself.
func fixStringEncoding(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	data := []byte(text)
	for _, enc := range errorTextEncodings {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		if strings.ContainsRune(string(decoded), utf8.RuneError) {
			continue
		}
		return string(decoded)
	}
	return text
}

// SetLogger sets the global logger
func SetLogger(l Logger) {
	if l == nil {
		l = &slogLogger{}
	}
	currentLogger.Store(&loggerHolder{l})
}

// SetDebugMode enables or disables debug mode
func SetDebugMode(enabled bool) {
	debug.Store(enabled)
	if enabled {
		// 如果全局 slog 还不支持 Debug 级别，则强制设置一个输出到标准输出的 Debug 级别 slog
		if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	}
}

// IsDebugEnabled returns true if debug mode is enabled
func IsDebugEnabled() bool {
	return debug.Load()
}

// cleanSQL removes newlines, tabs and multiple spaces from SQL string
func cleanSQL(sql string) string {
	return strings.TrimSpace(re.ReplaceAllString(sql, " "))
}

// LogSQL logs SQL statement, parameters and execution time in debug mode
func LogSQL(dbName string, sql string, args []interface{}, duration time.Duration) {
	if !debug.Load() {
		return
	}
	fields := map[string]interface{}{
		"db":       dbName,
		"sql":      cleanSQL(sql),
		"duration": duration.String(),
	}
	if len(args) > 0 {
		fields["args"] = args
	}
	logger().Log(LevelDebug, "SQL log", fields)
}

// LogSQLError logs a failed statement. It is always emitted, regardless of debug mode.
func LogSQLError(dbName string, sql string, args []interface{}, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"db":       dbName,
		"sql":      cleanSQL(sql),
		"duration": duration.String(),
		"error":    fixStringEncoding(err.Error()),
		"caller":   getCaller(),
	}
	if len(args) > 0 {
		fields["args"] = args
	}
	logger().Log(LevelError, "SQL failed log", fields)
}

func getCaller() string {
	callers := make([]uintptr, 10)
	count := runtime.Callers(3, callers)
	frames := runtime.CallersFrames(callers[:count])
	var callerStack []string
	for len(callerStack) < 5 {
		frame, more := frames.Next()
		funcName := frame.Function
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}
		fileName := frame.File
		if idx := strings.LastIndexAny(fileName, `/\`); idx >= 0 {
			fileName = fileName[idx+1:]
		}
		callerStack = append(callerStack, fmt.Sprintf("%s(%s:%d)", funcName, fileName, frame.Line))
		if !more {
			break
		}
	}
	return "[" + strings.Join(callerStack, " → ") + "]"
}

// LogInfo logs info message
func LogInfo(msg string, fields ...map[string]interface{}) {
	logger().Log(LevelInfo, msg, firstFields(fields))
}

// LogWarn logs warning message
func LogWarn(msg string, fields ...map[string]interface{}) {
	logger().Log(LevelWarn, msg, firstFields(fields))
}

// LogError logs error message
func LogError(msg string, fields ...map[string]interface{}) {
	logger().Log(LevelError, msg, firstFields(fields))
}

// LogDebug logs debug message
func LogDebug(msg string, fields ...map[string]interface{}) {
	if debug.Load() {
		logger().Log(LevelDebug, msg, firstFields(fields))
	}
}

func firstFields(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if s, ok := logger().(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

// InitLogger initializes the global slog logger with a specific level to console
func InitLogger(level string) {
	slogLevel := slog.LevelInfo
	switch ParseLogLevel(level) {
	case LevelDebug:
		slogLevel = slog.LevelDebug
		SetDebugMode(true)
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	})
	slog.SetDefault(slog.New(handler))

	SetLogger(&slogLogger{logger: nil})
}

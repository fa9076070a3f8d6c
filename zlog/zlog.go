// Package zlog adapts github.com/rs/zerolog to the ckorm.Logger interface.
package zlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/zzguang83325/ckorm"
)

// Adapter 实现 ckorm.Logger 接口，把日志写入 zerolog
type Adapter struct {
	logger zerolog.Logger
}

// New wraps an existing zerolog.Logger
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// NewConsole 创建输出到 w 的 Logger，console 为 true 时使用人性化格式，否则输出 JSON
func NewConsole(w io.Writer, level ckorm.LogLevel, console bool) *Adapter {
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return New(logger)
}

// Logger returns the wrapped zerolog.Logger
func (a *Adapter) Logger() zerolog.Logger {
	return a.logger
}

func (a *Adapter) Log(level ckorm.LogLevel, msg string, fields map[string]interface{}) {
	var event *zerolog.Event
	switch level {
	case ckorm.LevelDebug:
		event = a.logger.Debug()
	case ckorm.LevelInfo:
		event = a.logger.Info()
	case ckorm.LevelWarn:
		event = a.logger.Warn()
	case ckorm.LevelError:
		event = a.logger.Error()
	default:
		event = a.logger.Log()
	}
	// 级别被过滤时 event 为 nil
	if event == nil {
		return
	}

	// 按固定顺序输出字段，db/sql/args 在前
	for _, k := range ckorm.OrderedFields(fields) {
		switch v := fields[k].(type) {
		case error:
			event = event.AnErr(k, v)
		case string:
			event = event.Str(k, v)
		default:
			event = event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func toZerologLevel(level ckorm.LogLevel) zerolog.Level {
	switch level {
	case ckorm.LevelDebug:
		return zerolog.DebugLevel
	case ckorm.LevelWarn:
		return zerolog.WarnLevel
	case ckorm.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

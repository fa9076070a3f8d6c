// Package sqlite 提供SQLite数据库驱动支持
// 使用 github.com/mattn/go-sqlite3 驱动，用于测试和本地运行
package sqlite

import (
	"github.com/mattn/go-sqlite3"
	"github.com/zzguang83325/ckorm"
)

// 导入此包会自动注册SQLite驱动
// 使用方式：
// import _ "github.com/zzguang83325/ckorm/drivers/sqlite"

// Config 返回 SQLite 文件数据库的默认配置
// 每个连接都会打开同一个文件；":memory:" 每个连接是独立的数据库，不要用于多连接场景
func Config(path string) *ckorm.Config {
	cfg := ckorm.NewConfig(ckorm.SQLite3, path)
	cfg.MaxOpen = 4
	cfg.MaxIdle = 2
	return cfg
}

// Version returns the linked SQLite library version
func Version() string {
	v, _, _ := sqlite3.Version()
	return v
}

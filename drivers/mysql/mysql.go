// Package mysql 提供MySQL协议驱动支持
// 使用 github.com/go-sql-driver/mysql 驱动，ClickHouse 在 9004 端口兼容 MySQL 协议
package mysql

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/zzguang83325/ckorm"
)

// 导入此包会自动注册MySQL驱动
// 使用方式：
// import _ "github.com/zzguang83325/ckorm/drivers/mysql"

// Config 解析 DSN 并打开 parseTime，DateTime 列才能扫描成 time.Time
func Config(dsn string) (*ckorm.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid dsn: %w", err)
	}
	cfg.ParseTime = true
	return ckorm.NewConfig(ckorm.MySQL, cfg.FormatDSN()), nil
}

package ckorm

import (
	"fmt"
	"time"
)

// DriverType represents the database/sql driver name
type DriverType string

const (
	// ClickHouse native protocol (github.com/ClickHouse/clickhouse-go/v2)
	ClickHouse DriverType = "clickhouse"
	// MySQL wire protocol, also served by ClickHouse on port 9004
	MySQL DriverType = "mysql"
	// SQLite3 embedded database, used for tests and local runs
	SQLite3 DriverType = "sqlite3"
)

// SupportedDrivers returns a list of all supported database drivers
func SupportedDrivers() []DriverType {
	return []DriverType{ClickHouse, MySQL, SQLite3}
}

// IsValidDriver checks if the given driver is supported
func IsValidDriver(driver DriverType) bool {
	for _, d := range SupportedDrivers() {
		if d == driver {
			return true
		}
	}
	return false
}

// Config holds the database configuration
type Config struct {
	Name            string        // Name used in log fields
	Driver          DriverType    // Database driver type (clickhouse, mysql, sqlite3)
	DSN             string        // Data source name (connection string)
	MaxOpen         int           // Maximum number of open connections
	MaxIdle         int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Default query timeout (0 means no timeout)
	BatchSize       int           // 批量插入每次 flush 的行数（默认 2000）
	StmtCacheSize   int           // 每个连接缓存的预编译语句数（0 表示默认值，负数表示禁用）
	HealthCheck     time.Duration // 定时 ping 持有的连接，0 表示不检查
}

// createDefaultConfig creates a Config with default settings
func createDefaultConfig(driver DriverType, dsn string, maxOpen int) *Config {
	return &Config{
		Name:            DefaultDBName,
		Driver:          driver,
		DSN:             dsn,
		MaxOpen:         maxOpen,
		MaxIdle:         maxOpen / 2,
		ConnMaxLifetime: time.Hour,
		BatchSize:       DefaultBatchSize,
		StmtCacheSize:   DefaultStmtCacheSize,
	}
}

// NewConfig returns a Config with default settings for the given driver and DSN
func NewConfig(driver DriverType, dsn string) *Config {
	return createDefaultConfig(driver, dsn, 10)
}

// withDefaults 返回补齐默认值后的副本，不修改调用方的 Config
func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Name == "" {
		out.Name = DefaultDBName
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.StmtCacheSize == 0 {
		out.StmtCacheSize = DefaultStmtCacheSize
	}
	return &out
}

// Validate checks the fields Open needs
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("ckorm: config is nil")
	}
	if !IsValidDriver(c.Driver) {
		return fmt.Errorf("ckorm: unsupported driver %q (supported: %v)", c.Driver, SupportedDrivers())
	}
	if c.DSN == "" {
		return fmt.Errorf("ckorm: dsn is empty")
	}
	return nil
}

// Option customizes the Config of a DB or DAO
type Option func(*Config)

// WithBatchSize sets the number of rows buffered before each batch flush
func WithBatchSize(n int) Option {
	return func(c *Config) { c.BatchSize = n }
}

// WithQueryTimeout bounds every statement with a deadline
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Config) { c.QueryTimeout = d }
}

// WithStmtCacheSize sets the prepared statement cache size, negative disables it
func WithStmtCacheSize(n int) Option {
	return func(c *Config) { c.StmtCacheSize = n }
}

// WithName sets the name used in log fields
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithHealthCheck pings the held connection every interval and drops it when
// the ping fails. Zero disables the check.
func WithHealthCheck(interval time.Duration) Option {
	return func(c *Config) { c.HealthCheck = interval }
}

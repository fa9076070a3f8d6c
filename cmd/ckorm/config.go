// Config loading for the ckorm CLI.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zzguang83325/ckorm"
)

const (
	envPrefix = "CKORM"

	cfgKeyName            = "name"
	cfgKeyDriver          = "driver"
	cfgKeyDSN             = "dsn"
	cfgKeyMaxOpen         = "max_open"
	cfgKeyMaxIdle         = "max_idle"
	cfgKeyConnMaxLifetime = "conn_max_lifetime"
	cfgKeyQueryTimeout    = "query_timeout"
	cfgKeyBatchSize       = "batch_size"
	cfgKeyStmtCacheSize   = "stmt_cache_size"
	cfgKeyHealthCheck     = "health_check"
	cfgKeyLogLevel        = "log_level"
)

// flag name -> config key
var flagKeys = map[string]string{
	"driver":    cfgKeyDriver,
	"dsn":       cfgKeyDSN,
	"log-level": cfgKeyLogLevel,
}

// loadConfig merges defaults, the YAML file at path (optional), CKORM_* environment
// variables and the changed flags, in increasing precedence.
func loadConfig(path string, flags *pflag.FlagSet) (*ckorm.Config, string, error) {
	v := viper.New()
	v.SetDefault(cfgKeyName, ckorm.DefaultDBName)
	v.SetDefault(cfgKeyDriver, string(ckorm.ClickHouse))
	v.SetDefault(cfgKeyMaxOpen, 4)
	v.SetDefault(cfgKeyMaxIdle, 2)
	v.SetDefault(cfgKeyConnMaxLifetime, "1h")
	v.SetDefault(cfgKeyQueryTimeout, "0s")
	v.SetDefault(cfgKeyBatchSize, ckorm.DefaultBatchSize)
	v.SetDefault(cfgKeyStmtCacheSize, ckorm.DefaultStmtCacheSize)
	v.SetDefault(cfgKeyHealthCheck, "0s")
	v.SetDefault(cfgKeyLogLevel, "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &ckorm.Config{
		Name:            v.GetString(cfgKeyName),
		Driver:          ckorm.DriverType(strings.ToLower(v.GetString(cfgKeyDriver))),
		DSN:             v.GetString(cfgKeyDSN),
		MaxOpen:         v.GetInt(cfgKeyMaxOpen),
		MaxIdle:         v.GetInt(cfgKeyMaxIdle),
		ConnMaxLifetime: v.GetDuration(cfgKeyConnMaxLifetime),
		QueryTimeout:    v.GetDuration(cfgKeyQueryTimeout),
		BatchSize:       v.GetInt(cfgKeyBatchSize),
		StmtCacheSize:   v.GetInt(cfgKeyStmtCacheSize),
		HealthCheck:     v.GetDuration(cfgKeyHealthCheck),
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, v.GetString(cfgKeyLogLevel), nil
}

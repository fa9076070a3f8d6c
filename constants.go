package ckorm

// 批量操作相关常量
const (
	// DefaultBatchSize 批量插入每次提交的行数
	// 客户端最多缓存这么多行，满了就 flush 一次
	DefaultBatchSize = 2000
)

// 缓存相关常量
const (
	// DefaultStmtCacheSize 每个连接缓存的预编译语句数量上限
	DefaultStmtCacheSize = 256
)

// 分页相关常量
const (
	// DefaultPage 默认页码
	DefaultPage = 1

	// DefaultPageSize 默认每页大小
	DefaultPageSize = 10

	// MaxPageSize 最大每页大小（防止一次查询过多数据）
	MaxPageSize = 10000
)

// DefaultDBName is the name used in log fields when Config.Name is empty.
const DefaultDBName = "default"

package ckorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DB owns one lazily acquired connection plus its statement cache.
// Every DAO built from the same DB shares that connection.
type DB struct {
	config *Config
	conn   *connManager
	stmts   *stmtCache
	monitor *connectionMonitor
	pool    *sql.DB // opened by Open, closed together with the DB
}

// NewDB wraps a connection provider. A nil config uses the defaults.
func NewDB(provider ConnProvider, config *Config, opts ...Option) *DB {
	cfg := config.withDefaults()
	for _, opt := range opts {
		opt(cfg)
	}
	stmts := newStmtCache(cfg.StmtCacheSize)
	db := &DB{
		config: cfg,
		conn:   newConnManager(cfg.Name, provider, stmts),
		stmts:  stmts,
	}
	if cfg.HealthCheck > 0 {
		db.monitor = newConnectionMonitor(db.conn, cfg.HealthCheck)
		db.monitor.start()
	}
	return db
}

// Open opens a pool for config.Driver (the driver package must be imported,
// e.g. github.com/zzguang83325/ckorm/drivers/clickhouse), verifies it with a ping
// and returns a DB using it as provider.
func Open(config *Config, opts ...Option) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	pool, err := sql.Open(string(config.Driver), config.DSN)
	if err != nil {
		return nil, &ConnectionError{DB: config.Name, Err: err}
	}

	db := OpenDB(pool, config, opts...)
	ctx, cancel := db.getContext(context.Background())
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		LogError("ping failed", map[string]interface{}{"db": db.config.Name, "error": fixStringEncoding(err.Error())})
		return nil, &ConnectionError{DB: db.config.Name, Err: err}
	}
	LogInfo("database opened", map[string]interface{}{"db": db.config.Name, "driver": string(config.Driver)})
	return db, nil
}

// OpenDB wraps an already opened pool, applies the pool settings of config and
// closes the pool together with the DB. It does not ping.
func OpenDB(pool *sql.DB, config *Config, opts ...Option) *DB {
	if config != nil {
		if config.MaxOpen > 0 {
			pool.SetMaxOpenConns(config.MaxOpen)
		}
		if config.MaxIdle > 0 {
			pool.SetMaxIdleConns(config.MaxIdle)
		}
		if config.ConnMaxLifetime > 0 {
			pool.SetConnMaxLifetime(config.ConnMaxLifetime)
		}
	}
	db := NewDB(DBProvider{pool}, config, opts...)
	db.pool = pool
	return db
}

// Config returns a copy of the effective configuration
func (db *DB) Config() Config {
	return *db.config
}

// Name returns the name used in log fields
func (db *DB) Name() string {
	return db.config.Name
}

// StmtCacheStats returns hit/miss counters of the prepared statement cache
func (db *DB) StmtCacheStats() map[string]interface{} {
	return db.stmts.Stats()
}

// Close releases the held connection, and the pool when the DB was built by Open
func (db *DB) Close() error {
	db.monitor.stop()
	err := db.conn.close()
	if db.pool != nil {
		err = errors.Join(err, db.pool.Close())
	}
	return err
}

// getContext returns a context with timeout if configured
func (db *DB) getContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if db.config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, db.config.QueryTimeout)
	}
	return ctx, func() {}
}

// logTrace 记录 SQL 日志，出错时总是记录
func (db *DB) logTrace(start time.Time, query string, args []interface{}, err error) {
	duration := time.Since(start)
	displayArgs := formatArgsForLog(args)
	if err != nil {
		LogSQLError(db.config.Name, query, displayArgs, duration, err)
	} else {
		LogSQL(db.config.Name, query, displayArgs, duration)
	}
}

// formatArgsForLog 把 time.Time 和 Date 格式化为字符串，便于阅读
func formatArgsForLog(args []interface{}) []interface{} {
	if len(args) == 0 {
		return args
	}
	formatted := make([]interface{}, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case time.Time:
			formatted[i] = v.Format("2006-01-02 15:04:05")
		case Date:
			formatted[i] = v.String()
		default:
			formatted[i] = arg
		}
	}
	return formatted
}

// isStmtClosedError 缓存的语句被并发淘汰时返回此错误
func isStmtClosedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "statement is closed")
}

// exec 执行一条不返回结果集的语句，返回影响行数
func (db *DB) exec(ctx context.Context, op, query string, args []interface{}) (int64, error) {
	ctx, cancel := db.getContext(ctx)
	defer cancel()

	stmt := BoundStatement{SQL: query, Args: BindArgs(args)}
	if err := stmt.Validate(); err != nil {
		db.logTrace(time.Now(), query, stmt.Args, err)
		return 0, execError(op, query, stmt.Args, err)
	}

	var affected int64
	start := time.Now()
	err := db.conn.withConn(ctx, func(c *sql.Conn) error {
		res, err := db.execOnConn(ctx, c, stmt)
		if err != nil {
			return err
		}
		// 部分驱动（如 ClickHouse 的 ALTER）不返回影响行数
		if n, err := res.RowsAffected(); err == nil {
			affected = n
		}
		return nil
	})
	db.logTrace(start, query, stmt.Args, err)
	if err != nil {
		return 0, db.wrapErr(op, stmt, err)
	}
	return affected, nil
}

func (db *DB) execOnConn(ctx context.Context, c *sql.Conn, stmt BoundStatement) (sql.Result, error) {
	prepared, owned, err := db.stmts.prepare(ctx, c, stmt.SQL)
	if err != nil {
		return nil, err
	}
	if owned {
		defer prepared.Close()
	}
	res, err := prepared.ExecContext(ctx, stmt.Args...)
	if isStmtClosedError(err) {
		db.stmts.remove(stmt.SQL)
		return c.ExecContext(ctx, stmt.SQL, stmt.Args...)
	}
	return res, err
}

// query 执行查询并把结果集交给 fn 处理，fn 返回后关闭结果集
func (db *DB) query(ctx context.Context, op, query string, args []interface{}, fn func(*sql.Rows) error) error {
	ctx, cancel := db.getContext(ctx)
	defer cancel()

	rows, release, err := db.openRows(ctx, op, query, args)
	if err != nil {
		return err
	}
	defer release()

	if err := fn(rows); err != nil {
		return err
	}
	return nil
}

// openRows 打开一个结果集，调用方必须调用 release
func (db *DB) openRows(ctx context.Context, op, query string, args []interface{}) (*sql.Rows, func(), error) {
	stmt := BoundStatement{SQL: query, Args: BindArgs(args)}
	if err := stmt.Validate(); err != nil {
		db.logTrace(time.Now(), query, stmt.Args, err)
		return nil, nil, execError(op, query, stmt.Args, err)
	}

	var rows *sql.Rows
	var held *sql.Conn
	start := time.Now()
	err := db.conn.withConn(ctx, func(c *sql.Conn) error {
		held = c
		var err error
		rows, err = db.queryOnConn(ctx, c, stmt)
		return err
	})
	db.logTrace(start, query, stmt.Args, err)
	if err != nil {
		return nil, nil, db.wrapErr(op, stmt, err)
	}

	release := func() {
		_ = rows.Close()
		if err := rows.Err(); isBadConnError(err) {
			db.conn.invalidate(held)
		}
	}
	return rows, release, nil
}

func (db *DB) queryOnConn(ctx context.Context, c *sql.Conn, stmt BoundStatement) (*sql.Rows, error) {
	prepared, owned, err := db.stmts.prepare(ctx, c, stmt.SQL)
	if err != nil {
		return nil, err
	}
	if owned {
		// 未缓存的语句直接在连接上查询，避免结果集依赖已关闭的语句
		_ = prepared.Close()
		return c.QueryContext(ctx, stmt.SQL, stmt.Args...)
	}
	rows, err := prepared.QueryContext(ctx, stmt.Args...)
	if isStmtClosedError(err) {
		db.stmts.remove(stmt.SQL)
		return c.QueryContext(ctx, stmt.SQL, stmt.Args...)
	}
	return rows, err
}

// wrapErr 保留 ConnectionError 和 ErrClosed，其余包装为 SQLExecutionError
func (db *DB) wrapErr(op string, stmt BoundStatement, err error) error {
	var ce *ConnectionError
	if errors.As(err, &ce) || errors.Is(err, ErrClosed) {
		return err
	}
	return execError(op, stmt.SQL, stmt.Args, err)
}

// Execute runs a statement that returns no rows and reports the affected row count
func (db *DB) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return db.exec(ctx, "execute", query, args)
}

// UpdateBySQL runs caller supplied update SQL
func (db *DB) UpdateBySQL(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return db.exec(ctx, "update", query, args)
}

// DeleteBySQL runs caller supplied delete SQL
func (db *DB) DeleteBySQL(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return db.exec(ctx, "delete", query, args)
}

// SelectListAsMaps runs a query and returns every row as an ordered Row
func (db *DB) SelectListAsMaps(ctx context.Context, query string, args ...interface{}) ([]*Row, error) {
	var out []*Row
	err := db.query(ctx, "select", query, args, func(rows *sql.Rows) error {
		var err error
		out, err = MapRowsAsRows(rows)
		if err != nil {
			return execError("scan", query, args, err)
		}
		return nil
	})
	return out, err
}

// SelectFirstAsMap runs query with LIMIT 1 appended and returns ErrNoResult when nothing matched
func (db *DB) SelectFirstAsMap(ctx context.Context, query string, args ...interface{}) (*Row, error) {
	rows, err := db.SelectListAsMaps(ctx, addLimitOne(query), args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoResult
	}
	return rows[0], nil
}

// Count returns SELECT COUNT(*) of table filtered by the where fragment
func (db *DB) Count(ctx context.Context, table, where string, args ...interface{}) (int64, error) {
	query, err := BuildCount(table, where)
	if err != nil {
		return 0, err
	}
	return db.count(ctx, query, args)
}

// CountSQL counts the rows produced by a subquery
func (db *DB) CountSQL(ctx context.Context, subquery string, args ...interface{}) (int64, error) {
	return db.count(ctx, BuildCountSubquery(subquery), args)
}

func (db *DB) count(ctx context.Context, query string, args []interface{}) (int64, error) {
	n, err := SelectScalar[int64](ctx, db, query, args...)
	if err != nil {
		return 0, err
	}
	return n.V, nil
}

// SelectScalar returns the first column of the first row.
// Zero rows give ErrNoResult; a NULL value gives Valid == false and no error.
func SelectScalar[V any](ctx context.Context, db *DB, query string, args ...interface{}) (sql.Null[V], error) {
	var out sql.Null[V]
	err := db.query(ctx, "select", query, args, func(rows *sql.Rows) error {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return execError("scan", query, args, err)
			}
			return ErrNoResult
		}
		cols, err := rows.Columns()
		if err != nil {
			return execError("scan", query, args, err)
		}
		dest := make([]interface{}, len(cols))
		dest[0] = &out
		for i := 1; i < len(cols); i++ {
			dest[i] = new(interface{})
		}
		if err := rows.Scan(dest...); err != nil {
			return execError("scan", query, args, fmt.Errorf("scalar %T: %w", out.V, err))
		}
		return nil
	})
	return out, err
}

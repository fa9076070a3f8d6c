package ckorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IndexedColumn is one table column as reported by the driver
type IndexedColumn struct {
	Name     string
	Ordinal  int // 1-based
	TypeName string
	Kind     ColumnKind
}

// ColumnIndex is the column layout of a table, discovered by a probe query
type ColumnIndex struct {
	Table   string
	Columns []IndexedColumn

	byLower map[string]int
}

// Lookup finds a column by name, case-insensitively
func (ci *ColumnIndex) Lookup(name string) (IndexedColumn, bool) {
	i, ok := ci.byLower[strings.ToLower(name)]
	if !ok {
		return IndexedColumn{}, false
	}
	return ci.Columns[i], true
}

// BatchResult summarises one batch insert call
type BatchResult struct {
	BatchID  string
	Rows     int
	Flushes  int
	Duration time.Duration
}

// Probe runs SELECT * FROM <table> LIMIT 1 and indexes the result columns.
// The table may be empty.
func (db *DB) Probe(ctx context.Context, table string) (*ColumnIndex, error) {
	query, err := BuildProbe(table)
	if err != nil {
		return nil, err
	}

	ci := &ColumnIndex{Table: table}
	err = db.query(ctx, "probe", query, nil, func(rows *sql.Rows) error {
		cts, err := rows.ColumnTypes()
		if err != nil {
			return execError("probe", query, nil, err)
		}
		ci.Columns = make([]IndexedColumn, len(cts))
		ci.byLower = make(map[string]int, len(cts))
		for i, ct := range cts {
			typeName := ct.DatabaseTypeName()
			ci.Columns[i] = IndexedColumn{
				Name:     ct.Name(),
				Ordinal:  i + 1,
				TypeName: typeName,
				Kind:     SniffKind(typeName),
			}
			ci.byLower[strings.ToLower(ct.Name())] = i
		}
		LogDebug("table probed", map[string]interface{}{
			"db":      db.config.Name,
			"table":   table,
			"columns": describeColumns(cts),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ci, nil
}

// BatchInsertMaps inserts rows whose columns are the keys of the first row, in sorted order.
// Values go through BindArg; a key missing from a later row binds NULL.
func (db *DB) BatchInsertMaps(ctx context.Context, table string, rows []map[string]interface{}) (BatchResult, error) {
	converted := make([]*Row, len(rows))
	for i, m := range rows {
		converted[i] = RowFromMap(m)
	}
	return db.BatchInsertRows(ctx, table, converted)
}

// BatchInsertRows is BatchInsertMaps for ordered rows: the columns are the keys of
// the first row in that row's order.
func (db *DB) BatchInsertRows(ctx context.Context, table string, rows []*Row) (BatchResult, error) {
	if len(rows) == 0 {
		return BatchResult{}, nil
	}
	if rows[0] == nil || rows[0].Len() == 0 {
		return BatchResult{}, fmt.Errorf("ckorm: batch insert into %s: first row has no columns", table)
	}
	columns := rows[0].Keys()
	return db.insertBatches(ctx, table, columns, len(rows), func(i int) []interface{} {
		args := make([]interface{}, len(columns))
		if rows[i] == nil {
			return args
		}
		for j, c := range columns {
			args[j] = BindArg(rows[i].Get(c))
		}
		return args
	})
}

// insertBatches 每 BatchSize 行提交一次；失败时已提交的批次保留
func (db *DB) insertBatches(ctx context.Context, table string, columns []string, n int, rowArgs func(i int) []interface{}) (BatchResult, error) {
	result := BatchResult{BatchID: uuid.NewString()}
	start := time.Now()

	query, err := BuildInsert(table, columns)
	if err != nil {
		return result, err
	}

	size := db.config.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		if err := db.flush(ctx, query, lo, hi, rowArgs); err != nil {
			result.Duration = time.Since(start)
			LogError("batch insert aborted", map[string]interface{}{
				"db":       db.config.Name,
				"table":    table,
				"batch_id": result.BatchID,
				"flushed":  result.Rows,
				"error":    fixStringEncoding(err.Error()),
			})
			return result, &BatchError{Table: table, BatchID: result.BatchID, FlushedRows: result.Rows, Err: err}
		}
		result.Rows += hi - lo
		result.Flushes++
	}

	result.Duration = time.Since(start)
	LogInfo("batch insert done", map[string]interface{}{
		"db":       db.config.Name,
		"table":    table,
		"batch_id": result.BatchID,
		"duration": result.Duration.String(),
		"rows":     result.Rows,
		"flushes":  result.Flushes,
	})
	return result, nil
}

// flush 发送 [lo, hi) 行：BeginTx -> Prepare -> Exec x N -> Commit
// clickhouse-go 用这个流程实现批量发送，Commit 时才真正写入
func (db *DB) flush(ctx context.Context, query string, lo, hi int, rowArgs func(i int) []interface{}) error {
	ctx, cancel := db.getContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.conn.withConn(ctx, func(c *sql.Conn) (err error) {
		tx, err := c.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := lo; i < hi; i++ {
			if _, err = stmt.ExecContext(ctx, rowArgs(i)...); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
	LogSQL(db.config.Name, query, []interface{}{fmt.Sprintf("%d rows", hi-lo)}, time.Since(start))
	if err != nil {
		return db.wrapErr("batch", BoundStatement{SQL: query}, err)
	}
	return nil
}

package ckorm

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"sync/atomic"
)

// DAO gives typed access to the table of entity type T
type DAO[T any] struct {
	db   *DB
	desc *EntityDescriptor
}

// NewDAO builds a DAO over its own DB, so it holds its own connection
func NewDAO[T any](provider ConnProvider, config *Config, opts ...Option) (*DAO[T], error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	return &DAO[T]{db: NewDB(provider, config, opts...), desc: desc}, nil
}

// NewDAOWithDB builds a DAO sharing db (and its connection) with other DAOs
func NewDAOWithDB[T any](db *DB) (*DAO[T], error) {
	desc, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	return &DAO[T]{db: db, desc: desc}, nil
}

// DB returns the underlying DB
func (d *DAO[T]) DB() *DB {
	return d.db
}

// Descriptor returns the entity metadata of T
func (d *DAO[T]) Descriptor() *EntityDescriptor {
	return d.desc
}

// Close releases the connection held by the DAO's DB
func (d *DAO[T]) Close() error {
	return d.db.Close()
}

// UpdateByKey rewrites every non key column of entity with ALTER TABLE ... UPDATE.
// ClickHouse runs mutations asynchronously, the affected count is driver dependent.
func (d *DAO[T]) UpdateByKey(ctx context.Context, entity *T) (int64, error) {
	stmt, err := BuildUpdateByKey(d.desc, entity)
	if err != nil {
		return 0, err
	}
	return d.db.exec(ctx, "update by key", stmt.SQL, stmt.Args)
}

// DeleteByKey removes the rows whose primary key equals key
func (d *DAO[T]) DeleteByKey(ctx context.Context, key interface{}) (int64, error) {
	stmt, err := BuildDeleteByKey(d.desc, key)
	if err != nil {
		return 0, err
	}
	return d.db.exec(ctx, "delete by key", stmt.SQL, stmt.Args)
}

// Execute runs a statement that returns no rows
func (d *DAO[T]) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return d.db.Execute(ctx, query, args...)
}

// UpdateBySQL runs caller supplied update SQL
func (d *DAO[T]) UpdateBySQL(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return d.db.UpdateBySQL(ctx, query, args...)
}

// DeleteBySQL runs caller supplied delete SQL
func (d *DAO[T]) DeleteBySQL(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return d.db.DeleteBySQL(ctx, query, args...)
}

// Count counts the rows of T's table filtered by the where fragment
func (d *DAO[T]) Count(ctx context.Context, where string, args ...interface{}) (int64, error) {
	return d.db.Count(ctx, d.desc.Table, where, args...)
}

// CountSQL counts the rows produced by subquery
func (d *DAO[T]) CountSQL(ctx context.Context, subquery string, args ...interface{}) (int64, error) {
	return d.db.CountSQL(ctx, subquery, args...)
}

// Page returns at most size records starting at offset
func (d *DAO[T]) Page(ctx context.Context, offset, size int, where string, args ...interface{}) ([]*T, error) {
	query, err := BuildPage(d.desc.Table, where, offset, size)
	if err != nil {
		return nil, err
	}
	return d.SelectList(ctx, query, args...)
}

// Paginate combines Count and Page. pageNumber starts at 1.
// An ORDER BY in where is dropped from the count query.
func (d *DAO[T]) Paginate(ctx context.Context, pageNumber, pageSize int, where string, args ...interface{}) (*Page[*T], error) {
	pageNumber, pageSize, offset := normalizePage(pageNumber, pageSize)

	total, err := d.Count(ctx, stripOrderBy(where), args...)
	if err != nil {
		return nil, err
	}
	if total == 0 || int64(offset) >= total {
		return NewPage([]*T{}, pageNumber, pageSize, total), nil
	}
	list, err := d.Page(ctx, offset, pageSize, where, args...)
	if err != nil {
		return nil, err
	}
	return NewPage(list, pageNumber, pageSize, total), nil
}

// SelectList runs query and maps every row to a new *T
func (d *DAO[T]) SelectList(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return CollectRows(d.Stream(ctx, query, args...))
}

// SelectOne runs query with LIMIT 1 appended. No row gives ErrNoResult.
func (d *DAO[T]) SelectOne(ctx context.Context, query string, args ...interface{}) (*T, error) {
	for item, err := range d.Stream(ctx, addLimitOne(query), args...) {
		if err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, ErrNoResult
}

// SelectListAsMaps runs query and returns ordered rows instead of records
func (d *DAO[T]) SelectListAsMaps(ctx context.Context, query string, args ...interface{}) ([]*Row, error) {
	return d.db.SelectListAsMaps(ctx, query, args...)
}

// Stream runs query when ranged over and yields records one by one.
// The sequence is single-use; stopping early closes the cursor.
func (d *DAO[T]) Stream(ctx context.Context, query string, args ...interface{}) iter.Seq2[*T, error] {
	var consumed atomic.Bool
	return func(yield func(*T, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(nil, ErrSequenceConsumed)
			return
		}
		ctx, cancel := d.db.getContext(ctx)
		defer cancel()

		rows, release, err := d.db.openRows(ctx, "select", query, args)
		if err != nil {
			yield(nil, err)
			return
		}
		defer release()

		for item, err := range mapRows[T](rows, d.desc, query, args) {
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// BatchInsert inserts records in flushes of Config.BatchSize rows.
// Each mapped column present in the table is coerced to the table's column kind;
// mapped columns the table lacks are skipped with a warning.
func (d *DAO[T]) BatchInsert(ctx context.Context, records []*T) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}
	for i, r := range records {
		if r == nil {
			return BatchResult{}, fmt.Errorf("ckorm: batch insert into %s: nil record at index %d", d.desc.Table, i)
		}
	}

	ci, err := d.db.Probe(ctx, d.desc.Table)
	if err != nil {
		return BatchResult{}, err
	}

	type target struct {
		col  *ColumnDescriptor
		kind ColumnKind
	}
	var (
		columns []string
		targets []target
	)
	for i := range d.desc.Columns {
		col := &d.desc.Columns[i]
		ic, ok := ci.Lookup(col.ColumnName)
		if !ok {
			LogWarn("mapped column not in table, skipped", map[string]interface{}{
				"db":     d.db.config.Name,
				"table":  d.desc.Table,
				"column": col.ColumnName,
				"field":  col.FieldName,
			})
			continue
		}
		columns = append(columns, ic.Name)
		targets = append(targets, target{col: col, kind: ic.Kind})
	}
	if len(columns) == 0 {
		return BatchResult{}, &ConfigurationError{Type: d.desc.Type.String(), Reason: "no mapped column exists in table " + d.desc.Table}
	}

	return d.db.insertBatches(ctx, d.desc.Table, columns, len(records), func(i int) []interface{} {
		v := reflect.ValueOf(records[i]).Elem()
		args := make([]interface{}, len(targets))
		for j, t := range targets {
			args[j] = BindArg(Coerce(t.kind, d.desc.valueOf(v, t.col)))
		}
		return args
	})
}

// BatchInsertMaps inserts untyped rows into T's table, see DB.BatchInsertMaps
func (d *DAO[T]) BatchInsertMaps(ctx context.Context, rows []map[string]interface{}) (BatchResult, error) {
	return d.db.BatchInsertMaps(ctx, d.desc.Table, rows)
}

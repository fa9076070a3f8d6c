package ckorm

import (
	"database/sql"
	"fmt"
	"iter"
	"reflect"
	"strings"
	"sync/atomic"
)

// MapRows returns a lazy, single-use sequence that maps every cursor row to a new *T.
// Result columns match mapped columns case-insensitively; unmatched columns and
// NULL values are skipped. The sequence closes rows when it ends.
func MapRows[T any](rows *sql.Rows, desc *EntityDescriptor) iter.Seq2[*T, error] {
	return mapRows[T](rows, desc, "", nil)
}

func mapRows[T any](rows *sql.Rows, desc *EntityDescriptor, query string, args []interface{}) iter.Seq2[*T, error] {
	var consumed atomic.Bool
	return func(yield func(*T, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(nil, ErrSequenceConsumed)
			return
		}
		defer rows.Close()

		if t := reflect.TypeOf((*T)(nil)).Elem(); desc == nil || desc.Type != t {
			yield(nil, &ConfigurationError{Type: t.String(), Reason: "descriptor does not describe the mapped type"})
			return
		}

		columns, err := rows.Columns()
		if err != nil {
			yield(nil, execError("scan", query, args, err))
			return
		}
		plan := make([]*ColumnDescriptor, len(columns))
		for i, name := range columns {
			if col, ok := desc.Column(name); ok {
				plan[i] = col
			}
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(valuePtrs...); err != nil {
				yield(nil, execError("scan", query, args, err))
				return
			}
			item := new(T)
			rv := reflect.ValueOf(item).Elem()
			for i, col := range plan {
				if col == nil || values[i] == nil {
					continue
				}
				field, err := fieldByIndexAlloc(rv, col.Index)
				if err == nil {
					err = setFieldValue(field, values[i])
				}
				if err != nil {
					yield(nil, &MappingError{Type: desc.Type.String(), Column: columns[i], Field: col.FieldName, Err: err})
					return
				}
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, execError("scan", query, args, err))
		}
	}
}

// CollectRows drains seq into a slice, stopping at the first error
func CollectRows[T any](seq iter.Seq2[*T, error]) ([]*T, error) {
	var out []*T
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// MapRowsAsRows reads every cursor row into an ordered Row.
// Byte slices of non binary columns become strings. It does not close rows.
func MapRowsAsRows(rows *sql.Rows) ([]*Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	dbTypes := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	numCols := len(columns)
	var results []*Row

	// 重用扫描缓冲区，避免每行都分配新的slice
	values := make([]interface{}, numCols)
	valuePtrs := make([]interface{}, numCols)
	for i := range columns {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		row := newRowWithCap(numCols)
		for i, col := range columns {
			row.setDirect(col, processDBValue(values[i], dbTypes[i]))
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func processDBValue(val interface{}, dbType string) interface{} {
	b, ok := val.([]byte)
	if !ok {
		return val
	}
	if isNumericType(dbType) {
		if len(b) == 0 {
			return nil
		}
		return string(b)
	}
	if !isBinaryType(dbType) {
		// 将字节数组转换为字符串，避免外部持有原始切片引用
		return string(b)
	}
	// 二进制类型复制数据，驱动可能重用底层缓冲区
	bCopy := make([]byte, len(b))
	copy(bCopy, b)
	return bCopy
}

func isNumericType(dbType string) bool {
	for _, t := range []string{"DECIMAL", "NUMERIC", "DEC(", "FIXED"} {
		if strings.Contains(dbType, t) {
			return true
		}
	}
	return false
}

func isBinaryType(dbType string) bool {
	for _, t := range []string{"BLOB", "BINARY", "VARBINARY", "BYTEA", "RAW"} {
		if strings.Contains(dbType, t) {
			return true
		}
	}
	return false
}

// describeColumns 把结果集的列名和类型格式化为日志字段
func describeColumns(cts []*sql.ColumnType) string {
	parts := make([]string, len(cts))
	for i, ct := range cts {
		parts[i] = fmt.Sprintf("%s %s", ct.Name(), ct.DatabaseTypeName())
	}
	return strings.Join(parts, ", ")
}

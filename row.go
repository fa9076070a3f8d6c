package ckorm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one result row as an ordered column -> value map.
// columns 保留原始大小写，lowerKeyMap 用于大小写不敏感的查找，keys 保存列顺序
type Row struct {
	columns     map[string]interface{}
	lowerKeyMap map[string]string
	keys        []string
	mu          sync.RWMutex
}

// NewRow creates a new empty Row
func NewRow() *Row {
	return newRowWithCap(0)
}

func newRowWithCap(n int) *Row {
	return &Row{
		columns:     make(map[string]interface{}, n),
		lowerKeyMap: make(map[string]string, n),
		keys:        make([]string, 0, n),
	}
}

// RowFromMap 从 map 创建 Row，map 没有顺序，所以列按名称排序
func RowFromMap(m map[string]interface{}) *Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := newRowWithCap(len(keys))
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// Set sets a column value. An existing column is matched case-insensitively and keeps its position.
// 指针会被解引用，存储实际值
func (r *Row) Set(column string, value interface{}) *Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	value = derefPointer(value)
	lowerKey := strings.ToLower(column)
	if existingKey, exists := r.lowerKeyMap[lowerKey]; exists {
		r.columns[existingKey] = value
		return r
	}
	r.setDirect(column, value)
	return r
}

// setDirect 不加锁直接追加列，仅用于扫描结果时新建的 Row
func (r *Row) setDirect(column string, value interface{}) {
	r.columns[column] = value
	r.lowerKeyMap[strings.ToLower(column)] = column
	r.keys = append(r.keys, column)
}

// Get gets a column value with case-insensitive lookup
func (r *Row) Get(column string) interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if actualKey, exists := r.lowerKeyMap[strings.ToLower(column)]; exists {
		return r.columns[actualKey]
	}
	return nil
}

// Has checks if a column exists in the Row
func (r *Row) Has(column string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.lowerKeyMap[strings.ToLower(column)]
	return exists
}

// Keys returns all column names in order
func (r *Row) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of columns
func (r *Row) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Remove removes a column with case-insensitive support
func (r *Row) Remove(column string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lowerKey := strings.ToLower(column)
	actualKey, exists := r.lowerKeyMap[lowerKey]
	if !exists {
		return
	}
	delete(r.columns, actualKey)
	delete(r.lowerKeyMap, lowerKey)
	for i, k := range r.keys {
		if k == actualKey {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// ToMap converts the Row to a map (returns a copy)
func (r *Row) ToMap() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := make(map[string]interface{}, len(r.columns))
	for k, v := range r.columns {
		m[k] = v
	}
	return m
}

func (r *Row) GetString(column string) string { return Convert.ToString(r.Get(column)) }

func (r *Row) GetInt(column string) int { return Convert.ToInt(r.Get(column)) }

func (r *Row) GetInt64(column string) int64 { return Convert.ToInt64(r.Get(column)) }

func (r *Row) GetFloat(column string) float64 { return Convert.ToFloat64(r.Get(column)) }

func (r *Row) GetBool(column string) bool { return Convert.ToBool(r.Get(column)) }

func (r *Row) GetTime(column string) time.Time { return Convert.ToTime(r.Get(column)) }

func (r *Row) GetDecimal(column string) decimal.Decimal { return Convert.ToDecimal(r.Get(column)) }

// GetDate returns the zero Date when the value is not a date
func (r *Row) GetDate(column string) Date {
	d, _ := Convert.ToDateWithError(r.Get(column))
	return d
}

// ToJson converts the Row to JSON with column order preserved
func (r *Row) ToJson() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// String 返回 JSON 格式，fmt.Printf("%v", row) 直接输出 JSON
func (r *Row) String() string {
	return r.ToJson()
}

// MarshalJSON 按列顺序输出
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		valJSON, err := json.Marshal(r.columns[k])
		if err != nil {
			return nil, fmt.Errorf("ckorm: marshal column %s: %w", k, err)
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 解析一个 JSON 对象，保留键的出现顺序
// 数字解析为 json.Number，由绑定器按列类型处理
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ckorm: row JSON must be an object")
	}

	fresh := NewRow()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ckorm: unexpected JSON key %v", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}
		fresh.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.columns, r.lowerKeyMap, r.keys = fresh.columns, fresh.lowerKeyMap, fresh.keys
	return nil
}

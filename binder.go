package ckorm

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// BindArg converts v to the positional bind form for its runtime type.
//
//	int8, int16, int32, int (in range) -> int32
//	int64, int (out of int32 range)    -> int64
//	uint family                        -> uint64
//	string, float64, float32, bool     -> unchanged
//	decimal.Decimal, *decimal.Decimal  -> decimal.Decimal
//	time.Time                          -> unchanged
//	Date                               -> time.Time at midnight UTC
//	json.Number                        -> int64, float64 or string
//	typed nil pointer                  -> nil
//	other pointers                     -> dereferenced, then bound again
//
// Anything else (driver.Valuer, []byte, slices for Array columns) is passed through unchanged.
func BindArg(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x)
		}
		return int64(x)
	case int8:
		return int32(x)
	case int16:
		return int32(x)
	case int32:
		return x
	case int64:
		return x
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case string:
		return x
	case float64:
		return x
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return *x
	case float32:
		return x
	case time.Time:
		return x
	case Date:
		return x.Time()
	case bool:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case driver.Valuer:
		// 值类型的 Valuer 交给驱动处理；指针类型先判空
		if isNil(x) {
			return nil
		}
		if reflect.TypeOf(x).Kind() != reflect.Ptr {
			return x
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return BindArg(rv.Elem().Interface())
	}
	return v
}

// BindArgs binds every value of vs in order
func BindArgs(vs []interface{}) []interface{} {
	if len(vs) == 0 {
		return nil
	}
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = BindArg(v)
	}
	return out
}

package ckorm

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ColumnKind is the coarse column type the batch executor coerces values into
type ColumnKind int

const (
	KindOther ColumnKind = iota
	KindTimestamp
	KindDate
	KindDecimal
)

func (k ColumnKind) String() string {
	switch k {
	case KindTimestamp:
		return "TIMESTAMP"
	case KindDate:
		return "DATE"
	case KindDecimal:
		return "DECIMAL"
	default:
		return "OTHER"
	}
}

// 只包装类型、不改变取值的 ClickHouse 类型
var typeWrappers = []string{"NULLABLE(", "LOWCARDINALITY("}

// SniffKind maps a driver reported type name to a ColumnKind.
// ClickHouse names (DateTime64(3), Date32, Decimal(18, 4), Nullable(...)) and
// ANSI names (TIMESTAMP, DATETIME, DATE, DECIMAL, NUMERIC) are recognised.
func SniffKind(databaseTypeName string) ColumnKind {
	t := strings.ToUpper(strings.TrimSpace(databaseTypeName))
	for unwrapped := true; unwrapped; {
		unwrapped = false
		for _, w := range typeWrappers {
			if strings.HasPrefix(t, w) && strings.HasSuffix(t, ")") {
				t = strings.TrimSpace(t[len(w) : len(t)-1])
				unwrapped = true
			}
		}
	}

	switch {
	case strings.HasPrefix(t, "DATETIME"), strings.HasPrefix(t, "TIMESTAMP"):
		return KindTimestamp
	case t == "DATE", t == "DATE32":
		return KindDate
	case strings.HasPrefix(t, "DECIMAL"), strings.HasPrefix(t, "NUMERIC"), strings.HasPrefix(t, "DEC("):
		return KindDecimal
	default:
		return KindOther
	}
}

// Coerce converts v into the representation the column kind needs.
// A value that cannot represent the kind becomes nil, it never fails.
func Coerce(kind ColumnKind, v interface{}) interface{} {
	if isNil(v) {
		return nil
	}
	switch kind {
	case KindTimestamp:
		return coerceTimestamp(v)
	case KindDate:
		return coerceDate(v)
	case KindDecimal:
		return coerceDecimal(v)
	default:
		return BindArg(v)
	}
}

func coerceTimestamp(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return x
	case *time.Time:
		return *x
	case sql.NullTime:
		if x.Valid {
			return x.Time
		}
	case Date:
		return x.Time()
	case *Date:
		return x.Time()
	}
	return nil
}

func coerceDate(v interface{}) interface{} {
	switch x := v.(type) {
	case Date:
		return x
	case *Date:
		return *x
	case time.Time:
		return DateOf(x)
	case *time.Time:
		return DateOf(*x)
	case sql.NullTime:
		if x.Valid {
			return DateOf(x.Time)
		}
	case string:
		// 有日期格式的字符串转成 Date，否则原样交给数据库解析
		if d, err := ParseDate(x); err == nil {
			return d
		}
		return x
	}
	return nil
}

func coerceDecimal(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		return *x
	case decimal.NullDecimal:
		if x.Valid {
			return x.Decimal
		}
		return nil
	case string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		d, err := Convert.ToDecimalWithError(fmt.Sprint(x))
		if err != nil {
			return nil
		}
		return d
	}
	return nil
}

// Date is a calendar date without time of day or location
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// 日期字符串格式
var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// DateOf returns the date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses yyyy-mm-dd, yyyy/mm/dd or yyyymmdd
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("ckorm: cannot parse %q as date", s)
}

// Time returns midnight UTC of d
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return d.Time(), nil
}

// Scan implements sql.Scanner
func (d *Date) Scan(src interface{}) error {
	if src == nil {
		*d = Date{}
		return nil
	}
	parsed, err := Convert.ToDateWithError(src)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

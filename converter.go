package ckorm

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	dateType    = reflect.TypeOf(Date{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// setFieldValue 把数据库返回的值写入结构体字段，必要时做类型转换
func setFieldValue(field reflect.Value, value interface{}) error {
	v := reflect.ValueOf(value)

	// Handle pointer target
	if field.Kind() == reflect.Ptr {
		if v.Kind() == reflect.Ptr && v.IsNil() {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setFieldValue(field.Elem(), value)
	}

	// Unpack pointer value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		v = v.Elem()
		value = v.Interface()
	}

	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return nil
	}

	// 驱动返回的 []byte 统一按字符串处理
	if b, ok := value.([]byte); ok && field.Kind() != reflect.Slice {
		value = string(b)
	}

	switch field.Type() {
	case timeType:
		t, err := Convert.ToTimeWithError(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
		return nil
	case dateType:
		d, err := Convert.ToDateWithError(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case decimalType:
		d, err := Convert.ToDecimalWithError(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, err := Convert.ToStringWithError(value)
		if err != nil {
			return err
		}
		field.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := Convert.ToInt64WithError(value)
		if err != nil {
			return err
		}
		if field.OverflowInt(val) {
			return fmt.Errorf("value %d overflows %s", val, field.Type())
		}
		field.SetInt(val)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := Convert.ToUint64WithError(value)
		if err != nil {
			return err
		}
		if field.OverflowUint(val) {
			return fmt.Errorf("value %d overflows %s", val, field.Type())
		}
		field.SetUint(val)
	case reflect.Float32, reflect.Float64:
		val, err := Convert.ToFloat64WithError(value)
		if err != nil {
			return err
		}
		field.SetFloat(val)
	case reflect.Bool:
		val, err := Convert.ToBoolWithError(value)
		if err != nil {
			return err
		}
		field.SetBool(val)
	default:
		if v.Type().ConvertibleTo(field.Type()) {
			field.Set(v.Convert(field.Type()))
			return nil
		}
		return fmt.Errorf("cannot convert %T to %s", value, field.Type())
	}

	return nil
}

// derefPointer 解引用指针，返回实际值
// 如果是 nil 指针，返回 nil
func derefPointer(a any) any {
	if a == nil {
		return nil
	}
	v := reflect.ValueOf(a)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.CanInterface() {
		return v.Interface()
	}
	return nil
}

// convertStruct 类型转换函数命名空间
type convertStruct struct{}

// Convert 提供类型转换函数
var Convert = convertStruct{}

// ToBoolWithError 将任意类型转换为 bool，转换失败返回错误
// 字符串除 strconv.ParseBool 的格式外还接受 yes/no、on/off
func (convertStruct) ToBoolWithError(a any) (bool, error) {
	a = derefPointer(a)
	if a == nil {
		return false, fmt.Errorf("cannot convert nil to bool")
	}
	switch v := a.(type) {
	case bool:
		return v, nil
	case int, int8, int16, int32, int64:
		return reflect.ValueOf(v).Int() != 0, nil
	case uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(v).Uint() != 0, nil
	case float32, float64:
		return reflect.ValueOf(v).Float() != 0, nil
	case []byte:
		return Convert.ToBoolWithError(string(v))
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
		return false, fmt.Errorf("cannot parse %q as bool", v)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", a)
	}
}

// ToBool 将任意类型转换为 bool，转换失败返回默认值
func (convertStruct) ToBool(a any, defaultValue ...bool) bool {
	v, err := Convert.ToBoolWithError(a)
	if err != nil {
		return orDefault(false, defaultValue)
	}
	return v
}

// ToInt64WithError 将任意类型转换为 int64，转换失败返回错误
func (convertStruct) ToInt64WithError(a any) (int64, error) {
	a = derefPointer(a)
	if a == nil {
		return 0, fmt.Errorf("cannot convert nil to int64")
	}
	switch v := a.(type) {
	case int, int8, int16, int32, int64:
		return reflect.ValueOf(v).Int(), nil
	case uint, uint8, uint16, uint32, uint64:
		return int64(reflect.ValueOf(v).Uint()), nil
	case float32, float64:
		return int64(reflect.ValueOf(v).Float()), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case decimal.Decimal:
		return v.IntPart(), nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", a)
	}
}

// ToInt64 将任意类型转换为 int64，转换失败返回默认值
func (convertStruct) ToInt64(a any, defaultValue ...int64) int64 {
	v, err := Convert.ToInt64WithError(a)
	if err != nil {
		return orDefault(int64(0), defaultValue)
	}
	return v
}

// ToInt 将任意类型转换为 int，转换失败返回默认值
func (convertStruct) ToInt(a any, defaultValue ...int) int {
	v, err := Convert.ToInt64WithError(a)
	if err != nil {
		return orDefault(0, defaultValue)
	}
	return int(v)
}

// ToUint64WithError 将任意类型转换为 uint64，负数返回错误
func (convertStruct) ToUint64WithError(a any) (uint64, error) {
	a = derefPointer(a)
	if a == nil {
		return 0, fmt.Errorf("cannot convert nil to uint64")
	}
	switch v := a.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(v).Uint(), nil
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseUint(strings.TrimSpace(string(v)), 10, 64)
	}
	i, err := Convert.ToInt64WithError(a)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("cannot convert negative value %d to uint64", i)
	}
	return uint64(i), nil
}

// ToFloat64WithError 将任意类型转换为 float64，转换失败返回错误
func (convertStruct) ToFloat64WithError(a any) (float64, error) {
	a = derefPointer(a)
	if a == nil {
		return 0, fmt.Errorf("cannot convert nil to float64")
	}
	switch v := a.(type) {
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(v).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(v).Uint()), nil
	case float32, float64:
		return reflect.ValueOf(v).Float(), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, nil
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", a)
	}
}

// ToFloat64 将任意类型转换为 float64，转换失败返回默认值
func (convertStruct) ToFloat64(a any, defaultValue ...float64) float64 {
	v, err := Convert.ToFloat64WithError(a)
	if err != nil {
		return orDefault(0.0, defaultValue)
	}
	return v
}

// ToStringWithError 将任意类型转换为 string
func (convertStruct) ToStringWithError(a any) (string, error) {
	a = derefPointer(a)
	if a == nil {
		return "", nil
	}
	switch v := a.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format("2006-01-02 15:04:05"), nil
	case fmt.Stringer:
		// decimal.Decimal, Date, uuid.UUID
		return v.String(), nil
	default:
		bs, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("cannot convert %T to string: %w", a, err)
		}
		return string(bs), nil
	}
}

// ToString 将任意类型转换为 string，转换失败返回默认值
func (convertStruct) ToString(a any, defaultValue ...string) string {
	v, err := Convert.ToStringWithError(a)
	if err != nil {
		return orDefault("", defaultValue)
	}
	return v
}

// ToDecimalWithError 将数值或数字字符串转换为 decimal.Decimal
func (convertStruct) ToDecimalWithError(a any) (decimal.Decimal, error) {
	a = derefPointer(a)
	if a == nil {
		return decimal.Zero, fmt.Errorf("cannot convert nil to decimal")
	}
	switch v := a.(type) {
	case decimal.Decimal:
		return v, nil
	case decimal.NullDecimal:
		if !v.Valid {
			return decimal.Zero, fmt.Errorf("cannot convert null decimal")
		}
		return v.Decimal, nil
	case int, int8, int16, int32, int64:
		return decimal.NewFromInt(reflect.ValueOf(v).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		return decimal.NewFromUint64(reflect.ValueOf(v).Uint()), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(v)))
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	default:
		return decimal.Zero, fmt.Errorf("cannot convert %T to decimal", a)
	}
}

// ToDecimal 转换失败返回默认值
func (convertStruct) ToDecimal(a any, defaultValue ...decimal.Decimal) decimal.Decimal {
	v, err := Convert.ToDecimalWithError(a)
	if err != nil {
		return orDefault(decimal.Zero, defaultValue)
	}
	return v
}

// ToDateWithError 将日期、时间或日期字符串转换为 Date
func (convertStruct) ToDateWithError(a any) (Date, error) {
	a = derefPointer(a)
	switch v := a.(type) {
	case Date:
		return v, nil
	case string:
		if d, err := ParseDate(v); err == nil {
			return d, nil
		}
	case []byte:
		return Convert.ToDateWithError(string(v))
	}
	t, err := Convert.ToTimeWithError(a)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// 字符串时间格式，按常见程度排列
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"20060102",
	"2006年01月02日 15:04:05",
	"2006年01月02日",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.ANSIC,
	time.UnixDate,
}

// ToTimeWithError 将任意类型转换为 time.Time，转换失败返回错误
// 整数按 Unix 秒处理
func (convertStruct) ToTimeWithError(a any) (time.Time, error) {
	a = derefPointer(a)
	if a == nil {
		return time.Time{}, fmt.Errorf("cannot convert nil to time.Time")
	}
	switch v := a.(type) {
	case time.Time:
		return v, nil
	case Date:
		return v.Time(), nil
	case sql.NullTime:
		if !v.Valid {
			return time.Time{}, fmt.Errorf("cannot convert null time")
		}
		return v.Time, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse string %q to time.Time", v)
	case []byte:
		return Convert.ToTimeWithError(string(v))
	case int, int32, int64:
		return time.Unix(reflect.ValueOf(v).Int(), 0), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", a)
	}
}

// ToTime 将任意类型转换为 time.Time，转换失败返回默认值
func (convertStruct) ToTime(a any, defaultValue ...time.Time) time.Time {
	v, err := Convert.ToTimeWithError(a)
	if err != nil {
		return orDefault(time.Time{}, defaultValue)
	}
	return v
}

func orDefault[T any](zero T, defaultValue []T) T {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return zero
}

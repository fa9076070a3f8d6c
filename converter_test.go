package ckorm

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Scalars(t *testing.T) {
	n := 5
	assert.Equal(t, int64(5), Convert.ToInt64(&n))
	assert.Equal(t, int64(12), Convert.ToInt64(" 12 "))
	assert.Equal(t, int64(3), Convert.ToInt64(3.9))
	assert.Equal(t, int64(-1), Convert.ToInt64("x", -1))
	assert.Equal(t, 0, Convert.ToInt(nil))

	u, err := Convert.ToUint64WithError(int64(-1))
	assert.Error(t, err)
	assert.Zero(t, u)
	u, err = Convert.ToUint64WithError([]byte("42"))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), u)

	assert.Equal(t, 2.5, Convert.ToFloat64("2.5"))
	assert.Equal(t, 1.0, Convert.ToFloat64(true))
	assert.Equal(t, 9.0, Convert.ToFloat64("bad", 9))

	assert.True(t, Convert.ToBool("on"))
	assert.False(t, Convert.ToBool("off", true))
	assert.True(t, Convert.ToBool("maybe", true))
	assert.True(t, Convert.ToBool(int8(1)))

	assert.Equal(t, "1.5", Convert.ToString(1.5))
	assert.Equal(t, "2024-01-02", Convert.ToString(Date{Year: 2024, Month: 1, Day: 2}))
	assert.Equal(t, "3.1", Convert.ToString(decimal.RequireFromString("3.10")))
	assert.Equal(t, `[1,2]`, Convert.ToString([]int{1, 2}))
	assert.Equal(t, "", Convert.ToString(nil))
}

func TestConvert_DecimalAndTime(t *testing.T) {
	d, err := Convert.ToDecimalWithError(" 10.25 ")
	require.NoError(t, err)
	assert.Equal(t, "10.25", d.String())
	_, err = Convert.ToDecimalWithError(decimal.NullDecimal{})
	assert.Error(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(Convert.ToDecimal("x", decimal.NewFromInt(1))))

	ts, err := Convert.ToTimeWithError("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ts)

	ts, err = Convert.ToTimeWithError("2024-01-02 03:04:05.123+08:00")
	require.NoError(t, err)
	assert.Equal(t, 123*time.Millisecond, time.Duration(ts.Nanosecond()))

	assert.Equal(t, time.Unix(100, 0), Convert.ToTime(int64(100)))
	_, err = Convert.ToTimeWithError("someday")
	assert.Error(t, err)

	date, err := Convert.ToDateWithError("2024-01-02 23:00:00")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 2}, date)
}

func TestSetFieldValue(t *testing.T) {
	var target struct {
		I8    int8
		U     uint32
		F     float32
		S     string
		B     bool
		P     *int64
		T     time.Time
		D     Date
		Dec   decimal.Decimal
		Bytes []byte
		Named myString
	}
	v := reflect.ValueOf(&target).Elem()
	set := func(name string, value interface{}) error {
		return setFieldValue(v.FieldByName(name), value)
	}

	require.NoError(t, set("I8", int64(12)))
	assert.Equal(t, int8(12), target.I8)
	assert.Error(t, set("I8", int64(300)))

	require.NoError(t, set("U", "7"))
	assert.Equal(t, uint32(7), target.U)
	assert.Error(t, set("U", int64(-7)))

	require.NoError(t, set("F", []byte("1.5")))
	assert.Equal(t, float32(1.5), target.F)

	require.NoError(t, set("S", []byte("abc")))
	assert.Equal(t, "abc", target.S)

	require.NoError(t, set("B", int64(1)))
	assert.True(t, target.B)

	require.NoError(t, set("P", int64(9)))
	require.NotNil(t, target.P)
	assert.Equal(t, int64(9), *target.P)

	require.NoError(t, set("T", "2024-01-02 03:04:05"))
	assert.Equal(t, 2024, target.T.Year())

	require.NoError(t, set("D", time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)))
	assert.Equal(t, Date{Year: 2024, Month: time.June, Day: 1}, target.D)

	require.NoError(t, set("Dec", 0.25))
	assert.Equal(t, "0.25", target.Dec.String())

	require.NoError(t, set("Bytes", []byte{1, 2}))
	assert.Equal(t, []byte{1, 2}, target.Bytes)

	require.NoError(t, set("Named", "x"))
	assert.Equal(t, myString("x"), target.Named)

	assert.Error(t, set("T", struct{}{}))
}

type myString string

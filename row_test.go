package ckorm

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_OrderAndCase(t *testing.T) {
	r := NewRow().Set("zeta", 1).Set("Alpha", "a").Set("mid", 2.5)
	assert.Equal(t, []string{"zeta", "Alpha", "mid"}, r.Keys())

	// 已有列按不区分大小写匹配，位置和原始大小写不变
	r.Set("ALPHA", "b")
	assert.Equal(t, []string{"zeta", "Alpha", "mid"}, r.Keys())
	assert.Equal(t, "b", r.Get("alpha"))
	assert.True(t, r.Has("ZETA"))
	assert.Equal(t, 3, r.Len())

	r.Remove("zeta")
	assert.Equal(t, []string{"Alpha", "mid"}, r.Keys())
	assert.Nil(t, r.Get("zeta"))
	r.Remove("missing")
	assert.Equal(t, 2, r.Len())
}

func TestRow_DerefAndGetters(t *testing.T) {
	s := "7"
	r := NewRow().
		Set("s", &s).
		Set("nil", (*string)(nil)).
		Set("f", "1.5").
		Set("b", "yes").
		Set("d", "12.30").
		Set("t", "2024-01-02 03:04:05")

	assert.Equal(t, "7", r.Get("s"))
	assert.True(t, r.Has("nil"))
	assert.Nil(t, r.Get("nil"))
	assert.Equal(t, 7, r.GetInt("s"))
	assert.Equal(t, int64(7), r.GetInt64("s"))
	assert.Equal(t, "7", r.GetString("s"))
	assert.Equal(t, 1.5, r.GetFloat("f"))
	assert.True(t, r.GetBool("b"))
	assert.True(t, decimal.RequireFromString("12.3").Equal(r.GetDecimal("d")))
	assert.Equal(t, 2024, r.GetTime("t").Year())
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 2}, r.GetDate("t"))
	assert.True(t, r.GetDate("b").IsZero())
	assert.Equal(t, 0, r.GetInt("missing"))

	m := r.ToMap()
	m["s"] = "changed"
	assert.Equal(t, "7", r.Get("s"))
}

func TestRowFromMap_SortsKeys(t *testing.T) {
	r := RowFromMap(map[string]interface{}{"c": 3, "a": 1, "b": 2})
	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
}

func TestRow_JSONKeepsOrder(t *testing.T) {
	r := NewRow().Set("z", 1).Set("a", "x").Set("m", nil)
	assert.Equal(t, `{"z":1,"a":"x","m":null}`, r.ToJson())
	assert.Equal(t, r.ToJson(), r.String())

	var back Row
	require.NoError(t, json.Unmarshal([]byte(`{"z": 10, "a": 1.5, "m": "s", "n": null, "o": {"k": 1}}`), &back))
	assert.Equal(t, []string{"z", "a", "m", "n", "o"}, back.Keys())
	assert.Equal(t, json.Number("10"), back.Get("z"))
	assert.Equal(t, json.Number("1.5"), back.Get("a"))
	assert.Nil(t, back.Get("n"))

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &back))

	var nilRow *Row
	b, err := json.Marshal(nilRow)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestRow_ConcurrentAccess(t *testing.T) {
	r := NewRow()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Set("k", i)
			_ = r.Get("k")
			_ = r.ToJson()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, r.Len())
}

package ckorm

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvents(t *testing.T, dao *DAO[testEvent], n int) []*testEvent {
	t.Helper()
	events := makeEvents(n)
	_, err := dao.BatchInsert(ctx, events)
	require.NoError(t, err)
	return events
}

func TestDAO_SelectOne(t *testing.T) {
	dao, _ := openEventsDAO(t)

	_, err := dao.SelectOne(ctx, "SELECT * FROM events")
	assert.ErrorIs(t, err, ErrNoResult)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	seedEvents(t, dao, 5)
	e, err := dao.SelectOne(ctx, "SELECT * FROM events WHERE id >= ? ORDER BY id;", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.ID)
	assert.Equal(t, "event", e.Name)

	// 已有 LIMIT 时不再追加
	e, err = dao.SelectOne(ctx, "SELECT * FROM events ORDER BY id DESC LIMIT 1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), e.ID)
}

func TestSelectScalar(t *testing.T) {
	dao, _ := openEventsDAO(t)

	// 空表上的 MAX 返回一行 NULL
	maxID, err := SelectScalar[int64](ctx, dao.DB(), "SELECT MAX(id) FROM events")
	require.NoError(t, err)
	assert.False(t, maxID.Valid)

	_, err = SelectScalar[int64](ctx, dao.DB(), "SELECT id FROM events")
	assert.ErrorIs(t, err, ErrNoResult)

	seedEvents(t, dao, 3)
	maxID, err = SelectScalar[int64](ctx, dao.DB(), "SELECT MAX(id), COUNT(*) FROM events")
	require.NoError(t, err)
	assert.True(t, maxID.Valid)
	assert.Equal(t, int64(2), maxID.V)

	name, err := SelectScalar[string](ctx, dao.DB(), "SELECT name FROM events WHERE id = ?", 1)
	require.NoError(t, err)
	assert.Equal(t, "event", name.V)

	_, err = SelectScalar[int64](ctx, dao.DB(), "SELECT name FROM events WHERE id = ?", 1)
	var se *SQLExecutionError
	assert.ErrorAs(t, err, &se)
}

func TestDAO_CountAndCountSQL(t *testing.T) {
	dao, _ := openEventsDAO(t)
	seedEvents(t, dao, 10)

	n, err := dao.Count(ctx, "WHERE id < ?", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = dao.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	// COUNT(t.*) 是 ClickHouse 语法，SQLite 不支持，这里只检查错误类型
	_, err = dao.CountSQL(ctx, "SELECT id FROM events")
	var se *SQLExecutionError
	assert.ErrorAs(t, err, &se)

	_, err = dao.Count(ctx, "WHERE id < ?")
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "placeholders")
}

func TestDAO_PageAndPaginate(t *testing.T) {
	dao, _ := openEventsDAO(t)
	seedEvents(t, dao, 25)

	list, err := dao.Page(ctx, 20, 10, "ORDER BY id")
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, int64(20), list[0].ID)

	page, err := dao.Paginate(ctx, 2, 10, "WHERE id >= ? ORDER BY id DESC", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), page.TotalRow)
	assert.Equal(t, 2, page.TotalPage)
	require.Len(t, page.List, 10)
	assert.Equal(t, int64(14), page.List[0].ID)
	assert.True(t, page.IsLastPage())

	beyond, err := dao.Paginate(ctx, 9, 10, "")
	require.NoError(t, err)
	assert.Empty(t, beyond.List)
	assert.Equal(t, int64(25), beyond.TotalRow)

	defaults, err := dao.Paginate(ctx, 0, 0, "ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, defaults.PageNumber)
	assert.Len(t, defaults.List, DefaultPageSize)
}

func TestDAO_RoundTripTypes(t *testing.T) {
	dao, _ := openEventsDAO(t)
	at := time.Date(2024, 2, 29, 23, 59, 58, 123000000, time.UTC)
	in := &testEvent{
		ID:    9,
		Name:  "leap",
		Day:   Date{Year: 2024, Month: time.February, Day: 29},
		At:    at,
		Price: decimal.RequireFromString("1234.5678"),
		Note:  strPtr("n"),
	}
	_, err := dao.BatchInsert(ctx, []*testEvent{in})
	require.NoError(t, err)

	out, err := dao.SelectOne(ctx, "SELECT * FROM events WHERE id = ?", int64(9))
	require.NoError(t, err)
	assert.Equal(t, in.Day, out.Day)
	assert.True(t, at.Equal(out.At), "%v != %v", at, out.At)
	assert.True(t, in.Price.Equal(out.Price), "%v != %v", in.Price, out.Price)
	assert.Equal(t, "n", *out.Note)
	assert.Empty(t, out.Ignored)
}

func TestDAO_SelectListAsMaps(t *testing.T) {
	dao, _ := openEventsDAO(t)
	seedEvents(t, dao, 3)

	rows, err := dao.SelectListAsMaps(ctx, "SELECT name, id, note FROM events ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "id", "note"}, rows[0].Keys())
	assert.Equal(t, int64(2), rows[2].GetInt64("ID"))
	assert.Nil(t, rows[0].Get("note"))

	_, err = dao.DB().SelectFirstAsMap(ctx, "SELECT * FROM events WHERE id > 100")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestDAO_Stream(t *testing.T) {
	dao, _ := openEventsDAO(t)
	seedEvents(t, dao, 10)

	seq := dao.Stream(ctx, "SELECT id, name FROM events ORDER BY id")
	var ids []int64
	for e, err := range seq {
		require.NoError(t, err)
		ids = append(ids, e.ID)
		if len(ids) == 3 {
			break
		}
	}
	assert.Equal(t, []int64{0, 1, 2}, ids)

	for _, err := range seq {
		assert.ErrorIs(t, err, ErrSequenceConsumed)
	}

	// 提前退出后游标已关闭，连接仍可使用
	n, err := dao.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	for _, err := range dao.Stream(ctx, "SELECT * FROM missing_table") {
		var se *SQLExecutionError
		assert.ErrorAs(t, err, &se)
	}
}

type badNameEvent struct {
	ID   int64 `column:"id,pk"`
	Name int64 `column:"name"`
}

func (badNameEvent) TableName() string { return "events" }

func TestDAO_MappingError(t *testing.T) {
	dao, _ := openEventsDAO(t)
	seedEvents(t, dao, 1)

	bad, err := NewDAOWithDB[badNameEvent](dao.DB())
	require.NoError(t, err)
	_, err = bad.SelectList(ctx, "SELECT * FROM events")
	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "name", me.Column)
	assert.Equal(t, "Name", me.Field)
}

func TestDAO_Mutations(t *testing.T) {
	dao, _ := openEventsDAO(t)
	seedEvents(t, dao, 3)

	// ALTER TABLE ... UPDATE/DELETE 是 ClickHouse 的语法，SQLite 报语法错误
	_, err := dao.UpdateByKey(ctx, &testEvent{ID: 1, Name: "x"})
	var se *SQLExecutionError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.SQL, "ALTER TABLE events UPDATE")
	assert.Len(t, se.Args, 6)

	_, err = dao.DeleteByKey(ctx, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []interface{}{int32(1)}, se.Args)

	affected, err := dao.UpdateBySQL(ctx, "UPDATE events SET name = ? WHERE id > ?", "renamed", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = dao.DeleteBySQL(ctx, "DELETE FROM events WHERE name = ?", "renamed")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = dao.Execute(ctx, "DELETE FROM events")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestDAO_NoPrimaryKey(t *testing.T) {
	db, _ := openTestDB(t)
	dao, err := NewDAOWithDB[noPKRecord](db)
	require.NoError(t, err)

	_, err = dao.DeleteByKey(ctx, 1)
	assert.True(t, errors.Is(err, ErrNoPrimaryKey))
}

func TestNewDAO(t *testing.T) {
	_, pool := openTestDB(t)
	_, err := pool.Exec(eventsDDL)
	require.NoError(t, err)

	dao, err := NewDAO[testEvent](pool, nil, WithName("events-db"), WithBatchSize(100))
	require.NoError(t, err)
	defer dao.Close()
	assert.Equal(t, "events-db", dao.DB().Name())
	assert.Equal(t, 100, dao.DB().Config().BatchSize)
	assert.Equal(t, "events", dao.Descriptor().Table)

	_, err = NewDAO[noTableRecord](pool, nil)
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

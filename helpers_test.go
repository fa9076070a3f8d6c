package ckorm

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	ID      int64           `column:"id,pk"`
	Name    string          `column:"name"`
	Day     Date            `column:"day"`
	At      time.Time       `column:"at"`
	Price   decimal.Decimal `column:"price"`
	Note    *string         `column:"note"`
	Ignored string
}

func (testEvent) TableName() string { return "events" }

const eventsDDL = `CREATE TABLE events (
	id    INTEGER,
	name  TEXT,
	day   DATE,
	at    DATETIME,
	price DECIMAL(18,4),
	note  TEXT
)`

// openTestDB opens a file backed SQLite database; ":memory:" would give every
// pooled connection its own empty database.
func openTestDB(t *testing.T, opts ...Option) (*DB, *sql.DB) {
	t.Helper()
	pool, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	db := NewDB(pool, &Config{Name: "test"}, opts...)
	t.Cleanup(func() { _ = db.Close() })
	return db, pool
}

func openEventsDAO(t *testing.T, opts ...Option) (*DAO[testEvent], *sql.DB) {
	t.Helper()
	db, pool := openTestDB(t, opts...)
	_, err := pool.Exec(eventsDDL)
	require.NoError(t, err)

	dao, err := NewDAOWithDB[testEvent](db)
	require.NoError(t, err)
	return dao, pool
}

func makeEvents(n int) []*testEvent {
	out := make([]*testEvent, n)
	base := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)
	for i := range out {
		out[i] = &testEvent{
			ID:    int64(i),
			Name:  "event",
			Day:   DateOf(base.AddDate(0, 0, i%28)),
			At:    base.Add(time.Duration(i) * time.Minute),
			Price: decimal.New(int64(i), -2),
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

var ctx = context.Background()

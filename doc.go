/*
Package ckorm is a data-access kernel for ClickHouse.

It maps tagged Go structs to tables, builds SQL for point updates and deletes
(ClickHouse mutations), counts, paged selects and batch inserts, binds every
leaf value as a positional parameter and coerces values to the column types a
table actually has.

Key Features:
  - Entity metadata: TableName() plus `column:"name"` / `column:"name,pk"` tags, parsed once per type.
  - Mutations: UpdateByKey / DeleteByKey emit ALTER TABLE ... UPDATE / DELETE.
  - Batch insert: columns are probed once per call, values coerced to DateTime / Date / Decimal, flushed every 2000 rows.
  - Lazy result mapping with iter.Seq2, or ordered Row maps.
  - One held connection per DB, re-acquired when the driver reports it bad, with an LRU statement cache
    and an optional health check (WithHealthCheck).
  - Entity generation from a live table: DB.GenerateEntityFile, or `ckorm gen <table>`.

Basic Usage:

	import (
		"github.com/zzguang83325/ckorm"
		_ "github.com/zzguang83325/ckorm/drivers/clickhouse"
	)

	type Event struct {
		ID    uint64          `column:"id,pk"`
		Day   ckorm.Date      `column:"day"`
		Price decimal.Decimal `column:"price"`
	}

	func (Event) TableName() string { return "events" }

	db, err := ckorm.Open(ckorm.NewConfig(ckorm.ClickHouse, "clickhouse://localhost:9000/default"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	events, _ := ckorm.NewDAOWithDB[Event](db)
	res, err := events.BatchInsert(ctx, batch)
	page, err := events.Paginate(ctx, 1, 20, "WHERE day = ? ORDER BY id", "2024-01-01")
*/
package ckorm

// Package database owns the Postgres stock ledger: one row per item event,
// plus a materialized view with per-day totals for the stock dashboard.
package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"go-catalog-search/internal/metrics"
	"go-catalog-search/internal/models"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
)

// Operation timeouts.
// These cap how long a single DB call can hold a connection or wait on a lock,
// and are tighter than the HTTP WriteTimeout so a handler can still answer 500.
const (
	readTimeout    = 5 * time.Second
	writeTimeout   = 5 * time.Second
	migrateTimeout = 30 * time.Second
	refreshTimeout = 5 * time.Minute // REFRESH MATERIALIZED VIEW can be slow
)

// reportDays is how many days the stock dashboard returns.
const reportDays = 30

// schema is applied by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_movements (
		event_id    UUID PRIMARY KEY,
		item_id     TEXT        NOT NULL,
		kind        TEXT        NOT NULL,
		delta       INTEGER     NOT NULL,
		total_after INTEGER     NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS stock_movements_occurred_at_idx ON stock_movements (occurred_at)`,
	`CREATE MATERIALIZED VIEW IF NOT EXISTS daily_stock_mv AS
		SELECT date_trunc('day', occurred_at)::date                      AS movement_date,
		       COALESCE(SUM(delta) FILTER (WHERE delta > 0), 0)          AS units_added,
		       COALESCE(-SUM(delta) FILTER (WHERE delta < 0), 0)         AS units_removed,
		       COUNT(*) FILTER (WHERE kind = 'created')                  AS items_created,
		       COUNT(*) FILTER (WHERE kind = 'deleted')                  AS items_deleted
		FROM stock_movements
		GROUP BY 1`,
	// REFRESH ... CONCURRENTLY requires a unique index on the view.
	`CREATE UNIQUE INDEX IF NOT EXISTS daily_stock_mv_date_idx ON daily_stock_mv (movement_date)`,
}

type DB struct {
	Conn *sql.DB
}

// Connect opens and verifies a Postgres connection.
func Connect(connStr string) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	slog.Info("postgres connected")
	return &DB{Conn: conn}, nil
}

// Migrate creates the ledger table and the dashboard view when missing.
func (db *DB) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.Conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertMovementIdempotent records one item event by its pre-assigned UUID.
// ON CONFLICT DO NOTHING makes retries safe: replaying the same message
// from RabbitMQ will not create duplicate rows.
func (db *DB) InsertMovementIdempotent(ctx context.Context, e models.ItemEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.DBQueryDuration.WithLabelValues("insert_movement"))
	defer timer.ObserveDuration()

	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO stock_movements (event_id, item_id, kind, delta, total_after, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.ItemID, string(e.Kind), e.Delta, e.TotalAfter, e.OccurredAt,
	)
	return err
}

// GetStockReport queries the daily_stock_mv materialized view, newest day first.
func (db *DB) GetStockReport(ctx context.Context) ([]models.StockDay, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.DBQueryDuration.WithLabelValues("read_stock_report"))
	defer timer.ObserveDuration()

	rows, err := db.Conn.QueryContext(ctx,
		`SELECT to_char(movement_date, 'YYYY-MM-DD'), units_added, units_removed, items_created, items_deleted
		 FROM daily_stock_mv ORDER BY movement_date DESC LIMIT $1`,
		reportDays,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := []models.StockDay{}
	for rows.Next() {
		var d models.StockDay
		if err := rows.Scan(&d.Date, &d.UnitsAdded, &d.UnitsRemoved, &d.ItemsCreated, &d.ItemsDeleted); err != nil {
			slog.Error("scan failed", "op", "get_stock_report", "error", err)
			continue
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// RefreshMaterializedView triggers REFRESH MATERIALIZED VIEW CONCURRENTLY.
// Reads are not blocked while it runs. It gets its own long timeout so an
// admin trigger does not race against the server's WriteTimeout.
func (db *DB) RefreshMaterializedView(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.DBQueryDuration.WithLabelValues("refresh_mv"))
	defer timer.ObserveDuration()

	_, err := db.Conn.ExecContext(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY daily_stock_mv")
	return err
}

// Package store keeps transit schedules in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"transit_router/pkg/logging"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stops (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	lat        DOUBLE PRECISION NOT NULL,
	lon        DOUBLE PRECISION NOT NULL,
	link_id    TEXT NOT NULL DEFAULT '',
	attributes JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS lines (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS routes (
	line_id TEXT NOT NULL REFERENCES lines(id) ON DELETE CASCADE,
	id      TEXT NOT NULL,
	mode    TEXT NOT NULL,
	PRIMARY KEY (line_id, id)
);
CREATE TABLE IF NOT EXISTS route_stops (
	line_id          TEXT NOT NULL,
	route_id         TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	stop_id          TEXT NOT NULL REFERENCES stops(id),
	arrival_offset   DOUBLE PRECISION,
	departure_offset DOUBLE PRECISION,
	PRIMARY KEY (line_id, route_id, seq),
	FOREIGN KEY (line_id, route_id) REFERENCES routes(line_id, id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS departures (
	line_id  TEXT NOT NULL,
	route_id TEXT NOT NULL,
	id       TEXT NOT NULL,
	time     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (line_id, route_id, id),
	FOREIGN KEY (line_id, route_id) REFERENCES routes(line_id, id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS minimal_transfer_times (
	from_stop_id TEXT NOT NULL REFERENCES stops(id),
	to_stop_id   TEXT NOT NULL REFERENCES stops(id),
	seconds      DOUBLE PRECISION NOT NULL CHECK (seconds >= 0),
	PRIMARY KEY (from_stop_id, to_stop_id)
);
`

// Postgres reads and writes schedules through a connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool and pings the database.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// EnsureSchema creates the schedule tables when they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadSchedule reads all schedule tables and assembles a validated schedule.
func (p *Postgres) LoadSchedule(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	var t tables
	var err error

	if t.stops, err = queryRows(ctx, p.pool, `SELECT id, name, lat, lon, link_id, attributes FROM stops ORDER BY id`,
		func(r pgx.Rows) (s stopRow, err error) {
			err = r.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.LinkID, &s.Attributes)
			return s, err
		}); err != nil {
		return nil, fmt.Errorf("failed to load stops: %w", err)
	}
	if t.lines, err = queryRows(ctx, p.pool, `SELECT id, name FROM lines ORDER BY id`,
		func(r pgx.Rows) (l lineRow, err error) {
			err = r.Scan(&l.ID, &l.Name)
			return l, err
		}); err != nil {
		return nil, fmt.Errorf("failed to load lines: %w", err)
	}
	if t.routes, err = queryRows(ctx, p.pool, `SELECT line_id, id, mode FROM routes ORDER BY line_id, id`,
		func(r pgx.Rows) (rt routeRow, err error) {
			err = r.Scan(&rt.LineID, &rt.ID, &rt.Mode)
			return rt, err
		}); err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	if t.routeStops, err = queryRows(ctx, p.pool, `
		SELECT line_id, route_id, seq, stop_id, arrival_offset, departure_offset
		FROM route_stops
		ORDER BY line_id, route_id, seq`,
		func(r pgx.Rows) (rs routeStopRow, err error) {
			err = r.Scan(&rs.LineID, &rs.RouteID, &rs.Seq, &rs.StopID, &rs.Arrival, &rs.Departure)
			return rs, err
		}); err != nil {
		return nil, fmt.Errorf("failed to load route stops: %w", err)
	}
	if t.departures, err = queryRows(ctx, p.pool, `SELECT line_id, route_id, id, time FROM departures ORDER BY line_id, route_id, time`,
		func(r pgx.Rows) (d departureRow, err error) {
			err = r.Scan(&d.LineID, &d.RouteID, &d.ID, &d.Time)
			return d, err
		}); err != nil {
		return nil, fmt.Errorf("failed to load departures: %w", err)
	}
	if t.transfers, err = queryRows(ctx, p.pool, `SELECT from_stop_id, to_stop_id, seconds FROM minimal_transfer_times`,
		func(r pgx.Rows) (tr transferRow, err error) {
			err = r.Scan(&tr.FromStopID, &tr.ToStopID, &tr.Seconds)
			return tr, err
		}); err != nil {
		return nil, fmt.Errorf("failed to load minimal transfer times: %w", err)
	}

	ds, err := assemble(t)
	if err != nil {
		return nil, err
	}
	logging.LogOperation(p.logger, "schedule loaded",
		slog.Int("stops", len(t.stops)),
		slog.Int("routes", len(t.routes)),
		slog.Int("departures", len(t.departures)),
		slog.Duration("duration", time.Since(start)),
	)
	return ds, nil
}

// SaveSchedule replaces the content of the schedule tables in one transaction.
func (p *Postgres) SaveSchedule(ctx context.Context, ds *Dataset) error {
	t := flatten(ds)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE minimal_transfer_times, departures, route_stops, routes, lines, stops`); err != nil {
		return fmt.Errorf("failed to clear schedule tables: %w", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"stops", []string{"id", "name", "lat", "lon", "link_id", "attributes"}, stopValues(t.stops)},
		{"lines", []string{"id", "name"}, lineValues(t.lines)},
		{"routes", []string{"line_id", "id", "mode"}, routeValues(t.routes)},
		{"route_stops", []string{"line_id", "route_id", "seq", "stop_id", "arrival_offset", "departure_offset"}, routeStopValues(t.routeStops)},
		{"departures", []string{"line_id", "route_id", "id", "time"}, departureValues(t.departures)},
		{"minimal_transfer_times", []string{"from_stop_id", "to_stop_id", "seconds"}, transferValues(t.transfers)},
	}
	for _, c := range copies {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", c.table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schedule: %w", err)
	}
	logging.LogOperation(p.logger, "schedule saved",
		slog.Int("stops", len(t.stops)),
		slog.Int("routes", len(t.routes)),
		slog.Int("departures", len(t.departures)),
	)
	return nil
}

func queryRows[T any](ctx context.Context, pool *pgxpool.Pool, sql string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func stopValues(rows []stopRow) [][]any {
	out := make([][]any, len(rows))
	for i, s := range rows {
		attrs := s.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		out[i] = []any{s.ID, s.Name, s.Lat, s.Lon, s.LinkID, attrs}
	}
	return out
}

func lineValues(rows []lineRow) [][]any {
	out := make([][]any, len(rows))
	for i, l := range rows {
		out[i] = []any{l.ID, l.Name}
	}
	return out
}

func routeValues(rows []routeRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.LineID, r.ID, r.Mode}
	}
	return out
}

func routeStopValues(rows []routeStopRow) [][]any {
	out := make([][]any, len(rows))
	for i, rs := range rows {
		out[i] = []any{rs.LineID, rs.RouteID, int32(rs.Seq), rs.StopID, rs.Arrival, rs.Departure}
	}
	return out
}

func departureValues(rows []departureRow) [][]any {
	out := make([][]any, len(rows))
	for i, d := range rows {
		out[i] = []any{d.LineID, d.RouteID, d.ID, d.Time}
	}
	return out
}

func transferValues(rows []transferRow) [][]any {
	out := make([][]any, len(rows))
	for i, tr := range rows {
		out[i] = []any{tr.FromStopID, tr.ToStopID, tr.Seconds}
	}
	return out
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"optiroute/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		x    DOUBLE PRECISION NOT NULL DEFAULT 0,
		y    DOUBLE PRECISION NOT NULL DEFAULT 0,
		type TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS city_map (
		id         INT PRIMARY KEY CHECK (id = 1),
		graph      JSONB,
		edges      JSONB,
		undirected BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		seq          BIGSERIAL,
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		location     TEXT NOT NULL,
		tw_start     DOUBLE PRECISION,
		tw_end       DOUBLE PRECISION,
		priority     TEXT NOT NULL,
		load         DOUBLE PRECISION NOT NULL DEFAULT 0,
		profit       DOUBLE PRECISION NOT NULL DEFAULT 0,
		service_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		required     BOOLEAN NOT NULL DEFAULT FALSE,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id            UUID PRIMARY KEY,
		algorithm     TEXT NOT NULL,
		total_cost    DOUBLE PRECISION NOT NULL,
		deliveries    INT NOT NULL,
		capacity_used DOUBLE PRECISION NOT NULL,
		feasible      BOOLEAN NOT NULL,
		exact         BOOLEAN NOT NULL,
		stops         JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS routes_created_at_idx ON routes (created_at DESC)`,
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) ListLocations(ctx context.Context) ([]model.Location, error) {
	return listLocations(ctx, p.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listLocations(ctx context.Context, q querier) ([]model.Location, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, x, y, type FROM locations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Location{}
	for rows.Next() {
		var l model.Location
		var typ sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Coordinates.X, &l.Coordinates.Y, &typ); err != nil {
			return nil, err
		}
		l.Type = typ.String
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) UpsertLocation(ctx context.Context, l model.Location) (model.Location, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO locations (id, name, x, y, type) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, x=EXCLUDED.x, y=EXCLUDED.y, type=EXCLUDED.type`,
		l.ID, l.Name, l.Coordinates.X, l.Coordinates.Y, nullIfEmpty(l.Type))
	return l, err
}

func (p *Postgres) DeleteLocation(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM locations WHERE id=$1`, id)
	return affected(res, err)
}

const deliveryCols = `id, name, location, tw_start, tw_end, priority, load, profit, service_time, required, status`

type scanner interface{ Scan(dest ...any) error }

func scanDelivery(s scanner) (model.Delivery, error) {
	var d model.Delivery
	var start, end sql.NullFloat64
	if err := s.Scan(&d.ID, &d.Name, &d.Location, &start, &end, &d.Priority, &d.Load, &d.Profit, &d.ServiceTime, &d.Required, &d.Status); err != nil {
		return d, err
	}
	d.TimeWindow = windowFrom(start, end)
	return d, nil
}

func (p *Postgres) ListDeliveries(ctx context.Context, status string) ([]model.Delivery, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT `+deliveryCols+` FROM deliveries WHERE status=$1 ORDER BY seq`, status)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT `+deliveryCols+` FROM deliveries ORDER BY seq`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) GetDelivery(ctx context.Context, id string) (model.Delivery, error) {
	d, err := scanDelivery(p.db.QueryRowContext(ctx, `SELECT `+deliveryCols+` FROM deliveries WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

func deliveryArgs(d model.Delivery) []any {
	start, end := windowArgs(d.TimeWindow)
	return []any{d.ID, d.Name, d.Location, start, end, d.Priority, d.Load, d.Profit, d.ServiceTime, d.Required, d.Status}
}

func (p *Postgres) CreateDelivery(ctx context.Context, d model.Delivery) (model.Delivery, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d = withDefaults(d)
	res, err := p.db.ExecContext(ctx, `INSERT INTO deliveries (`+deliveryCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING`, deliveryArgs(d)...)
	if err != nil {
		return model.Delivery{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Delivery{}, fmt.Errorf("delivery %s: %w", d.ID, ErrConflict)
	}
	return d, nil
}

func (p *Postgres) UpdateDelivery(ctx context.Context, id string, patch model.DeliveryPatch) (model.Delivery, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Delivery{}, err
	}
	defer func() { _ = tx.Rollback() }()

	d, err := scanDelivery(tx.QueryRowContext(ctx, `SELECT `+deliveryCols+` FROM deliveries WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Delivery{}, ErrNotFound
	}
	if err != nil {
		return model.Delivery{}, err
	}
	d = ApplyPatch(d, patch)
	if _, err := tx.ExecContext(ctx, `UPDATE deliveries SET name=$2, location=$3, tw_start=$4, tw_end=$5, priority=$6,
		load=$7, profit=$8, service_time=$9, required=$10, status=$11 WHERE id=$1`, deliveryArgs(d)...); err != nil {
		return model.Delivery{}, err
	}
	return d, tx.Commit()
}

func (p *Postgres) DeleteDelivery(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM deliveries WHERE id=$1`, id)
	return affected(res, err)
}

func (p *Postgres) SaveDeliveries(ctx context.Context, ds []model.Delivery) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	saved := 0
	for _, d := range ds {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		d = withDefaults(d)
		if _, err := tx.ExecContext(ctx, `INSERT INTO deliveries (`+deliveryCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, location=EXCLUDED.location, tw_start=EXCLUDED.tw_start,
			tw_end=EXCLUDED.tw_end, priority=EXCLUDED.priority, load=EXCLUDED.load, profit=EXCLUDED.profit,
			service_time=EXCLUDED.service_time, required=EXCLUDED.required, status=EXCLUDED.status`, deliveryArgs(d)...); err != nil {
			return 0, err
		}
		saved++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

func (p *Postgres) CityMap(ctx context.Context) (model.CityMap, error) {
	var cm model.CityMap
	var graph, edges []byte
	err := p.db.QueryRowContext(ctx, `SELECT graph, edges, undirected FROM city_map WHERE id=1`).Scan(&graph, &edges, &cm.Undirected)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return cm, err
	}
	if len(graph) > 0 {
		if err := json.Unmarshal(graph, &cm.Graph); err != nil {
			return cm, fmt.Errorf("decode city map graph: %w", err)
		}
	}
	if len(edges) > 0 {
		if err := json.Unmarshal(edges, &cm.Edges); err != nil {
			return cm, fmt.Errorf("decode city map edges: %w", err)
		}
	}
	if cm.Locations, err = p.ListLocations(ctx); err != nil {
		return cm, err
	}
	return cm, nil
}

// SaveCityMap replaces every location and connection in one transaction.
func (p *Postgres) SaveCityMap(ctx context.Context, cm model.CityMap) error {
	graph, err := jsonArg(cm.Graph)
	if err != nil {
		return err
	}
	edges, err := jsonArg(cm.Edges)
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM locations`); err != nil {
		return err
	}
	for _, l := range cm.Locations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO locations (id, name, x, y, type) VALUES ($1,$2,$3,$4,$5)`,
			l.ID, l.Name, l.Coordinates.X, l.Coordinates.Y, nullIfEmpty(l.Type)); err != nil {
			return fmt.Errorf("location %s: %w", l.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO city_map (id, graph, edges, undirected, updated_at) VALUES (1, $1::jsonb, $2::jsonb, $3, now())
		ON CONFLICT (id) DO UPDATE SET graph=EXCLUDED.graph, edges=EXCLUDED.edges, undirected=EXCLUDED.undirected, updated_at=now()`,
		graph, edges, cm.Undirected); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) SaveRoute(ctx context.Context, r model.RouteRecord) (model.RouteRecord, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	stops, err := json.Marshal(r.Stops)
	if err != nil {
		return r, err
	}
	err = p.db.QueryRowContext(ctx, `INSERT INTO routes (id, algorithm, total_cost, deliveries, capacity_used, feasible, exact, stops)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb) RETURNING created_at`,
		r.ID, r.Algorithm, r.TotalCost, r.Deliveries, r.CapacityUsed, r.Feasible, r.Exact, string(stops)).Scan(&r.CreatedAt)
	return r, err
}

func (p *Postgres) RouteHistory(ctx context.Context, limit int) ([]model.RouteRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, algorithm, total_cost, deliveries, capacity_used, feasible, exact, stops, created_at
		FROM routes ORDER BY created_at DESC LIMIT $1`, historyLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RouteRecord{}
	for rows.Next() {
		var r model.RouteRecord
		var stops []byte
		if err := rows.Scan(&r.ID, &r.Algorithm, &r.TotalCost, &r.Deliveries, &r.CapacityUsed, &r.Feasible, &r.Exact, &stops, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stops, &r.Stops); err != nil {
			return nil, fmt.Errorf("decode route %s stops: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// windowArgs splits an optional time window into nullable columns.
func windowArgs(tw *model.TimeWindow) (start, end any) {
	if tw == nil {
		return nil, nil
	}
	return tw.Start, tw.End
}

func windowFrom(start, end sql.NullFloat64) *model.TimeWindow {
	if !start.Valid || !end.Valid {
		return nil
	}
	return &model.TimeWindow{Start: start.Float64, End: end.Float64}
}

// jsonArg encodes v for a JSONB parameter; nil maps and slices become NULL.
func jsonArg[T any](v T) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

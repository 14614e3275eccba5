package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/eventops/os-indexer/internal/core/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *OrderRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS service_orders (
	id TEXT PRIMARY KEY,
	order_number TEXT NOT NULL,
	version INTEGER NOT NULL CHECK (version >= 1),
	client TEXT NOT NULL,
	event TEXT NOT NULL,
	event_date DATE,
	is_revision BOOLEAN NOT NULL DEFAULT FALSE,
	file_path TEXT NOT NULL UNIQUE,
	relative_path TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	previous_version_id TEXT REFERENCES service_orders(id),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (order_number, version)
);

CREATE INDEX IF NOT EXISTS idx_service_orders_order_number ON service_orders(order_number, version DESC);
CREATE INDEX IF NOT EXISTS idx_service_orders_file_name ON service_orders(file_name);
CREATE INDEX IF NOT EXISTS idx_service_orders_active ON service_orders(is_active);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const orderColumns = `id, order_number, version, client, event, event_date, is_revision,
file_path, relative_path, file_name, content_hash, is_active, previous_version_id, created_at, updated_at`

func (r *OrderRepository) FindByFilename(ctx context.Context, filename string) (*domain.ServiceOrder, error) {
	return r.findOne(ctx, `
SELECT `+orderColumns+`
FROM service_orders
WHERE file_name = $1
ORDER BY version DESC
LIMIT 1
`, filename)
}

func (r *OrderRepository) FindByHash(ctx context.Context, contentHash string) (*domain.ServiceOrder, error) {
	return r.findOne(ctx, `
SELECT `+orderColumns+`
FROM service_orders
WHERE content_hash = $1
`, contentHash)
}

func (r *OrderRepository) FindByPath(ctx context.Context, filePath string) (*domain.ServiceOrder, error) {
	return r.findOne(ctx, `
SELECT `+orderColumns+`
FROM service_orders
WHERE file_path = $1
`, filePath)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, arg any) (*domain.ServiceOrder, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan service order: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) ListVersions(ctx context.Context, orderNumber string) ([]*domain.ServiceOrder, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+`
FROM service_orders
WHERE order_number = $1
ORDER BY version DESC
`, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *OrderRepository) ListFilenames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT file_name FROM service_orders`)
	if err != nil {
		return nil, fmt.Errorf("query filenames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *OrderRepository) ListOrders(ctx context.Context, onlyActive bool) ([]*domain.ServiceOrder, error) {
	query := `
SELECT ` + orderColumns + `
FROM service_orders
`
	if onlyActive {
		query += "WHERE is_active\n"
	}
	query += "ORDER BY order_number, version"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.ServiceOrder) error {
	if _, err := r.db.ExecContext(ctx, insertOrderSQL, insertOrderArgs(order)...); err != nil {
		return fmt.Errorf("insert service order: %w", err)
	}
	return nil
}

// CreateRevision deactivates every existing record for the same order
// number and inserts the new active record in one transaction, so there
// is never a window with two active versions.
func (r *OrderRepository) CreateRevision(ctx context.Context, order *domain.ServiceOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revision tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE service_orders
SET is_active = FALSE, updated_at = $2
WHERE order_number = $1
`, order.OrderNumber, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate prior versions: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertOrderSQL, insertOrderArgs(order)...); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision tx: %w", err)
	}
	return nil
}

const insertOrderSQL = `
INSERT INTO service_orders (
	id, order_number, version, client, event, event_date, is_revision,
	file_path, relative_path, file_name, content_hash, is_active, previous_version_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`

func insertOrderArgs(o *domain.ServiceOrder) []any {
	return []any{
		o.ID, o.OrderNumber, o.Version, o.Client, o.Event, o.EventDate, o.IsRevision,
		o.FilePath, o.RelativePath, o.FileName, o.ContentHash, o.IsActive, o.PreviousVersionID,
		o.CreatedAt, o.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.ServiceOrder, error) {
	var o domain.ServiceOrder
	var eventDate sql.NullTime
	var previousID sql.NullString

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Version, &o.Client, &o.Event, &eventDate, &o.IsRevision,
		&o.FilePath, &o.RelativePath, &o.FileName, &o.ContentHash, &o.IsActive, &previousID,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if eventDate.Valid {
		t := eventDate.Time
		o.EventDate = &t
	}
	if previousID.Valid {
		s := previousID.String
		o.PreviousVersionID = &s
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]*domain.ServiceOrder, error) {
	var out []*domain.ServiceOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SQLite-backed OrderStore for single-writer, single-machine deployments.
//
// WAL mode is enabled on Open so readers never block the writer. Every
// multi-row operation (create with items, delete, clear) runs inside one
// transaction, so a crash mid-write never leaves an order with partial line
// items.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"

	// Pure-Go SQLite driver; avoids CGO so the binary stays trivially
	// cross-compilable.
	_ "modernc.org/sqlite"
)

// schema is the DDL applied once on Open. Money columns are TEXT holding
// exact decimal strings: REAL would round-trip through binary floating point
// and drift at the cent level.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id             TEXT PRIMARY KEY,
    customer_id          TEXT NOT NULL,
    customer_name        TEXT NOT NULL,
    total_price          TEXT NOT NULL,
    status               TEXT NOT NULL,
    created_at           TEXT NOT NULL,
    updated_at           TEXT NOT NULL,
    estimated_ready_time TEXT,
    conversation_id      TEXT,
    metadata             TEXT
);

CREATE TABLE IF NOT EXISTS order_items (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id   TEXT    NOT NULL REFERENCES orders(order_id),
    item_name  TEXT    NOT NULL,
    quantity   INTEGER NOT NULL,
    unit_price TEXT    NOT NULL,
    subtotal   TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_id   ON orders(customer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_customer_name ON orders(customer_name, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status        ON orders(status, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_created_at    ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
`

// orderColumns is the select list shared by every order read.
const orderColumns = `order_id, customer_id, customer_name, total_price, status,
       created_at, updated_at, estimated_ready_time, conversation_id, metadata`

// SQLiteOrderStore implements OrderStore against a local transactional file.
type SQLiteOrderStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
//
//	st, err := store.OpenSQLite("./data/orders.db")
func OpenSQLite(path string) (*SQLiteOrderStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite open %q: %v", ErrUnavailable, path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: sqlite apply schema: %v", ErrUnavailable, err)
	}

	return &SQLiteOrderStore{db: db}, nil
}

func (s *SQLiteOrderStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteOrderStore) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := prepareForCreate(o); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create %q: %w", o.OrderID, err)
	}
	defer tx.Rollback()

	// The pre-check is race-free: the connection pool holds a single
	// connection and the insert happens in the same transaction.
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE order_id = ?`, o.OrderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: check %q: %w", o.OrderID, err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	metadata, err := marshalMetadata(o.Metadata)
	if err != nil {
		return fmt.Errorf("%w: metadata: %s", ErrInvalidOrder, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
			(order_id, customer_id, customer_name, total_price, status,
			 created_at, updated_at, estimated_ready_time, conversation_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID,
		o.CustomerID,
		o.CustomerName,
		o.TotalPrice.String(),
		string(o.Status),
		formatStoredTime(o.CreatedAt),
		formatStoredTime(o.UpdatedAt),
		nullableTime(o.EstimatedReadyTime),
		nullableString(o.ConversationID),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert order %q: %w", o.OrderID, err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_name, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?)`,
			o.OrderID, item.ItemName, item.Quantity,
			item.UnitPrice.String(), item.Subtotal.String(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert item for %q: %w", o.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create %q: %w", o.OrderID, err)
	}
	return nil
}

func (s *SQLiteOrderStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID)

	o, err := scanOrderRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", orderID, err)
	}

	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *SQLiteOrderStore) GetCustomerOrders(ctx context.Context, customerName string, opts QueryOptions) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_name = ?`
	args := []any{customerName}
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, order_id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	return s.queryOrders(ctx, query, args...)
}

func (s *SQLiteOrderStore) GetCustomerLastOrder(ctx context.Context, customerID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE  customer_id = ?
		ORDER  BY created_at DESC, order_id ASC
		LIMIT  1`, customerID)

	o, err := scanOrderRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: last order for customer %q: %w", customerID, err)
	}

	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *SQLiteOrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s: %q", ErrInvalidOrder, order.ErrUndefinedStatus, status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		string(status), formatStoredTime(time.Now()), orderID)
	if err != nil {
		return fmt.Errorf("sqlite: update status of %q: %w", orderID, err)
	}
	return requireRow(res)
}

func (s *SQLiteOrderStore) UpdateOrderReadyTime(ctx context.Context, orderID string, readyAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET estimated_ready_time = ?, updated_at = ? WHERE order_id = ?`,
		formatStoredTime(readyAt), formatStoredTime(time.Now()), orderID)
	if err != nil {
		return fmt.Errorf("sqlite: update ready time of %q: %w", orderID, err)
	}
	return requireRow(res)
}

func (s *SQLiteOrderStore) GetOrdersByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = ? ORDER BY created_at DESC, order_id ASC`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryOrders(ctx, query, args...)
}

func (s *SQLiteOrderStore) DeleteOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin delete %q: %w", orderID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("sqlite: delete items of %q: %w", orderID, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %q: %w", orderID, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit delete %q: %w", orderID, err)
	}
	return nil
}

func (s *SQLiteOrderStore) ClearAllOrders(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin clear: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: count orders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items`); err != nil {
		return 0, fmt.Errorf("sqlite: clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return 0, fmt.Errorf("sqlite: clear orders: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit clear: %w", err)
	}
	return count, nil
}

func (s *SQLiteOrderStore) ListOrders(ctx context.Context) ([]order.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, order_id ASC`)
}

func (s *SQLiteOrderStore) FormatOrderSummary(ctx context.Context, orderID string) (string, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return o.Summary(), nil
}

// queryOrders runs a multi-order select and loads the items of every hit.
func (s *SQLiteOrderStore) queryOrders(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate orders: %w", err)
	}

	for i := range orders {
		if err := s.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *SQLiteOrderStore) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_name, quantity, unit_price, subtotal
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY id ASC`, o.OrderID)
	if err != nil {
		return fmt.Errorf("sqlite: load items of %q: %w", o.OrderID, err)
	}
	defer rows.Close()

	o.Items = nil
	for rows.Next() {
		var (
			item                   order.LineItem
			unitPriceStr, subtotal string
		)
		if err := rows.Scan(&item.ItemName, &item.Quantity, &unitPriceStr, &subtotal); err != nil {
			return fmt.Errorf("sqlite: scan item of %q: %w", o.OrderID, err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPriceStr); err != nil {
			return fmt.Errorf("sqlite: unit_price of %q: %w", o.OrderID, err)
		}
		if item.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return fmt.Errorf("sqlite: subtotal of %q: %w", o.OrderID, err)
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (*order.Order, error) {
	var (
		o                        order.Order
		totalPrice, status       string
		createdAt, updatedAt     string
		readyTime, convID, metad sql.NullString
	)
	err := row.Scan(
		&o.OrderID,
		&o.CustomerID,
		&o.CustomerName,
		&totalPrice,
		&status,
		&createdAt,
		&updatedAt,
		&readyTime,
		&convID,
		&metad,
	)
	if err != nil {
		return nil, err
	}

	if o.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
		return nil, fmt.Errorf("total_price: %w", err)
	}
	o.Status = order.Status(status)
	if o.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if o.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if readyTime.Valid {
		t, err := parseStoredTime(readyTime.String)
		if err != nil {
			return nil, fmt.Errorf("estimated_ready_time: %w", err)
		}
		o.EstimatedReadyTime = &t
	}
	o.ConversationID = convID.String
	if metad.Valid && metad.String != "" {
		if err := json.Unmarshal([]byte(metad.String), &o.Metadata); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
	}
	return &o, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// nullableString maps "" to NULL so optional columns stay clean.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatStoredTime(*t)
}

// marshalMetadata serializes the opaque metadata map, or NULL when absent.
func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

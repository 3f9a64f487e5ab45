package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
)

// Repository defines the interface for data access operations
type Repository interface {
	// Catalog operations
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeactivateProduct(ctx context.Context, id string) error

	// Order operations
	CreateOrder(ctx context.Context, order *models.Order, payment *models.Payment) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	ListOrders(ctx context.Context, status string, limit int) ([]models.Order, error)
	SettleOrder(ctx context.Context, s models.Settlement) (*models.SettlementResult, error)
	GetOrderStats(ctx context.Context) (*models.OrderStats, error)

	AuditStore

	// Initialize and close
	InitDB(databaseURI string) error
	Close() error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

// InitDB initializes the database connection, schema and seed data
func (r *PostgresRepository) InitDB(databaseURI string) error {
	db, err := sql.Open("pgx", databaseURI)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	r.db = db

	if err := r.createTables(); err != nil {
		db.Close()
		return err
	}

	if err := r.seed(context.Background()); err != nil {
		db.Close()
		return err
	}

	return nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(100) NOT NULL,
		uc_amount INTEGER NOT NULL,
		price NUMERIC(10, 2) NOT NULL,
		discount_price NUMERIC(10, 2) NOT NULL,
		discount_percent NUMERIC(5, 2) NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(36) PRIMARY KEY,
		product_id VARCHAR(36) NOT NULL REFERENCES products(id),
		product_title VARCHAR(100) NOT NULL,
		uc_amount INTEGER NOT NULL,
		amount NUMERIC(10, 2) NOT NULL,
		player_id VARCHAR(64) NOT NULL,
		player_name VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		payment_url TEXT NOT NULL DEFAULT '',
		paid_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(36) PRIMARY KEY,
		order_id VARCHAR(36) UNIQUE NOT NULL REFERENCES orders(id),
		provider VARCHAR(32) NOT NULL,
		provider_ref VARCHAR(64) NOT NULL,
		transaction_id VARCHAR(128),
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		amount NUMERIC(10, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		verified_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments(transaction_id) WHERE transaction_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS order_stats (
		id SMALLINT PRIMARY KEY,
		total_orders BIGINT NOT NULL DEFAULT 0,
		paid_orders BIGINT NOT NULL DEFAULT 0,
		pending_orders BIGINT NOT NULL DEFAULT 0,
		failed_orders BIGINT NOT NULL DEFAULT 0,
		total_revenue NUMERIC(14, 2) NOT NULL DEFAULT 0
	)`,
	`INSERT INTO order_stats (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id VARCHAR(36) PRIMARY KEY,
		action VARCHAR(64) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id VARCHAR(128) NOT NULL,
		actor VARCHAR(64) NOT NULL DEFAULT '',
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC)`,
}

// createTables creates the necessary tables if they don't exist
func (r *PostgresRepository) createTables() error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// seed inserts the initial catalog into an empty products table
func (r *PostgresRepository) seed(ctx context.Context) error {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, p := range SeedProducts(time.Now().UTC()) {
		_, err := r.db.ExecContext(
			ctx,
			`INSERT INTO products (id, title, uc_amount, price, discount_price, discount_percent, active, sort_order, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.ID, p.Title, p.UCAmount, p.Price, p.DiscountPrice, p.DiscountPercent, p.Active, p.SortOrder, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const productColumns = "id, title, uc_amount, price, discount_price, discount_percent, active, sort_order, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Title, &p.UCAmount, &p.Price, &p.DiscountPrice, &p.DiscountPercent,
		&p.Active, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Catalog repository methods
func (r *PostgresRepository) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products"
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY sort_order, created_at"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE products
		 SET title = $1, uc_amount = $2, price = $3, discount_price = $4, discount_percent = $5, active = $6,
		     sort_order = $7, updated_at = $8
		 WHERE id = $9`,
		p.Title, p.UCAmount, p.Price, p.DiscountPrice, p.DiscountPercent, p.Active, p.SortOrder, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, "product "+p.ID)
}

func (r *PostgresRepository) DeactivateProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "product "+id)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

// Order repository methods
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *models.Order, p *models.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO orders (id, product_id, product_title, uc_amount, amount, player_id, player_name, status, payment_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.ProductID, o.ProductTitle, o.UCAmount, o.Amount, o.PlayerID, o.PlayerName, o.Status, o.PaymentURL, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO payments (id, order_id, provider, provider_ref, status, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.OrderID, p.Provider, p.ProviderRef, p.Status, p.Amount, p.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE order_stats SET total_orders = total_orders + 1, pending_orders = pending_orders + 1 WHERE id = 1")
	if err != nil {
		return err
	}

	return tx.Commit()
}

const orderColumns = "id, product_id, product_title, uc_amount, amount, player_id, player_name, status, payment_url, paid_at, created_at, updated_at"

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var paidAt sql.NullTime
	err := row.Scan(&o.ID, &o.ProductID, &o.ProductTitle, &o.UCAmount, &o.Amount, &o.PlayerID, &o.PlayerName,
		&o.Status, &o.PaymentURL, &paidAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return o, nil
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepository) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	p := &models.Payment{}
	var txID sql.NullString
	var verifiedAt sql.NullTime
	err := r.db.QueryRowContext(
		ctx,
		`SELECT id, order_id, provider, provider_ref, transaction_id, status, amount, created_at, verified_at
		 FROM payments WHERE order_id = $1`,
		orderID,
	).Scan(&p.ID, &p.OrderID, &p.Provider, &p.ProviderRef, &txID, &p.Status, &p.Amount, &p.CreatedAt, &verifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.TransactionID = txID.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	return p, nil
}

func (r *PostgresRepository) ListOrders(ctx context.Context, status string, limit int) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// SettleOrder applies a callback outcome with a conditional update so that
// concurrent or repeated deliveries converge on a single transition. A
// transaction id that another delivery stored first surfaces as a unique
// violation and is reported as a duplicate.
func (r *PostgresRepository) SettleOrder(ctx context.Context, s models.Settlement) (*models.SettlementResult, error) {
	res, err := r.settleTx(ctx, s)
	if err == nil || !isUniqueViolation(err) {
		return res, err
	}

	order, err := r.GetOrder(ctx, s.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", s.OrderID, models.ErrNotFound)
	}
	return &models.SettlementResult{Order: order, Duplicate: true}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const uniqueViolation = "23505"

func (r *PostgresRepository) settleTx(ctx context.Context, s models.Settlement) (*models.SettlementResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var amount float64
	err = tx.QueryRowContext(ctx, "SELECT amount FROM orders WHERE id = $1", s.OrderID).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", s.OrderID, models.ErrNotFound)
		}
		return nil, err
	}

	replayed := false
	if s.TransactionID != "" {
		err = tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM payments WHERE transaction_id = $1)", s.TransactionID,
		).Scan(&replayed)
		if err != nil {
			return nil, err
		}
	}

	applied := false
	if !replayed {
		var paidAt interface{}
		if s.Status == models.StatusPaid {
			paidAt = s.SettledAt
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, paid_at = $2, updated_at = $3
			 WHERE id = $4 AND status = $5`,
			s.Status, paidAt, s.SettledAt, s.OrderID, models.StatusPending,
		)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		applied = n == 1
	}

	if applied {
		paymentStatus := models.PaymentFailed
		statsUpdate := "UPDATE order_stats SET pending_orders = pending_orders - 1, failed_orders = failed_orders + 1 WHERE id = 1"
		var statsArgs []interface{}
		if s.Status == models.StatusPaid {
			paymentStatus = models.PaymentSuccess
			statsUpdate = `UPDATE order_stats
				SET pending_orders = pending_orders - 1, paid_orders = paid_orders + 1, total_revenue = total_revenue + $1
				WHERE id = 1`
			statsArgs = append(statsArgs, amount)
		}

		var txID interface{}
		if s.TransactionID != "" {
			txID = s.TransactionID
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE payments SET status = $1, transaction_id = $2, verified_at = $3 WHERE order_id = $4",
			paymentStatus, txID, s.SettledAt, s.OrderID,
		)
		if err != nil {
			return nil, err
		}

		if _, err = tx.ExecContext(ctx, statsUpdate, statsArgs...); err != nil {
			return nil, err
		}
	}

	order, err := scanOrder(tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", s.OrderID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.SettlementResult{
		Order:     order,
		Applied:   applied,
		Duplicate: !applied && (replayed || order.Status == s.Status),
	}, nil
}

func (r *PostgresRepository) GetOrderStats(ctx context.Context) (*models.OrderStats, error) {
	stats := &models.OrderStats{}
	err := r.db.QueryRowContext(
		ctx,
		`SELECT total_orders, paid_orders, pending_orders, failed_orders, total_revenue
		 FROM order_stats WHERE id = 1`,
	).Scan(&stats.TotalOrders, &stats.PaidOrders, &stats.PendingOrders, &stats.FailedOrders, &stats.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

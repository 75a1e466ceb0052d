package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrItemInsert marks a failure while persisting order items; the whole
	// placement rolls back, so no order row survives it.
	ErrItemInsert = errors.New("order item insert failed")
	// ErrBadTransition marks an illegal status change request.
	ErrBadTransition = errors.New("illegal status transition")
)

// Shortage describes one cart line whose requested quantity exceeded the
// stock available at placement time.
type Shortage struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// StockConflictError is returned by Place when the transaction would drive
// any product's stock negative. Nothing is persisted when it is returned.
type StockConflictError struct {
	Shortages []Shortage
}

func (e *StockConflictError) Error() string {
	if len(e.Shortages) == 0 {
		return "insufficient stock"
	}
	s := e.Shortages[0]
	msg := fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		s.ProductName, s.Requested, s.Available)
	if len(e.Shortages) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Shortages)-1)
	}
	return msg
}

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Place(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, sellerID, orderID string, to Status) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Place persists an order, its items, and the matching stock decrements in a
// single transaction:
//
//   - insert the order row (status pending)
//   - insert one order_items row per line with the snapshot unit price
//   - lock each product row and decrement stock with a conditional update
//
// Any shortage discovered under the lock returns StockConflictError and rolls
// everything back, so stock never goes negative and an order row only exists
// together with its items and decrements.
func (r *PostgresRepository) Place(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, buyer_id, status, total_amount, shipping_address, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, o.ID, o.BuyerID, o.Status, o.TotalAmount, o.ShippingAddress, o.PaymentMethod).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, total_price, seller_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice, it.SellerID)
		if err != nil {
			return fmt.Errorf("%w: product %s: %v", ErrItemInsert, it.ProductID, err)
		}
	}

	conflict := &StockConflictError{}
	type locked struct {
		item      *Item
		available int
	}
	lockedRows := make([]locked, 0, len(o.Items))

	for i := range o.Items {
		it := &o.Items[i]

		var available int
		err := tx.QueryRow(ctx, `
			SELECT stock FROM products WHERE id = $1 FOR UPDATE
		`, it.ProductID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				available = 0
			} else {
				return fmt.Errorf("lock product %s: %w", it.ProductID, err)
			}
		}

		lockedRows = append(lockedRows, locked{item: it, available: available})
		if available < it.Quantity {
			conflict.Shortages = append(conflict.Shortages, Shortage{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Requested:   it.Quantity,
				Available:   available,
			})
		}
	}

	if len(conflict.Shortages) > 0 {
		return conflict
	}

	for _, row := range lockedRows {
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1 AND stock >= $2
		`, row.item.ProductID, row.item.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", row.item.ProductID, err)
		}
		if ct.RowsAffected() == 0 {
			// Cannot normally happen under the row lock; treated as a
			// late-discovered shortage rather than a partial write.
			conflict.Shortages = append(conflict.Shortages, Shortage{
				ProductID:   row.item.ProductID,
				ProductName: row.item.ProductName,
				Requested:   row.item.Quantity,
				Available:   row.available,
			})
			return conflict
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, buyer_id, status, total_amount, shipping_address, payment_method, created_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&o.ID, &o.BuyerID, &o.Status, &o.TotalAmount,
		&o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := r.itemsFor(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *PostgresRepository) itemsFor(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''),
		       oi.quantity, oi.unit_price, oi.total_price, oi.seller_id
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.SellerID); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, buyer_id, status, total_amount, shipping_address, payment_method, created_at
		FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC
	`, buyerID)
}

// ListBySeller returns orders containing at least one of the seller's items.
func (r *PostgresRepository) ListBySeller(ctx context.Context, sellerID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT DISTINCT o.id, o.buyer_id, o.status, o.total_amount, o.shipping_address, o.payment_method, o.created_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.seller_id = $1
		ORDER BY o.created_at DESC
	`, sellerID)
}

func (r *PostgresRepository) list(ctx context.Context, query, arg string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.Status, &o.TotalAmount,
			&o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// UpdateStatus applies a seller-driven status transition. The seller must own
// at least one item in the order, and the transition must be legal.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, sellerID, orderID string, to Status) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrBadTransition, to)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `
		SELECT o.status FROM orders o
		WHERE o.id = $1
		  AND EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.seller_id = $2)
		FOR UPDATE OF o
	`, orderID, sellerID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select order status: %w", err)
	}

	if !CanTransition(current, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, current, to)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, to); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return tx.Commit(ctx)
}

package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("product not found")
	ErrNotOwner = errors.New("product owned by another seller")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, sellerID string, p *Product) error
	Delete(ctx context.Context, sellerID, id string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, name, description, price, stock, seller_id, image_ref, created_at, updated_at`

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]Product, error) {
	limit, offset := f.limitOffset()

	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if f.SellerID != "" {
		query += ` WHERE seller_id = $1`
		args = append(args, f.SellerID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err := scanProduct(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price, stock, seller_id, image_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.SellerID, p.ImageRef)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a product. The seller filter enforces
// ownership in the same statement, so a non-owner sees ErrNotOwner.
func (r *PostgresRepository) Update(ctx context.Context, sellerID string, p *Product) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $3, description = $4, price = $5, stock = $6, image_ref = $7, updated_at = NOW()
		WHERE id = $1 AND seller_id = $2
	`, p.ID, sellerID, p.Name, p.Description, p.Price, p.Stock, p.ImageRef)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrNotOwner(ctx, p.ID)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, sellerID, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND seller_id = $2`, id, sellerID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrNotOwner(ctx, id)
	}
	return nil
}

func (r *PostgresRepository) missingOrNotOwner(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if exists {
		return ErrNotOwner
	}
	return ErrNotFound
}

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.SellerID, &p.ImageRef, &p.CreatedAt, &p.UpdatedAt)
}

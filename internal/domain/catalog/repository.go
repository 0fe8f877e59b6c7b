package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines catalog data access
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, game string) ([]*Product, error)
	ListOverrides(ctx context.Context, productID string) ([]*PriceOverride, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := `
		SELECT id, game, name, price, active, created_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *repository) ListProducts(ctx context.Context, game string) ([]*Product, error) {
	query := `
		SELECT id, game, name, price, active, created_at
		FROM products
		WHERE active = true
	`
	args := []interface{}{}
	if game != "" {
		query += ` AND game = $1`
		args = append(args, game)
	}
	query += ` ORDER BY game, price`

	products := []*Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *repository) ListOverrides(ctx context.Context, productID string) ([]*PriceOverride, error) {
	query := `
		SELECT id, product_id, kind, value, active, created_at
		FROM product_price_overrides
		WHERE product_id = $1 AND active = true
		ORDER BY created_at
	`
	overrides := []*PriceOverride{}
	if err := r.db.SelectContext(ctx, &overrides, query, productID); err != nil {
		return nil, fmt.Errorf("failed to list price overrides: %w", err)
	}
	return overrides, nil
}

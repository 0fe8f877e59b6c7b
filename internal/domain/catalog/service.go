package catalog

import (
	"context"
	"fmt"
)

// Service resolves product availability and effective pricing. The price a
// buyer pays is always resolved here on the server, never taken from the
// client.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns active products, optionally filtered by game, with
// overrides applied to the listed price.
func (s *Service) List(ctx context.Context, game string) ([]*Product, error) {
	products, err := s.repo.ListProducts(ctx, game)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		overrides, err := s.repo.ListOverrides(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Price = EffectivePrice(p.Price, overrides)
	}
	return products, nil
}

// Get returns a single product with its effective price. Inactive products
// are visible by id but flagged, so order creation can reject them with a
// precise error.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.ListOverrides(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Price = EffectivePrice(p.Price, overrides)
	return p, nil
}

// ResolveForPurchase returns the product only when it can be ordered.
func (s *Service) ResolveForPurchase(ctx context.Context, id string) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: %s", ErrProductInactive, id)
	}
	return p, nil
}

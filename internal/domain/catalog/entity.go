package catalog

import (
	"time"
)

// OverrideKind selects how a price override is applied.
type OverrideKind string

const (
	// OverridePercent adjusts the base price by a signed percentage.
	OverridePercent OverrideKind = "percent"
	// OverrideFixed replaces the base price outright.
	OverrideFixed OverrideKind = "fixed"
)

// Product is a purchasable top-up denomination for a specific game.
type Product struct {
	ID        string    `db:"id" json:"id"`
	Game      string    `db:"game" json:"game"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PriceOverride adjusts a product's price at read time. A fixed override
// wins over a percentage one when both are active.
type PriceOverride struct {
	ID        int64        `db:"id" json:"id"`
	ProductID string       `db:"product_id" json:"product_id"`
	Kind      OverrideKind `db:"kind" json:"kind"`
	Value     int64        `db:"value" json:"value"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// EffectivePrice resolves the price a buyer actually pays. Percentage
// overrides carry a signed value: -10 is a 10% discount.
func EffectivePrice(base int64, overrides []*PriceOverride) int64 {
	var percent *PriceOverride
	for _, o := range overrides {
		if !o.Active {
			continue
		}
		switch o.Kind {
		case OverrideFixed:
			return o.Value
		case OverridePercent:
			percent = o
		}
	}
	if percent != nil {
		price := base + base*percent.Value/100
		if price < 0 {
			return 0
		}
		return price
	}
	return base
}

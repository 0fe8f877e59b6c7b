package order

// CreateRequest is the order creation payload.
type CreateRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	PlayerRef     string `json:"player_ref" validate:"required,min=3,max=64"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=gateway wallet"`
}

package recharge

// CreateRequest is the wallet recharge creation payload. The amount is in
// platform currency units.
type CreateRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// CreateResponse returns the pending transaction and the hosted-checkout
// URL the client redirects to.
type CreateResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	PaymentURL    string `json:"payment_url"`
}

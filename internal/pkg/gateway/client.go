package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds payment gateway API configuration
type Config struct {
	BaseURL    string
	MerchantID string
	SecretKey  string
	Timeout    time.Duration
}

// Client represents the payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreateOrderRequest represents a hosted-checkout order creation request
type CreateOrderRequest struct {
	Amount      int64  `json:"amount"`
	OrderID     string `json:"order_id"`
	Description string `json:"description"`
	ReturnURL   string `json:"return_url"`
	CallbackURL string `json:"callback_url"`
	Remark1     string `json:"remark1,omitempty"`
	Remark2     string `json:"remark2,omitempty"`
}

// CreateOrderResponse represents an order creation response
type CreateOrderResponse struct {
	GatewayRef string `json:"gateway_ref"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

// StatusResult is the nested result object of a status-check response.
type StatusResult struct {
	TxnStatus string `json:"txnStatus"`
	Amount    int64  `json:"amount"`
	TxnAmount int64  `json:"txnAmount"`
	UTR       string `json:"utr,omitempty"`
}

// StatusResponse is the gateway's status-check response. The processor
// signals success in more than one shape depending on API version, so
// callers must go through Confirmed and SettledAmount instead of reading
// fields directly.
type StatusResponse struct {
	Status  bool          `json:"status"`
	Message string        `json:"message,omitempty"`
	Result  *StatusResult `json:"result,omitempty"`
}

// Confirmed reports whether the gateway considers the transaction paid.
// Accepted encodings: top-level boolean status, or result.txnStatus equal
// to COMPLETED or SUCCESS.
func (r *StatusResponse) Confirmed() bool {
	if r == nil {
		return false
	}
	if r.Status {
		return true
	}
	if r.Result != nil {
		switch r.Result.TxnStatus {
		case "COMPLETED", "SUCCESS":
			return true
		}
	}
	return false
}

// SettledAmount returns the settled amount: result.amount or
// result.txnAmount, first non-zero wins. Zero means the gateway did not
// report a usable amount.
func (r *StatusResponse) SettledAmount() int64 {
	if r == nil || r.Result == nil {
		return 0
	}
	if r.Result.Amount != 0 {
		return r.Result.Amount
	}
	return r.Result.TxnAmount
}

// NewClient creates new gateway API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// CreateOrder initiates a hosted-checkout payment and returns the payment URL
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("validation error: order_id must be non-empty")
	}
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	var out CreateOrderResponse
	if err := c.post(ctx, "/api/v1/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckStatus queries the gateway for the current state of an order
func (c *Client) CheckStatus(ctx context.Context, orderID string) (*StatusResponse, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("validation error: order_id must be non-empty")
	}
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	payload := map[string]string{"order_id": orderID, "merchant_id": c.config.MerchantID}

	var out StatusResponse
	if err := c.post(ctx, "/api/v1/orders/status", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) checkConfig() error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("gateway client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("gateway config error: base_url is empty")
	}
	if strings.TrimSpace(c.config.MerchantID) == "" {
		return fmt.Errorf("gateway config error: merchant_id is empty")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in interface{}, out interface{}) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.MerchantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway api returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return nil
}

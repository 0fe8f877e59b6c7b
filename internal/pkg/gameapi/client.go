package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client represents the game publisher's top-up delivery API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// DeliverPayload represents a virtual-good delivery request.
type DeliverPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	PlayerRef string `json:"player_ref"`
	Quantity  int64  `json:"quantity"`
}

// DeliverResponse represents the publisher's delivery response.
type DeliverResponse struct {
	Delivered bool   `json:"delivered"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message,omitempty"`
}

// NewClient creates a new game API client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Deliver asks the publisher to credit the purchased virtual good to the
// player. The order id doubles as the publisher-side idempotency key, so
// retrying a delivery that already went through is safe.
func (c *Client) Deliver(ctx context.Context, p DeliverPayload) (*DeliverResponse, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("game api request error: client is nil")
	}
	if strings.TrimSpace(c.baseURL) == "" {
		return nil, fmt.Errorf("game api config error: base_url is empty")
	}
	if strings.TrimSpace(p.PlayerRef) == "" {
		return nil, fmt.Errorf("game api validation error: player_ref is empty")
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("game api request error: %w", err)
	}

	url := c.baseURL + "/partner/v1/topups"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("game api request error: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("game api request error: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("game api http error: status=%d body=<failed to read body: %v>", resp.StatusCode, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("game api http error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out DeliverResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse game api response: %w", err)
	}

	return &out, nil
}

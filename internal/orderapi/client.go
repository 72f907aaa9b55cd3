package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client talks to the external pharmacy order-creation API. One order is
// created per cart line item; the API has no batch endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an order API client. The base URL is normalized to
// scheme://host without a trailing slash.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	trimmed := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if trimmed != "" && !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}

	return &Client{
		baseURL: trimmed,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// OrderRequest is the payload for one order-creation call.
type OrderRequest struct {
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Quantity   int    `json:"quantity"`
	MedicineID string `json:"medicineId"`
	AuthorID   string `json:"authorId"`
}

// Order is the created-order representation returned by the API.
type Order struct {
	ID         string  `json:"_id"`
	MedicineID string  `json:"medicineId"`
	Quantity   int     `json:"quantity"`
	Status     string  `json:"status"`
	Total      float64 `json:"total,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Error carries the API's human-readable failure message.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("order API error: status %d", e.StatusCode)
}

// CreateOrder issues one order-creation call. Both transport failures
// and success=false responses come back as errors; the caller decides
// how failures aggregate across a fan-out.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (*Order, error) {
	payload, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	url := c.baseURL + "/api/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected response: %s", truncate(body, 200))}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		c.logger.Warn("order creation rejected",
			zap.String("medicineId", order.MedicineID),
			zap.Int("status", resp.StatusCode),
			zap.String("message", env.Message),
		)
		return nil, &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}

	var created Order
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return nil, fmt.Errorf("failed to unmarshal created order: %w", err)
	}
	if created.MedicineID == "" {
		created.MedicineID = order.MedicineID
	}
	if created.Quantity == 0 {
		created.Quantity = order.Quantity
	}

	return &created, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

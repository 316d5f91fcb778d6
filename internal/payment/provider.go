package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// OrderCreator issues a provider order for an amount before the customer
// pays. Order creation is opaque to the job lifecycle: the coordinator
// only stores the returned order id.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
}

type ProviderConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// HTTPProvider creates orders against a REST payment provider.
type HTTPProvider struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewHTTPProvider(cfg ProviderConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID string `json:"id"`
}

func (p *HTTPProvider) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.keyID, p.keySecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("provider returned http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var order orderResponse
	if err := json.Unmarshal(data, &order); err != nil {
		return "", fmt.Errorf("parse order response: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("provider returned empty order id")
	}

	return order.ID, nil
}

// LocalProvider mints order ids without a remote call. Used when no
// provider is configured (development and tests); signatures are then
// produced with Sign under the same shared secret.
type LocalProvider struct{}

func (LocalProvider) CreateOrder(_ context.Context, _ int64, _, _ string) (string, error) {
	return "order_" + uuid.NewString(), nil
}

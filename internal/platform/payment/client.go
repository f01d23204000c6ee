// Package payment wraps the external payment provider's HTTP API. Charges
// are created when a patient pays an invoice; the billing service maps
// provider failures to gateway errors for the API response.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrProviderUnavailable indicates the provider could not be reached or
// returned a server error. Handlers translate it to 502 Bad Gateway.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

// ErrChargeDeclined indicates the provider refused the charge.
var ErrChargeDeclined = errors.New("charge declined")

// Charger is the interface the billing service depends on.
type Charger interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// ChargeRequest describes a charge to submit to the provider.
type ChargeRequest struct {
	InvoiceID   string `json:"invoice_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

// Charge is the provider's record of a completed or attempted charge.
type Charge struct {
	ID          string    `json:"id"`
	InvoiceID   string    `json:"invoice_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Client is an HTTP client for the payment provider.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a Client for the given provider endpoint.
func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type providerError struct {
	Error string `json:"error"`
}

// CreateCharge submits a charge to the provider. Declines come back as
// ErrChargeDeclined; connectivity and provider-side failures come back as
// ErrProviderUnavailable.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("invoice_id", req.InvoiceID).Msg("payment provider request failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var charge Charge
		if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
			return nil, fmt.Errorf("decode charge response: %w", err)
		}
		c.logger.Info().
			Str("charge_id", charge.ID).
			Str("invoice_id", req.InvoiceID).
			Int64("amount_cents", req.AmountCents).
			Msg("charge created")
		return &charge, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		var pe providerError
		_ = json.NewDecoder(resp.Body).Decode(&pe)
		return nil, fmt.Errorf("%w: %s", ErrChargeDeclined, pe.Error)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: provider returned status %d", ErrProviderUnavailable, resp.StatusCode)
	default:
		var pe providerError
		_ = json.NewDecoder(resp.Body).Decode(&pe)
		return nil, fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, pe.Error)
	}
}

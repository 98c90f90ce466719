// Package stripe integrates the Stripe API: form-encoded requests with a
// bearer secret key, no hosted checkout redirect in this flow.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"league-system/internal/providers"
	"league-system/models"
)

// minorUnits converts major-unit decimal amounts to Stripe's integer
// minor units.
var minorUnits = decimal.NewFromInt(100)

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	secretKey string
	hc        *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		hc:        &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() models.Provider { return models.ProviderStripe }

func (c *Client) CreatePayment(ctx context.Context, req *providers.CreateRequest) (*providers.CreateResult, error) {
	// Stripe amounts are integer minor units.
	form := url.Values{}
	form.Set("amount", req.Amount.Mul(minorUnits).StringFixed(0))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("description", req.Description)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var reply struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/v1/payment_intents", form, &reply); err != nil {
		return nil, fmt.Errorf("stripe CreatePayment: %w", err)
	}

	return &providers.CreateResult{ExternalID: reply.ID}, nil
}

func (c *Client) VerifyPayment(ctx context.Context, externalID string) (bool, error) {
	var reply struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/v1/payment_intents/"+externalID, &reply); err != nil {
		return false, fmt.Errorf("stripe VerifyPayment: %w", err)
	}

	return reply.Status == "succeeded", nil
}

func (c *Client) RefundPayment(ctx context.Context, externalID, reason string) (bool, error) {
	form := url.Values{}
	form.Set("payment_intent", externalID)
	if reason != "" {
		form.Set("metadata[reason]", reason)
	}

	var reply struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/v1/refunds", form, &reply); err != nil {
		return false, fmt.Errorf("stripe RefundPayment: %w", err)
	}

	return reply.Status == "succeeded" || reply.Status == "pending", nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, reply any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, reply)
}

func (c *Client) get(ctx context.Context, path string, reply any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("http.NewReq: %w", err)
	}
	return c.do(req, reply)
}

func (c *Client) do(req *http.Request, reply any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("http status %d: %s: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}
	return nil
}

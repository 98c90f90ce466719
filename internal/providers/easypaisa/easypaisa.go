// Package easypaisa integrates the Easypay gateway. Requests are signed
// with an HMAC-SHA256 digest of the body in the X-Signature header.
package easypaisa

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"league-system/internal/providers"
	"league-system/models"
)

type Config struct {
	BaseURL string
	StoreID string
	HMACKey string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	storeID string
	hmacKey string
	hc      *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		storeID: cfg.StoreID,
		hmacKey: cfg.HMACKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() models.Provider { return models.ProviderEasypaisa }

func (c *Client) CreatePayment(ctx context.Context, req *providers.CreateRequest) (*providers.CreateResult, error) {
	payload := map[string]any{
		"storeId":           c.storeID,
		"orderId":           req.PaymentID,
		"transactionAmount": req.Amount.String(),
		"transactionType":   "InitialRequest",
		"currency":          req.Currency,
		"description":       req.Description,
	}

	var reply struct {
		ResponseCode  string `json:"responseCode"`
		ResponseDesc  string `json:"responseDesc"`
		TransactionID string `json:"transactionId"`
		PaymentToken  string `json:"paymentToken"`
	}
	if err := c.post(ctx, "/easypay-service/rest/v4/initiate-transaction", payload, &reply); err != nil {
		return nil, fmt.Errorf("easypaisa CreatePayment: %w", err)
	}
	if reply.ResponseCode != "0000" {
		return nil, fmt.Errorf("easypaisa CreatePayment: code %s: %s", reply.ResponseCode, reply.ResponseDesc)
	}

	return &providers.CreateResult{
		ExternalID:  reply.TransactionID,
		CheckoutURL: fmt.Sprintf("%s/easypay/Index.jsf?token=%s", c.baseURL, reply.PaymentToken),
	}, nil
}

func (c *Client) VerifyPayment(ctx context.Context, externalID string) (bool, error) {
	payload := map[string]any{
		"storeId":       c.storeID,
		"transactionId": externalID,
	}

	var reply struct {
		ResponseCode      string `json:"responseCode"`
		ResponseDesc      string `json:"responseDesc"`
		TransactionStatus string `json:"transactionStatus"`
	}
	if err := c.post(ctx, "/easypay-service/rest/v4/inquire-transaction", payload, &reply); err != nil {
		return false, fmt.Errorf("easypaisa VerifyPayment: %w", err)
	}
	if reply.ResponseCode != "0000" {
		return false, fmt.Errorf("easypaisa VerifyPayment: code %s: %s", reply.ResponseCode, reply.ResponseDesc)
	}

	return reply.TransactionStatus == "PAID", nil
}

func (c *Client) RefundPayment(ctx context.Context, externalID, reason string) (bool, error) {
	payload := map[string]any{
		"storeId":       c.storeID,
		"transactionId": externalID,
		"reason":        reason,
	}

	var reply struct {
		ResponseCode string `json:"responseCode"`
		ResponseDesc string `json:"responseDesc"`
	}
	if err := c.post(ctx, "/easypay-service/rest/v4/refund-transaction", payload, &reply); err != nil {
		return false, fmt.Errorf("easypaisa RefundPayment: %w", err)
	}

	return reply.ResponseCode == "0000", nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any, reply any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sign(body, []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}
	return nil
}

func sign(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

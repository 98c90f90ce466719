// Package jazzcash integrates the JazzCash mobile-wallet gateway. Every
// request body is HMAC-SHA256 signed with the merchant key and carried in
// the SignedHash header; JazzCash checks the hash before the payload.
package jazzcash

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
	"league-system/utils"
)

type Config struct {
	BaseURL    string
	MerchantID string
	HMACKey    string
	ReturnURL  string
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	merchantID string
	hmacKey    string
	returnURL  string
	hc         *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		hmacKey:    cfg.HMACKey,
		returnURL:  cfg.ReturnURL,
		hc:         &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() models.Provider { return models.ProviderJazzCash }

// CreatePayment registers the transaction and returns the hosted checkout
// URL the payer is redirected to.
func (c *Client) CreatePayment(ctx context.Context, req *providers.CreateRequest) (*providers.CreateResult, error) {
	billRef, err := utils.GenerateCode(4)
	if err != nil {
		return nil, fmt.Errorf("jazzcash CreatePayment: billRef: %w", err)
	}

	payload := map[string]any{
		"pp_MerchantID":  c.merchantID,
		"pp_TxnRefNo":    req.PaymentID,
		"pp_BillRef":     billRef,
		"pp_Amount":      req.Amount.String(),
		"pp_Currency":    req.Currency,
		"pp_Description": req.Description,
		"pp_ReturnURL":   c.returnURL,
	}
	if req.ReturnURL != "" {
		payload["pp_ReturnURL"] = req.ReturnURL
	}

	var reply struct {
		ResponseCode string `json:"pp_ResponseCode"`
		Message      string `json:"pp_ResponseMessage"`
		TxnRefNo     string `json:"pp_TxnRefNo"`
		CheckoutURL  string `json:"pp_CheckoutURL"`
	}
	if err := c.post(ctx, "/ApplicationAPI/API/Payment/DoTransaction", payload, &reply); err != nil {
		return nil, fmt.Errorf("jazzcash CreatePayment: %w", err)
	}
	if reply.ResponseCode != "000" {
		return nil, fmt.Errorf("jazzcash CreatePayment: code %s: %s", reply.ResponseCode, reply.Message)
	}

	return &providers.CreateResult{
		ExternalID:  reply.TxnRefNo,
		CheckoutURL: reply.CheckoutURL,
	}, nil
}

// VerifyPayment runs a status inquiry. (false, nil) means JazzCash itself
// reports the transaction unpaid or rejected.
func (c *Client) VerifyPayment(ctx context.Context, externalID string) (bool, error) {
	payload := map[string]any{
		"pp_MerchantID": c.merchantID,
		"pp_TxnRefNo":   externalID,
	}

	var reply struct {
		ResponseCode string `json:"pp_ResponseCode"`
		Message      string `json:"pp_ResponseMessage"`
		Status       string `json:"pp_PaymentResponseCode"`
	}
	if err := c.post(ctx, "/ApplicationAPI/API/PaymentInquiry/Inquire", payload, &reply); err != nil {
		return false, fmt.Errorf("jazzcash VerifyPayment: %w", err)
	}
	if reply.ResponseCode != "000" {
		return false, fmt.Errorf("jazzcash VerifyPayment: code %s: %s", reply.ResponseCode, reply.Message)
	}

	return reply.Status == "121", nil
}

func (c *Client) RefundPayment(ctx context.Context, externalID, reason string) (bool, error) {
	payload := map[string]any{
		"pp_MerchantID": c.merchantID,
		"pp_TxnRefNo":   externalID,
		"pp_Remarks":    reason,
	}

	var reply struct {
		ResponseCode string `json:"pp_ResponseCode"`
		Message      string `json:"pp_ResponseMessage"`
	}
	if err := c.post(ctx, "/ApplicationAPI/API/Refund/DoRefund", payload, &reply); err != nil {
		return false, fmt.Errorf("jazzcash RefundPayment: %w", err)
	}

	return reply.ResponseCode == "000", nil
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
	req.Header.Set("SignedHash", hmac256(body, []byte(c.hmacKey)))

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

func hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

package easypaisa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-system/internal/providers"
)

const testKey = "easypay-secret"

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{BaseURL: srv.URL, StoreID: "ST-42", HMACKey: testKey})
}

func requireSignature(t *testing.T, r *http.Request) []byte {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(testKey))
	mac.Write(body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("X-Signature"))
	return body
}

func TestCreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/easypay-service/rest/v4/initiate-transaction", r.URL.Path)
		body := requireSignature(t, r)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "ST-42", payload["storeId"])
		assert.Equal(t, "750.50", payload["transactionAmount"])

		json.NewEncoder(w).Encode(map[string]string{
			"responseCode":  "0000",
			"transactionId": "EP-55",
			"paymentToken":  "tok-abc",
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv).CreatePayment(context.Background(), &providers.CreateRequest{
		PaymentID: "pay-1",
		Amount:    decimal.RequireFromString("750.50"),
		Currency:  "PKR",
	})
	require.NoError(t, err)
	assert.Equal(t, "EP-55", result.ExternalID)
	assert.Contains(t, result.CheckoutURL, "tok-abc")
}

func TestVerifyPayment(t *testing.T) {
	status := "PAID"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireSignature(t, r)
		json.NewEncoder(w).Encode(map[string]string{
			"responseCode":      "0000",
			"transactionStatus": status,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv)

	paid, err := client.VerifyPayment(context.Background(), "EP-55")
	require.NoError(t, err)
	assert.True(t, paid)

	status = "FAILED"
	paid, err = client.VerifyPayment(context.Background(), "EP-55")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestVerifyPaymentInquiryRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"responseCode": "0001",
			"responseDesc": "system error",
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).VerifyPayment(context.Background(), "EP-55")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001")
}

func TestRefundPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/easypay-service/rest/v4/refund-transaction", r.URL.Path)
		requireSignature(t, r)
		json.NewEncoder(w).Encode(map[string]string{"responseCode": "0000"})
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).RefundPayment(context.Background(), "EP-55", "abandoned fixture")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefundPaymentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"responseCode": "0009"})
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).RefundPayment(context.Background(), "EP-55", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

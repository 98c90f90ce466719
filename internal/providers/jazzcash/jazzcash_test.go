package jazzcash

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

const testKey = "test-hmac-key"

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL:    srv.URL,
		MerchantID: "MC1001",
		HMACKey:    testKey,
		ReturnURL:  "https://league.example.com/return",
	})
}

func requireSignedBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(testKey))
	mac.Write(body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("SignedHash"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestCreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ApplicationAPI/API/Payment/DoTransaction", r.URL.Path)
		payload := requireSignedBody(t, r)
		assert.Equal(t, "MC1001", payload["pp_MerchantID"])
		assert.Equal(t, "pay-1", payload["pp_TxnRefNo"])
		assert.Equal(t, "5000", payload["pp_Amount"])
		assert.Equal(t, "PKR", payload["pp_Currency"])
		assert.NotEmpty(t, payload["pp_BillRef"])

		json.NewEncoder(w).Encode(map[string]string{
			"pp_ResponseCode": "000",
			"pp_TxnRefNo":     "JC-777",
			"pp_CheckoutURL":  "https://sandbox.jazzcash.com.pk/checkout/JC-777",
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv).CreatePayment(context.Background(), &providers.CreateRequest{
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(5000),
		Currency:  "PKR",
	})
	require.NoError(t, err)
	assert.Equal(t, "JC-777", result.ExternalID)
	assert.Contains(t, result.CheckoutURL, "JC-777")
}

func TestCreatePaymentGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"pp_ResponseCode":    "101",
			"pp_ResponseMessage": "invalid merchant",
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreatePayment(context.Background(), &providers.CreateRequest{
		PaymentID: "pay-1",
		Amount:    decimal.NewFromInt(100),
		Currency:  "PKR",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "101")
}

func TestVerifyPayment(t *testing.T) {
	status := "121"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ApplicationAPI/API/PaymentInquiry/Inquire", r.URL.Path)
		requireSignedBody(t, r)
		json.NewEncoder(w).Encode(map[string]string{
			"pp_ResponseCode":        "000",
			"pp_PaymentResponseCode": status,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv)

	paid, err := client.VerifyPayment(context.Background(), "JC-777")
	require.NoError(t, err)
	assert.True(t, paid)

	// Any other payment code means unpaid, not an error.
	status = "124"
	paid, err = client.VerifyPayment(context.Background(), "JC-777")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestVerifyPaymentTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).VerifyPayment(context.Background(), "JC-777")
	assert.Error(t, err)
}

func TestRefundPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ApplicationAPI/API/Refund/DoRefund", r.URL.Path)
		payload := requireSignedBody(t, r)
		assert.Equal(t, "washed out", payload["pp_Remarks"])
		json.NewEncoder(w).Encode(map[string]string{"pp_ResponseCode": "000"})
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).RefundPayment(context.Background(), "JC-777", "washed out")
	require.NoError(t, err)
	assert.True(t, ok)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"league-system/internal/bus"
	"league-system/internal/providers"
	"league-system/internal/store"
	"league-system/models"
)

// fakeProvider scripts provider behaviour per test.
type fakeProvider struct {
	name models.Provider

	createErr  error
	verifyOK   bool
	verifyErr  error
	refundOK   bool
	refundErr  error
	verifyCall int
	refundCall int
}

func (f *fakeProvider) Name() models.Provider { return f.name }

func (f *fakeProvider) CreatePayment(_ context.Context, req *providers.CreateRequest) (*providers.CreateResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &providers.CreateResult{
		ExternalID:  "ext-" + req.PaymentID,
		CheckoutURL: "https://pay.example.com/" + req.PaymentID,
	}, nil
}

func (f *fakeProvider) VerifyPayment(context.Context, string) (bool, error) {
	f.verifyCall++
	return f.verifyOK, f.verifyErr
}

func (f *fakeProvider) RefundPayment(context.Context, string, string) (bool, error) {
	f.refundCall++
	return f.refundOK, f.refundErr
}

func newPaymentFixture(t *testing.T, p *fakeProvider) (*PaymentService, *bus.InMemory) {
	t.Helper()
	registry := providers.NewRegistry()
	registry.Register(p)
	eventBus := bus.NewInMemory()
	svc := NewPaymentService(store.NewMemory().Payments(), registry, eventBus, 0)
	return svc, eventBus
}

func TestPaymentHappyPath(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, verifyOK: true, refundOK: true}
	svc, eventBus := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "lahore-league",
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(5000),
		Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, int64(1), payment.Version)
	assert.NotEmpty(t, payment.CheckoutURL)
	assert.Empty(t, eventBus.Published, "creation is not billing-significant")

	payment, err = svc.ConfirmPayment(ctx, "lahore-league", payment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, payment.Status)
	assert.Equal(t, int64(2), payment.Version)

	payment, err = svc.RefundPayment(ctx, "lahore-league", payment.ID, "washed out")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, payment.Status)
	assert.Equal(t, int64(3), payment.Version)

	require.Len(t, eventBus.Published, 2)
	assert.Equal(t, models.TopicPaymentLifecycle, eventBus.Published[0].Topic)
	assert.Equal(t, models.EventPaymentCompleted, eventBus.Published[0].Event.Type)
	assert.Equal(t, models.EventPaymentRefunded, eventBus.Published[1].Event.Type)
	assert.Equal(t, payment.ID, eventBus.Published[0].Event.Key)
}

func TestPaymentDeclinedIsTerminal(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, verifyOK: false}
	svc, eventBus := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(1000), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)

	declined, err := svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	require.ErrorIs(t, err, models.ErrPaymentDeclined)
	require.NotNil(t, declined)
	assert.Equal(t, models.PaymentFailed, declined.Status)

	require.Len(t, eventBus.Published, 1)
	assert.Equal(t, models.EventPaymentFailed, eventBus.Published[0].Event.Type)

	// A failed payment cannot be refunded and stays failed.
	_, err = svc.RefundPayment(ctx, "t1", payment.ID, "change of plans")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	got, err := svc.GetPayment(ctx, "t1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.Status)
	assert.Zero(t, provider.refundCall)
}

func TestConfirmRequiresPending(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderStripe, verifyOK: true}
	svc, _ := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(250), Currency: "USD",
		Provider: models.ProviderStripe,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestProviderOutageLeavesPaymentPending(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderEasypaisa, verifyErr: errors.New("gateway timeout")}
	svc, eventBus := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(750), Currency: "PKR",
		Provider: models.ProviderEasypaisa,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)

	got, err := svc.GetPayment(ctx, "t1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.Status, "record must stay confirmable")
	assert.Empty(t, eventBus.Published)

	// Provider recovers; the same confirm call now settles the payment.
	provider.verifyErr = nil
	provider.verifyOK = true
	got, err = svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.Status)
}

func TestRefundFailureKeepsPaymentCompleted(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, verifyOK: true, refundErr: errors.New("down")}
	svc, _ := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(100), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)
	_, err = svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	require.NoError(t, err)

	_, err = svc.RefundPayment(ctx, "t1", payment.ID, "oops")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)

	got, err := svc.GetPayment(ctx, "t1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.Status, "refund must be retryable")
}

func TestRefundRejectionIsTerminal(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, verifyOK: true, refundOK: false}
	svc, _ := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(100), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)
	_, err = svc.ConfirmPayment(ctx, "t1", payment.ID, "")
	require.NoError(t, err)

	// The provider answered and said no: terminal, unlike an outage.
	_, err = svc.RefundPayment(ctx, "t1", payment.ID, "outside refund window")
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)
	assert.NotErrorIs(t, err, models.ErrProviderUnavailable)

	got, err := svc.GetPayment(ctx, "t1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, got.Status)
}

func TestRefundRequiresCompleted(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, refundOK: true}
	svc, _ := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(100), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)

	_, err = svc.RefundPayment(ctx, "t1", payment.ID, "too early")
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Zero(t, provider.refundCall, "provider must not be called for an unrefundable state")
}

func TestCreatePaymentRejectsNonPositiveAmount(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash}
	svc, _ := newPaymentFixture(t, provider)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
			TenantID: "t1", UserID: "u1",
			Amount: amount, Currency: "PKR",
			Provider: models.ProviderJazzCash,
		})
		assert.ErrorIs(t, err, models.ErrInvalidAmount)
	}
}

func TestCreatePaymentUnknownProvider(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash}
	svc, _ := newPaymentFixture(t, provider)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(100), Currency: "PKR",
		Provider: models.Provider("paypal"),
	})
	assert.ErrorIs(t, err, models.ErrUnknownProvider)
}

func TestCreatePaymentProviderDown(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, createErr: errors.New("503")}
	svc, _ := newPaymentFixture(t, provider)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(100), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestPaymentTenantIsolation(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, verifyOK: true}
	svc, _ := newPaymentFixture(t, provider)
	ctx := context.Background()

	payment, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "karachi-kings", UserID: "u1",
		Amount: decimal.NewFromInt(5000), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)

	_, err = svc.GetPayment(ctx, "lahore-league", payment.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.ConfirmPayment(ctx, "lahore-league", payment.ID, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	payments, err := svc.ListPayments(ctx, "lahore-league", "", "")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestListPaymentsFilters(t *testing.T) {
	provider := &fakeProvider{name: models.ProviderJazzCash, verifyOK: true}
	svc, _ := newPaymentFixture(t, provider)
	ctx := context.Background()

	first, err := svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u1",
		Amount: decimal.NewFromInt(100), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, CreatePaymentRequest{
		TenantID: "t1", UserID: "u2",
		Amount: decimal.NewFromInt(200), Currency: "PKR",
		Provider: models.ProviderJazzCash,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, "t1", first.ID, "")
	require.NoError(t, err)

	completed, err := svc.ListPayments(ctx, "t1", "", models.PaymentCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)

	byUser, err := svc.ListPayments(ctx, "t1", "u2", "")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "u2", byUser[0].UserID)
}

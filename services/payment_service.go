package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"league-system/internal/bus"
	"league-system/internal/providers"
	"league-system/internal/store"
	"league-system/models"
	"league-system/monitoring"
	"league-system/utils"
)

// casRetries bounds how often a check-then-set transition is re-evaluated
// after losing an optimistic-concurrency race.
const casRetries = 3

// PaymentService owns the payment state machine:
//
//	pending --confirm success--> completed --refund success--> refunded
//	pending --confirm failure--> failed (terminal)
//
// State is mutated first, then the lifecycle event is published; a publish
// failure never rolls the mutation back.
type PaymentService struct {
	store           store.PaymentStore
	registry        *providers.Registry
	bus             bus.Bus
	breakers        map[models.Provider]*utils.CircuitBreaker
	providerTimeout time.Duration
}

func NewPaymentService(st store.PaymentStore, registry *providers.Registry, eventBus bus.Bus, providerTimeout time.Duration) *PaymentService {
	if providerTimeout <= 0 {
		providerTimeout = 10 * time.Second
	}

	breakers := make(map[models.Provider]*utils.CircuitBreaker)
	for _, name := range registry.Available() {
		breakers[name] = utils.NewCircuitBreaker(string(name))
	}

	return &PaymentService{
		store:           st,
		registry:        registry,
		bus:             eventBus,
		breakers:        breakers,
		providerTimeout: providerTimeout,
	}
}

type CreatePaymentRequest struct {
	TenantID    string
	UserID      string
	Amount      decimal.Decimal
	Currency    string
	Provider    models.Provider
	Metadata    map[string]string
	Description string
	ReturnURL   string
}

// CreatePayment opens a payment with the provider and persists it as
// pending. Creation is not a billing-significant milestone, so no event is
// published; only confirmation and refund are.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("CreatePayment: %w", models.ErrInvalidAmount)
	}

	adapter, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	paymentID := uuid.NewString()

	var result *providers.CreateResult
	err = s.callProvider(ctx, req.Provider, "create", func(cctx context.Context) error {
		var callErr error
		result, callErr = adapter.CreatePayment(cctx, &providers.CreateRequest{
			PaymentID:   paymentID,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Description: req.Description,
			ReturnURL:   req.ReturnURL,
			Metadata:    req.Metadata,
		})
		return callErr
	})
	if err != nil {
		monitoring.PaymentOperation("create", string(req.Provider), "provider_error")
		return nil, fmt.Errorf("CreatePayment: %v: %w", err, models.ErrProviderUnavailable)
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:                paymentID,
		TenantID:          req.TenantID,
		UserID:            req.UserID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Provider:          req.Provider,
		ProviderPaymentID: result.ExternalID,
		CheckoutURL:       result.CheckoutURL,
		Status:            models.PaymentPending,
		Description:       req.Description,
		Metadata:          req.Metadata,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.Put(ctx, payment); err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	monitoring.PaymentOperation("create", string(req.Provider), string(payment.Status))
	return payment, nil
}

// GetPayment enforces tenant isolation: an id belonging to another tenant
// is indistinguishable from an unknown id.
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	p, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

// ConfirmPayment verifies the payment with the provider and settles the
// record as completed or failed. Only pending payments can be confirmed;
// a transiently unreachable provider leaves the record pending and returns
// ErrProviderUnavailable so the caller can re-invoke.
func (s *PaymentService) ConfirmPayment(ctx context.Context, tenantID, id, providerPaymentID string) (*models.Payment, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		payment, err := s.store.Get(ctx, tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("ConfirmPayment: %w", err)
		}
		if payment.Status != models.PaymentPending {
			return nil, fmt.Errorf("ConfirmPayment: status %s: %w", payment.Status, models.ErrInvalidState)
		}

		// The external reference is immutable once set.
		if payment.ProviderPaymentID == "" {
			payment.ProviderPaymentID = providerPaymentID
		}

		adapter, err := s.registry.Get(payment.Provider)
		if err != nil {
			return nil, fmt.Errorf("ConfirmPayment: %w", err)
		}

		var confirmed bool
		err = s.callProvider(ctx, payment.Provider, "verify", func(cctx context.Context) error {
			var callErr error
			confirmed, callErr = adapter.VerifyPayment(cctx, payment.ProviderPaymentID)
			return callErr
		})
		if err != nil {
			monitoring.PaymentOperation("confirm", string(payment.Provider), "provider_error")
			return nil, fmt.Errorf("ConfirmPayment: %v: %w", err, models.ErrProviderUnavailable)
		}

		eventType := models.EventPaymentCompleted
		payment.Status = models.PaymentCompleted
		if !confirmed {
			eventType = models.EventPaymentFailed
			payment.Status = models.PaymentFailed
		}
		payment.Version++
		payment.UpdatedAt = time.Now().UTC()

		if err := s.store.Put(ctx, payment); err != nil {
			if errors.Is(err, models.ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("ConfirmPayment: %w", err)
		}

		monitoring.PaymentOperation("confirm", string(payment.Provider), string(payment.Status))
		s.publish(ctx, eventType, payment)

		if !confirmed {
			return payment, fmt.Errorf("ConfirmPayment: %w", models.ErrPaymentDeclined)
		}
		return payment, nil
	}

	return nil, fmt.Errorf("ConfirmPayment: %w", models.ErrVersionConflict)
}

// RefundPayment refunds a completed payment. The record stays completed
// unless the provider confirms the refund: a transport error is retryable
// (ErrProviderUnavailable), a provider-confirmed rejection is not
// (ErrPaymentDeclined).
func (s *PaymentService) RefundPayment(ctx context.Context, tenantID, id, reason string) (*models.Payment, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		payment, err := s.store.Get(ctx, tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("RefundPayment: %w", err)
		}
		if payment.Status != models.PaymentCompleted {
			return nil, fmt.Errorf("RefundPayment: status %s: %w", payment.Status, models.ErrInvalidState)
		}

		adapter, err := s.registry.Get(payment.Provider)
		if err != nil {
			return nil, fmt.Errorf("RefundPayment: %w", err)
		}

		var refunded bool
		err = s.callProvider(ctx, payment.Provider, "refund", func(cctx context.Context) error {
			var callErr error
			refunded, callErr = adapter.RefundPayment(cctx, payment.ProviderPaymentID, reason)
			return callErr
		})
		if err != nil {
			monitoring.PaymentOperation("refund", string(payment.Provider), "provider_error")
			return nil, fmt.Errorf("RefundPayment: %v: %w", err, models.ErrProviderUnavailable)
		}
		// (false, nil) is a provider-confirmed rejection, not an outage:
		// terminal for this request, the record stays completed.
		if !refunded {
			monitoring.PaymentOperation("refund", string(payment.Provider), "rejected")
			return nil, fmt.Errorf("RefundPayment: %w", models.ErrPaymentDeclined)
		}

		payment.Status = models.PaymentRefunded
		payment.Version++
		payment.UpdatedAt = time.Now().UTC()

		if err := s.store.Put(ctx, payment); err != nil {
			if errors.Is(err, models.ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("RefundPayment: %w", err)
		}

		monitoring.PaymentOperation("refund", string(payment.Provider), string(payment.Status))
		s.publish(ctx, models.EventPaymentRefunded, payment)
		return payment, nil
	}

	return nil, fmt.Errorf("RefundPayment: %w", models.ErrVersionConflict)
}

// ListPayments is a pure filter over tenant-scoped records.
func (s *PaymentService) ListPayments(ctx context.Context, tenantID, userID string, status models.PaymentStatus) ([]models.Payment, error) {
	payments, err := s.store.List(ctx, tenantID, store.PaymentFilter{UserID: userID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	return payments, nil
}

// callProvider runs one provider RPC behind that provider's circuit
// breaker with a bounded timeout.
func (s *PaymentService) callProvider(ctx context.Context, provider models.Provider, call string, fn func(ctx context.Context) error) error {
	// The registry is fixed at startup, so every reachable provider has a
	// breaker from the constructor.
	breaker, ok := s.breakers[provider]
	if !ok {
		return fmt.Errorf("provider %q: %w", provider, models.ErrUnknownProvider)
	}

	start := time.Now()
	err := breaker.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		defer cancel()
		return fn(cctx)
	})
	monitoring.ProviderCall(string(provider), call, time.Since(start))
	return err
}

// publish emits the lifecycle event after the state mutation committed.
// Publication failure is logged and absorbed: the record is the source of
// truth and a reconciliation sweep re-publishes missed events.
func (s *PaymentService) publish(ctx context.Context, eventType string, p *models.Payment) {
	event, err := models.NewEvent(eventType, p.ID, models.PaymentEventData{
		PaymentID: p.ID,
		TenantID:  p.TenantID,
		UserID:    p.UserID,
		Amount:    p.Amount.String(),
		Currency:  p.Currency,
		Provider:  p.Provider,
		Status:    p.Status,
	})
	if err != nil {
		slog.Error("build payment event", "type", eventType, "payment_id", p.ID, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, models.TopicPaymentLifecycle, event); err != nil {
		slog.Error("publish payment event", "type", eventType, "payment_id", p.ID, "error", err)
	}
}

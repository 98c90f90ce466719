// Package providers isolates external payment processors behind a
// three-method contract. Request signing and authentication live inside
// each adapter; the orchestrator never sees provider secrets.
package providers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"league-system/models"
)

// CreateRequest carries everything an adapter needs to open a payment.
type CreateRequest struct {
	PaymentID   string
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

// CreateResult is the provider's external reference plus, for
// redirect-based providers, a hosted checkout URL.
type CreateResult struct {
	ExternalID  string
	CheckoutURL string
}

// Provider is the contract every payment processor adapter implements.
// Transport or provider-outage errors are returned as errors; a
// provider-confirmed negative outcome is (false, nil).
type Provider interface {
	Name() models.Provider
	CreatePayment(ctx context.Context, req *CreateRequest) (*CreateResult, error)
	VerifyPayment(ctx context.Context, externalID string) (bool, error)
	RefundPayment(ctx context.Context, externalID, reason string) (bool, error)
}

// Registry holds the configured provider adapters.
type Registry struct {
	providers map[models.Provider]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[models.Provider]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name models.Provider) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", name, models.ErrUnknownProvider)
	}
	return p, nil
}

func (r *Registry) Available() []models.Provider {
	names := make([]models.Provider, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

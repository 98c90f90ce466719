package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies an external payment processor.
type Provider string

const (
	ProviderJazzCash  Provider = "jazzcash"
	ProviderEasypaisa Provider = "easypaisa"
	ProviderStripe    Provider = "stripe"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	// PaymentProcessing is reserved for provider webhook callbacks that
	// report an in-flight capture; no command in this service produces it.
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Terminal reports whether no further transition is permitted from s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentFailed || s == PaymentRefunded
}

// Payment is one attempted money movement. Records are never deleted;
// a refund is a status transition, kept for audit.
type Payment struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"`
	UserID            string            `json:"user_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Provider          Provider          `json:"provider"`
	ProviderPaymentID string            `json:"provider_payment_id,omitempty"`
	CheckoutURL       string            `json:"checkout_url,omitempty"`
	Status            PaymentStatus     `json:"status"`
	Description       string            `json:"description,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`

	// Version guards check-then-set transitions against concurrent writers.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

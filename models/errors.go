package models

import "errors"

// Command callers branch on these with errors.Is; transient vs terminal is
// expressed by error kind, never by message inspection.
var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidState       = errors.New("operation not permitted in current payment state")
	ErrInvalidTransition  = errors.New("transition not permitted from current status")
	ErrNotFound           = errors.New("not found")
	ErrSelfPlayNotAllowed = errors.New("a team cannot play against itself")
	ErrUnknownProvider    = errors.New("unknown payment provider")

	// ErrProviderUnavailable is transient: the whole command is safe to retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// ErrPaymentDeclined is terminal: the provider confirmed the rejection.
	ErrPaymentDeclined = errors.New("payment declined by provider")

	// ErrBrokerUnavailable means publish failed after bus-internal retries.
	// The owning state mutation is already committed and is not rolled back.
	ErrBrokerUnavailable = errors.New("event broker unavailable")

	// ErrVersionConflict signals a lost optimistic-concurrency race; the
	// caller re-reads the record and re-evaluates its transition guard.
	ErrVersionConflict = errors.New("record version conflict")
)

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Broker topics. Events for one entity share a key so the broker preserves
// their relative order; no ordering holds across entities.
const (
	TopicPaymentLifecycle    = "payment-lifecycle"
	TopicMatchLifecycle      = "match-lifecycle"
	TopicTournamentLifecycle = "tournament-lifecycle"
	TopicBallScoring         = "ball-scoring"
)

// Event types carried on the lifecycle topics.
const (
	EventPaymentCompleted = "PaymentCompleted"
	EventPaymentFailed    = "PaymentFailed"
	EventPaymentRefunded  = "PaymentRefunded"

	EventMatchCreated   = "MatchCreated"
	EventMatchStarted   = "MatchStarted"
	EventMatchEnded     = "MatchEnded"
	EventMatchAbandoned = "MatchAbandoned"

	EventTournamentCreated   = "TournamentCreated"
	EventTournamentOpened    = "TournamentRegistrationOpened"
	EventTournamentStarted   = "TournamentStarted"
	EventTournamentCompleted = "TournamentCompleted"
	EventTournamentCancelled = "TournamentCancelled"
)

// Ball-by-ball scoring highlight types, published by the live-scoring
// collaborator and consumed here for fan-out only.
const (
	EventSixHit  = "SIX_HIT"
	EventFourHit = "FOUR_HIT"
	EventWicket  = "WICKET"
)

// DomainEvent is the envelope published to the bus. Every payment, match and
// tournament state transition produces exactly one event.
type DomainEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an envelope around payload, keyed by the owning entity id.
func NewEvent(eventType, key string, payload any) (DomainEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return DomainEvent{}, fmt.Errorf("NewEvent: marshal %s: %w", eventType, err)
	}
	return DomainEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Key:       key,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// PaymentEventData is the payload for payment lifecycle events.
type PaymentEventData struct {
	PaymentID string        `json:"payment_id"`
	TenantID  string        `json:"tenant_id"`
	UserID    string        `json:"user_id"`
	Amount    string        `json:"amount"`
	Currency  string        `json:"currency"`
	Provider  Provider      `json:"provider"`
	Status    PaymentStatus `json:"status"`
}

// MatchEventData is the payload for match lifecycle events.
type MatchEventData struct {
	MatchID      string      `json:"match_id"`
	TenantID     string      `json:"tenant_id"`
	TournamentID string      `json:"tournament_id"`
	TeamAID      string      `json:"team_a_id"`
	TeamBID      string      `json:"team_b_id"`
	MatchType    MatchType   `json:"match_type"`
	Status       MatchStatus `json:"status"`
	TossWinnerID string      `json:"toss_winner_id,omitempty"`
	TossDecision string      `json:"toss_decision,omitempty"`
	WinnerID     string      `json:"winner_id,omitempty"`
	Result       string      `json:"result,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// TournamentEventData is the payload for tournament lifecycle events.
type TournamentEventData struct {
	TournamentID string           `json:"tournament_id"`
	TenantID     string           `json:"tenant_id"`
	Name         string           `json:"name"`
	Status       TournamentStatus `json:"status"`
	WinnerID     string           `json:"winner_id,omitempty"`
	Reason       string           `json:"reason,omitempty"`
}

// ScoringEventData is the payload for ball-by-ball highlight events.
type ScoringEventData struct {
	MatchID    string `json:"match_id"`
	TenantID   string `json:"tenant_id"`
	BatterID   string `json:"batter_id,omitempty"`
	BowlerID   string `json:"bowler_id,omitempty"`
	Over       string `json:"over,omitempty"`
	Runs       int    `json:"runs,omitempty"`
	Commentary string `json:"commentary,omitempty"`
}

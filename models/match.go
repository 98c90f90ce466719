package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchAbandoned MatchStatus = "abandoned"
	MatchCancelled MatchStatus = "cancelled"
)

type MatchType string

const (
	MatchTypeGroup        MatchType = "group"
	MatchTypeQuarterFinal MatchType = "quarter_final"
	MatchTypeSemiFinal    MatchType = "semi_final"
	MatchTypeFinal        MatchType = "final"
	MatchTypeKnockout     MatchType = "knockout"
)

// Match is one fixture between two teams within a tournament.
// Once started, a match is a historical record and is never deleted.
type Match struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	TournamentID string      `json:"tournament_id"`
	TeamAID      string      `json:"team_a_id"`
	TeamBID      string      `json:"team_b_id"`
	VenueID      string      `json:"venue_id,omitempty"`
	MatchType    MatchType   `json:"match_type"`
	Status       MatchStatus `json:"status"`

	TossWinnerID string `json:"toss_winner_id,omitempty"`
	TossDecision string `json:"toss_decision,omitempty"`
	WinnerID     string `json:"winner_id,omitempty"`
	Result       string `json:"result,omitempty"`

	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

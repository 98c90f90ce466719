package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"league-system/internal/bus"
	"league-system/internal/store"
	"league-system/models"
	"league-system/monitoring"
)

// MatchService owns match state transitions:
//
//	scheduled -> live -> completed | abandoned
//
// Abandonment is deliberately permissive: it is an operator override and
// carries no status precondition, unlike start/end. cancelled is reserved
// for the fixture-scheduling collaborator.
type MatchService struct {
	store store.MatchStore
	bus   bus.Bus
}

func NewMatchService(st store.MatchStore, eventBus bus.Bus) *MatchService {
	return &MatchService{store: st, bus: eventBus}
}

type CreateMatchRequest struct {
	TenantID      string
	TournamentID  string
	TeamAID       string
	TeamBID       string
	VenueID       string
	MatchType     models.MatchType
	ScheduledDate *time.Time
}

func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (*models.Match, error) {
	if req.TeamAID == req.TeamBID {
		return nil, fmt.Errorf("CreateMatch: %w", models.ErrSelfPlayNotAllowed)
	}

	now := time.Now().UTC()
	match := &models.Match{
		ID:            uuid.NewString(),
		TenantID:      req.TenantID,
		TournamentID:  req.TournamentID,
		TeamAID:       req.TeamAID,
		TeamBID:       req.TeamBID,
		VenueID:       req.VenueID,
		MatchType:     req.MatchType,
		Status:        models.MatchScheduled,
		ScheduledDate: req.ScheduledDate,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Put(ctx, match); err != nil {
		return nil, fmt.Errorf("CreateMatch: %w", err)
	}

	monitoring.MatchTransition(string(match.Status))
	s.publish(ctx, models.EventMatchCreated, match, "")
	return match, nil
}

func (s *MatchService) GetMatch(ctx context.Context, tenantID, id string) (*models.Match, error) {
	m, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("GetMatch: %w", err)
	}
	return m, nil
}

func (s *MatchService) ListMatches(ctx context.Context, tenantID string) ([]models.Match, error) {
	matches, err := s.store.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ListMatches: %w", err)
	}
	return matches, nil
}

// StartMatch moves a scheduled match to live, recording the toss outcome
// and start timestamp.
func (s *MatchService) StartMatch(ctx context.Context, tenantID, id, tossWinnerID, tossDecision string) (*models.Match, error) {
	match, err := s.transition(ctx, tenantID, id, func(m *models.Match) error {
		if m.Status != models.MatchScheduled {
			return fmt.Errorf("status %s: %w", m.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		m.Status = models.MatchLive
		m.TossWinnerID = tossWinnerID
		m.TossDecision = tossDecision
		m.StartDate = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("StartMatch: %w", err)
	}

	s.publish(ctx, models.EventMatchStarted, match, "")
	return match, nil
}

// EndMatch moves a live match to completed, recording winner and result.
func (s *MatchService) EndMatch(ctx context.Context, tenantID, id, winnerID, result string) (*models.Match, error) {
	match, err := s.transition(ctx, tenantID, id, func(m *models.Match) error {
		if m.Status != models.MatchLive {
			return fmt.Errorf("status %s: %w", m.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		m.Status = models.MatchCompleted
		m.WinnerID = winnerID
		m.Result = result
		m.EndDate = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("EndMatch: %w", err)
	}

	s.publish(ctx, models.EventMatchEnded, match, "")
	return match, nil
}

// AbandonMatch marks the match abandoned from any status.
func (s *MatchService) AbandonMatch(ctx context.Context, tenantID, id, reason string) (*models.Match, error) {
	match, err := s.transition(ctx, tenantID, id, func(m *models.Match) error {
		now := time.Now().UTC()
		m.Status = models.MatchAbandoned
		m.Result = fmt.Sprintf("abandoned: %s", reason)
		m.EndDate = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("AbandonMatch: %w", err)
	}

	s.publish(ctx, models.EventMatchAbandoned, match, reason)
	return match, nil
}

// transition re-reads and re-applies the mutation when an optimistic write
// loses a race, so status guards always run against the fresh record.
func (s *MatchService) transition(ctx context.Context, tenantID, id string, mutate func(*models.Match) error) (*models.Match, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		match, err := s.store.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}

		if err := mutate(match); err != nil {
			return nil, err
		}
		match.Version++
		match.UpdatedAt = time.Now().UTC()

		if err := s.store.Put(ctx, match); err != nil {
			if errors.Is(err, models.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		monitoring.MatchTransition(string(match.Status))
		return match, nil
	}

	return nil, models.ErrVersionConflict
}

func (s *MatchService) publish(ctx context.Context, eventType string, m *models.Match, reason string) {
	event, err := models.NewEvent(eventType, m.ID, models.MatchEventData{
		MatchID:      m.ID,
		TenantID:     m.TenantID,
		TournamentID: m.TournamentID,
		TeamAID:      m.TeamAID,
		TeamBID:      m.TeamBID,
		MatchType:    m.MatchType,
		Status:       m.Status,
		TossWinnerID: m.TossWinnerID,
		TossDecision: m.TossDecision,
		WinnerID:     m.WinnerID,
		Result:       m.Result,
		Reason:       reason,
	})
	if err != nil {
		slog.Error("build match event", "type", eventType, "match_id", m.ID, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, models.TopicMatchLifecycle, event); err != nil {
		slog.Error("publish match event", "type", eventType, "match_id", m.ID, "error", err)
	}
}

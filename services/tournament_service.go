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

// TournamentService owns the tournament lifecycle:
//
//	draft -> registration -> ongoing -> completed
//	draft | registration -> cancelled
type TournamentService struct {
	store store.TournamentStore
	bus   bus.Bus
}

func NewTournamentService(st store.TournamentStore, eventBus bus.Bus) *TournamentService {
	return &TournamentService{store: st, bus: eventBus}
}

func (s *TournamentService) CreateTournament(ctx context.Context, tenantID, name, season string) (*models.Tournament, error) {
	now := time.Now().UTC()
	t := &models.Tournament{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		Season:    season,
		Status:    models.TournamentDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Put(ctx, t); err != nil {
		return nil, fmt.Errorf("CreateTournament: %w", err)
	}

	monitoring.TournamentTransition(string(t.Status))
	s.publish(ctx, models.EventTournamentCreated, t, "")
	return t, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, tenantID, id string) (*models.Tournament, error) {
	t, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("GetTournament: %w", err)
	}
	return t, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, tenantID string) ([]models.Tournament, error) {
	ts, err := s.store.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ListTournaments: %w", err)
	}
	return ts, nil
}

func (s *TournamentService) OpenRegistration(ctx context.Context, tenantID, id string) (*models.Tournament, error) {
	t, err := s.transition(ctx, tenantID, id, func(t *models.Tournament) error {
		if t.Status != models.TournamentDraft {
			return fmt.Errorf("status %s: %w", t.Status, models.ErrInvalidTransition)
		}
		t.Status = models.TournamentRegistration
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("OpenRegistration: %w", err)
	}

	s.publish(ctx, models.EventTournamentOpened, t, "")
	return t, nil
}

// StartTournament is reachable straight from draft so an invite-only
// tournament can skip open registration.
func (s *TournamentService) StartTournament(ctx context.Context, tenantID, id string) (*models.Tournament, error) {
	t, err := s.transition(ctx, tenantID, id, func(t *models.Tournament) error {
		if t.Status != models.TournamentDraft && t.Status != models.TournamentRegistration {
			return fmt.Errorf("status %s: %w", t.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		t.Status = models.TournamentOngoing
		t.StartDate = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("StartTournament: %w", err)
	}

	s.publish(ctx, models.EventTournamentStarted, t, "")
	return t, nil
}

func (s *TournamentService) CompleteTournament(ctx context.Context, tenantID, id, winnerID string) (*models.Tournament, error) {
	t, err := s.transition(ctx, tenantID, id, func(t *models.Tournament) error {
		if t.Status != models.TournamentOngoing {
			return fmt.Errorf("status %s: %w", t.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		t.Status = models.TournamentCompleted
		t.WinnerID = winnerID
		t.EndDate = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CompleteTournament: %w", err)
	}

	s.publish(ctx, models.EventTournamentCompleted, t, "")
	return t, nil
}

// CancelTournament withdraws a tournament that has not started; an ongoing
// tournament cannot be cancelled, its remaining matches are abandoned
// individually instead.
func (s *TournamentService) CancelTournament(ctx context.Context, tenantID, id, reason string) (*models.Tournament, error) {
	t, err := s.transition(ctx, tenantID, id, func(t *models.Tournament) error {
		if t.Status != models.TournamentDraft && t.Status != models.TournamentRegistration {
			return fmt.Errorf("status %s: %w", t.Status, models.ErrInvalidTransition)
		}
		now := time.Now().UTC()
		t.Status = models.TournamentCancelled
		t.EndDate = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CancelTournament: %w", err)
	}

	s.publish(ctx, models.EventTournamentCancelled, t, reason)
	return t, nil
}

func (s *TournamentService) transition(ctx context.Context, tenantID, id string, mutate func(*models.Tournament) error) (*models.Tournament, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		t, err := s.store.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}

		if err := mutate(t); err != nil {
			return nil, err
		}
		t.Version++
		t.UpdatedAt = time.Now().UTC()

		if err := s.store.Put(ctx, t); err != nil {
			if errors.Is(err, models.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		monitoring.TournamentTransition(string(t.Status))
		return t, nil
	}

	return nil, models.ErrVersionConflict
}

func (s *TournamentService) publish(ctx context.Context, eventType string, t *models.Tournament, reason string) {
	event, err := models.NewEvent(eventType, t.ID, models.TournamentEventData{
		TournamentID: t.ID,
		TenantID:     t.TenantID,
		Name:         t.Name,
		Status:       t.Status,
		WinnerID:     t.WinnerID,
		Reason:       reason,
	})
	if err != nil {
		slog.Error("build tournament event", "type", eventType, "tournament_id", t.ID, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, models.TopicTournamentLifecycle, event); err != nil {
		slog.Error("publish tournament event", "type", eventType, "tournament_id", t.ID, "error", err)
	}
}

package store

import (
	"context"
	"sync"

	"league-system/models"
)

// Memory implements all three repositories with the same optimistic
// concurrency contract as the Redis stores. It backs unit tests and
// local development.
type Memory struct {
	mu          sync.RWMutex
	payments    map[string]models.Payment
	matches     map[string]models.Match
	tournaments map[string]models.Tournament
}

func NewMemory() *Memory {
	return &Memory{
		payments:    make(map[string]models.Payment),
		matches:     make(map[string]models.Match),
		tournaments: make(map[string]models.Tournament),
	}
}

func memKey(tenantID, id string) string { return tenantID + ":" + id }

// Payments returns the store restricted to the PaymentStore interface.
func (m *Memory) Payments() PaymentStore       { return (*memoryPayments)(m) }
func (m *Memory) Matches() MatchStore          { return (*memoryMatches)(m) }
func (m *Memory) Tournaments() TournamentStore { return (*memoryTournaments)(m) }

type memoryPayments Memory

func (m *memoryPayments) Get(_ context.Context, tenantID, id string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[memKey(tenantID, id)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := p
	cp.Metadata = copyMap(p.Metadata)
	return &cp, nil
}

func (m *memoryPayments) Put(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(p.TenantID, p.ID)
	stored, exists := m.payments[key]
	if exists {
		if stored.Version != p.Version-1 {
			return models.ErrVersionConflict
		}
	} else if p.Version != 1 {
		return models.ErrVersionConflict
	}

	cp := *p
	cp.Metadata = copyMap(p.Metadata)
	m.payments[key] = cp
	return nil
}

func (m *memoryPayments) List(_ context.Context, tenantID string, filter PaymentFilter) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Payment
	for _, p := range m.payments {
		if p.TenantID != tenantID {
			continue
		}
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type memoryMatches Memory

func (m *memoryMatches) Get(_ context.Context, tenantID, id string) (*models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[memKey(tenantID, id)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := match
	return &cp, nil
}

func (m *memoryMatches) Put(_ context.Context, match *models.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(match.TenantID, match.ID)
	stored, exists := m.matches[key]
	if exists {
		if stored.Version != match.Version-1 {
			return models.ErrVersionConflict
		}
	} else if match.Version != 1 {
		return models.ErrVersionConflict
	}

	m.matches[key] = *match
	return nil
}

func (m *memoryMatches) List(_ context.Context, tenantID string) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Match
	for _, match := range m.matches {
		if match.TenantID == tenantID {
			out = append(out, match)
		}
	}
	return out, nil
}

type memoryTournaments Memory

func (m *memoryTournaments) Get(_ context.Context, tenantID, id string) (*models.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tournaments[memKey(tenantID, id)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (m *memoryTournaments) Put(_ context.Context, t *models.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(t.TenantID, t.ID)
	stored, exists := m.tournaments[key]
	if exists {
		if stored.Version != t.Version-1 {
			return models.ErrVersionConflict
		}
	} else if t.Version != 1 {
		return models.ErrVersionConflict
	}

	m.tournaments[key] = *t
	return nil
}

func (m *memoryTournaments) List(_ context.Context, tenantID string) ([]models.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Tournament
	for _, t := range m.tournaments {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

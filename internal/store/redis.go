package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"league-system/models"
)

// casPut writes payload under key only if the stored record's version is
// exactly version-1 (or the key is absent for version 1). The check runs
// inside WATCH so a concurrent writer fails the transaction instead of
// silently losing the race.
func casPut(ctx context.Context, client *redis.Client, key, indexKey, id string, version int64, payload []byte) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			if version != 1 {
				return models.ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			var stored struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(current, &stored); err != nil {
				return fmt.Errorf("decode stored record %s: %w", key, err)
			}
			if stored.Version != version-1 {
				return models.ErrVersionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, indexKey, id)
			return nil
		})
		return err
	}

	err := client.Watch(ctx, txf, key)
	if err == redis.TxFailedErr {
		return models.ErrVersionConflict
	}
	return err
}

func getJSON(ctx context.Context, client *redis.Client, key string, out any) error {
	raw, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func listKeys(ctx context.Context, client *redis.Client, indexKey, prefix, tenantID string) ([]string, error) {
	ids, err := client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%s:%s:%s", prefix, tenantID, id)
	}
	return keys, nil
}

// RedisPaymentStore persists payments as JSON records with a per-tenant
// index set.
type RedisPaymentStore struct {
	client *redis.Client
}

func NewRedisPaymentStore(client *redis.Client) *RedisPaymentStore {
	return &RedisPaymentStore{client: client}
}

func paymentKey(tenantID, id string) string  { return fmt.Sprintf("payment:%s:%s", tenantID, id) }
func paymentIndexKey(tenantID string) string { return fmt.Sprintf("payments:%s", tenantID) }

func (s *RedisPaymentStore) Get(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	var p models.Payment
	if err := getJSON(ctx, s.client, paymentKey(tenantID, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisPaymentStore) Put(ctx context.Context, p *models.Payment) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payment %s: %w", p.ID, err)
	}
	return casPut(ctx, s.client, paymentKey(p.TenantID, p.ID), paymentIndexKey(p.TenantID), p.ID, p.Version, payload)
}

func (s *RedisPaymentStore) List(ctx context.Context, tenantID string, filter PaymentFilter) ([]models.Payment, error) {
	keys, err := listKeys(ctx, s.client, paymentIndexKey(tenantID), "payment", tenantID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raws, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	payments := make([]models.Payment, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var p models.Payment
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			return nil, fmt.Errorf("decode payment record: %w", err)
		}
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		payments = append(payments, p)
	}
	return payments, nil
}

type RedisMatchStore struct {
	client *redis.Client
}

func NewRedisMatchStore(client *redis.Client) *RedisMatchStore {
	return &RedisMatchStore{client: client}
}

func matchKey(tenantID, id string) string  { return fmt.Sprintf("match:%s:%s", tenantID, id) }
func matchIndexKey(tenantID string) string { return fmt.Sprintf("matches:%s", tenantID) }

func (s *RedisMatchStore) Get(ctx context.Context, tenantID, id string) (*models.Match, error) {
	var m models.Match
	if err := getJSON(ctx, s.client, matchKey(tenantID, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *RedisMatchStore) Put(ctx context.Context, m *models.Match) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", m.ID, err)
	}
	return casPut(ctx, s.client, matchKey(m.TenantID, m.ID), matchIndexKey(m.TenantID), m.ID, m.Version, payload)
}

func (s *RedisMatchStore) List(ctx context.Context, tenantID string) ([]models.Match, error) {
	keys, err := listKeys(ctx, s.client, matchIndexKey(tenantID), "match", tenantID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raws, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var m models.Match
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, fmt.Errorf("decode match record: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

type RedisTournamentStore struct {
	client *redis.Client
}

func NewRedisTournamentStore(client *redis.Client) *RedisTournamentStore {
	return &RedisTournamentStore{client: client}
}

func tournamentKey(tenantID, id string) string  { return fmt.Sprintf("tournament:%s:%s", tenantID, id) }
func tournamentIndexKey(tenantID string) string { return fmt.Sprintf("tournaments:%s", tenantID) }

func (s *RedisTournamentStore) Get(ctx context.Context, tenantID, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := getJSON(ctx, s.client, tournamentKey(tenantID, id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisTournamentStore) Put(ctx context.Context, t *models.Tournament) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tournament %s: %w", t.ID, err)
	}
	return casPut(ctx, s.client, tournamentKey(t.TenantID, t.ID), tournamentIndexKey(t.TenantID), t.ID, t.Version, payload)
}

func (s *RedisTournamentStore) List(ctx context.Context, tenantID string) ([]models.Tournament, error) {
	keys, err := listKeys(ctx, s.client, tournamentIndexKey(tenantID), "tournament", tenantID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raws, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	tournaments := make([]models.Tournament, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var t models.Tournament
		if err := json.Unmarshal([]byte(str), &t); err != nil {
			return nil, fmt.Errorf("decode tournament record: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, nil
}

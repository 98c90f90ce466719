// Package store holds the tenant-partitioned repositories behind the
// lifecycle services. Records are keyed by id within a tenant; reads for the
// wrong tenant report ErrNotFound so record existence never leaks across
// tenant boundaries.
package store

import (
	"context"

	"league-system/models"
)

// Writes are optimistic: the caller bumps Version by one and Put refuses the
// write with ErrVersionConflict when the stored version does not match the
// predecessor. Version 1 is a create and requires the key to be absent.

type PaymentFilter struct {
	UserID string
	Status models.PaymentStatus
}

type PaymentStore interface {
	Get(ctx context.Context, tenantID, id string) (*models.Payment, error)
	Put(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, tenantID string, filter PaymentFilter) ([]models.Payment, error)
}

type MatchStore interface {
	Get(ctx context.Context, tenantID, id string) (*models.Match, error)
	Put(ctx context.Context, match *models.Match) error
	List(ctx context.Context, tenantID string) ([]models.Match, error)
}

type TournamentStore interface {
	Get(ctx context.Context, tenantID, id string) (*models.Tournament, error)
	Put(ctx context.Context, tournament *models.Tournament) error
	List(ctx context.Context, tenantID string) ([]models.Tournament, error)
}

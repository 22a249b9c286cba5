package store

import (
	"context"
	"errors"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/models"
)

// ErrNotFound is returned when a draft id is absent from the store.
var ErrNotFound = errors.New("draft not found")

// Store persists drafts. It is dumb storage: all lifecycle decisions live in
// the orchestrator, which is the only writer.
type Store interface {
	Put(ctx context.Context, d *models.Draft) error
	Get(ctx context.Context, id string) (*models.Draft, error)
	Update(ctx context.Context, d *models.Draft) error
	List(ctx context.Context) ([]models.Draft, error)
	Close() error
}

// Package storage defines the persistence interface for POI records.
package storage

import (
	"context"
	"errors"

	"github.com/mwidera/cityguide/internal/models"
)

// ErrNotFound is returned when a POI does not exist.
var ErrNotFound = errors.New("storage: poi not found")

// Storage defines POI persistence operations.
type Storage interface {
	UpsertPOI(ctx context.Context, poi *models.POI) error
	BatchUpsertPOIs(ctx context.Context, pois []*models.POI) error
	GetPOI(ctx context.Context, id string) (*models.POI, error)
	// GetPOIs returns POIs in the order of ids. Missing IDs are skipped.
	GetPOIs(ctx context.Context, ids []string) ([]*models.POI, error)
	ListCategories(ctx context.Context) ([]string, error)
	CountPOIs(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
	Close() error
}

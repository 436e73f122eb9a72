// iface.go defines the StoreInterface for dependency injection and testing.
//
// The cmd layer accepts StoreInterface for catalog maintenance; the engine
// only ever sees the narrower feed.Fetcher half of it.
package store

import (
	"context"

	"github.com/constellations/scenenav/pkg/feed"
	"github.com/constellations/scenenav/pkg/model"
)

// StoreInterface defines the full set of catalog operations.
// The concrete *Store type implements this interface.
type StoreInterface interface {
	feed.Fetcher

	// Close closes the database connection.
	Close() error

	// PageSize is the number of scenes per timeline page.
	PageSize() int

	// --- Handles ---

	// UpsertHandle creates a handle or updates its display name. Idempotent.
	UpsertHandle(ctx context.Context, h model.Handle) error

	// Handle lookups, shared with the HTTP backend.
	feed.Handles

	// ListHandles returns all handles ordered by name.
	ListHandles(ctx context.Context) ([]model.Handle, error)

	// --- Scenes ---

	// InsertScene stores a scene, replacing any scene with the same ID.
	InsertScene(ctx context.Context, sc *model.Scene) error

	// CountScenes returns the number of scenes in the catalog.
	CountScenes(ctx context.Context) int64
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)

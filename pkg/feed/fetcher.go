// Package feed defines how the navigation engine obtains scenes.
//
// Fetcher is the collaborator contract: pages of the global feed, pages of a
// handle's feed, the single page of scenes near a scene, and single scenes by
// ID. Two implementations ship with scenenav: Client talks to the HTTP
// backend, and store.Store serves a local SQLite catalog.
package feed

import (
	"context"

	"github.com/constellations/scenenav/pkg/model"
)

// Fetcher retrieves scenes. Implementations must be safe for concurrent use;
// the engine issues overlapping requests and discards stale results itself.
type Fetcher interface {
	// HomeTimeline returns page `page` (0-based) of the global feed.
	HomeTimeline(ctx context.Context, page int) (*model.TimelinePage, error)

	// HandleTimeline returns page `page` of the named handle's feed.
	HandleTimeline(ctx context.Context, handle string, page int) (*model.TimelinePage, error)

	// NearbyTimeline returns the scenes near baseID. There is only one page.
	NearbyTimeline(ctx context.Context, baseID string) (*model.TimelinePage, error)

	// Scene returns the scene with the given ID, or (nil, nil) if it does not
	// exist. Errors are reserved for transport and server failures.
	Scene(ctx context.Context, id string) (*model.Scene, error)
}

// Handles looks up handle records. Both backends implement it.
type Handles interface {
	// Handle returns the named handle, or (nil, nil) if it does not exist.
	Handle(ctx context.Context, handle string) (*model.Handle, error)
}

// Compile-time checks that *Client implements both contracts.
var (
	_ Fetcher = (*Client)(nil)
	_ Handles = (*Client)(nil)
)

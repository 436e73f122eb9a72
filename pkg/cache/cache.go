// Package cache holds the scene records the navigation engine knows about.
package cache

import "github.com/constellations/scenenav/pkg/model"

// SceneCache maps scene IDs to fetched scenes. Writes are insert-or-overwrite,
// so the same scene arriving from two feeds is harmless.
//
// It is not safe for concurrent use; the engine confines it behind its own
// lock.
type SceneCache struct {
	entries map[string]*model.Scene
}

// New creates an empty cache.
func New() *SceneCache {
	return &SceneCache{entries: make(map[string]*model.Scene)}
}

// Get returns the cached scene for id, or nil and false on miss.
func (c *SceneCache) Get(id string) (*model.Scene, bool) {
	s, ok := c.entries[id]
	return s, ok
}

// Put stores scenes, replacing any existing entries with the same ID. Nil
// scenes are skipped.
func (c *SceneCache) Put(scenes ...*model.Scene) {
	for _, s := range scenes {
		if s == nil {
			continue
		}
		c.entries[s.ID] = s
	}
}

// Len returns the number of cached scenes.
func (c *SceneCache) Len() int { return len(c.entries) }

// Reset drops every entry, then stores keep.
func (c *SceneCache) Reset(keep ...*model.Scene) {
	c.entries = make(map[string]*model.Scene, len(keep))
	c.Put(keep...)
}

// Snapshot returns a copy of the ID-to-scene mapping.
func (c *SceneCache) Snapshot() map[string]*model.Scene {
	out := make(map[string]*model.Scene, len(c.entries))
	for id, s := range c.entries {
		out[id] = s
	}
	return out
}

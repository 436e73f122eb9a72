package nav

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/model"
)

// MoveBack moves the history cursor back by count, stopping at the first
// entry, and shows the scene there. It does nothing if the history is empty,
// the cursor is already at the start, or count is not positive.
func (e *Engine) MoveBack(count int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 || e.historyIndex == 0 || count <= 0 {
		return
	}
	e.historyIndex = max(0, e.historyIndex-count)
	e.showCursorLocked()
}

// MoveForward moves the history cursor forward by count. Steps that stay
// inside the history just advance the cursor; each remaining step takes the
// next scene off the lookahead buffer and appends it to the history,
// refilling the buffer when it runs dry. If the source has nothing more to
// give, the cursor stops short without error.
//
// History and cursor are committed together once all scenes are collected.
// A fetch error still commits the scenes collected so far before it is
// returned, so no dequeued scene is lost.
func (e *Engine) MoveForward(ctx context.Context, count int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if count <= 0 {
		return nil
	}

	inHistory := max(0, min(count, len(e.history)-1-e.historyIndex))
	remaining := count - inHistory
	cursor := e.historyIndex + inHistory
	dropped := e.historyDropped

	var added []*model.Scene
	var fetchErr error
	for remaining > 0 {
		if len(e.future) == 0 {
			if fetchErr = e.ensureForwardCoverageLocked(ctx, remaining); fetchErr != nil {
				break
			}
		}
		if len(e.future) > 0 {
			added = append(added, e.future[0])
			e.future[0] = nil
			e.future = e.future[1:]
		}
		remaining--
	}

	// The history may have been truncated while a fetch was outstanding.
	cursor -= e.historyDropped - dropped
	e.history = append(e.history, added...)
	switch {
	case len(e.history) == 0:
		e.historyIndex = -1
	case len(added) > 0:
		e.historyIndex = len(e.history) - 1
	default:
		e.historyIndex = min(max(cursor, 0), len(e.history)-1)
	}
	if e.historyIndex >= 0 {
		e.showCursorLocked()
	}
	glog.V(2).Infof("nav: forward %d -> cursor %d/%d (%d from lookahead)", count, e.historyIndex, len(e.history), len(added))

	if fetchErr != nil {
		return fmt.Errorf("move forward: %w", fetchErr)
	}
	return nil
}

// MoveToScene jumps to the scene with the given ID. The lookahead source
// switches to the scenes near it, the scene is resolved from the cache or
// fetched, the lookahead buffer is prewarmed to Options.PrewarmTarget, and
// the scene is appended to the history with the cursor on it. Entries left
// ahead of the cursor by the source switch stay in place, before the new one.
//
// An unknown ID is not an error: MoveToScene returns nil after the source
// switch without touching the history.
func (e *Engine) MoveToScene(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.movingToScene++
	defer func() { e.movingToScene-- }()

	e.updateNextSceneSourceLocked(model.NearbySource(id))

	scene, ok := e.scenes.Get(id)
	if !ok {
		var err error
		scene, err = e.fetchSceneUnlocked(ctx, id)
		if err != nil {
			return fmt.Errorf("move to scene %s: %w", id, err)
		}
		if scene == nil {
			glog.V(1).Infof("nav: move to unknown scene %s", id)
			return nil
		}
		e.scenes.Put(scene)
	}

	if err := e.ensureForwardCoverageLocked(ctx, e.opts.PrewarmTarget); err != nil {
		return fmt.Errorf("move to scene %s: %w", id, err)
	}

	e.history = append(e.history, scene)
	e.historyIndex = len(e.history) - 1
	e.showCursorLocked()
	glog.V(1).Infof("nav: moved to scene %s (cursor %d/%d)", id, e.historyIndex, len(e.history))
	return nil
}

func (e *Engine) fetchSceneUnlocked(ctx context.Context, id string) (*model.Scene, error) {
	e.mu.Unlock()
	defer e.mu.Lock()
	return e.fetch.Scene(ctx, id)
}

// showCursorLocked makes the scene under the history cursor the described
// and desired scene.
func (e *Engine) showCursorLocked() {
	s := e.history[e.historyIndex]
	e.described = s
	e.desired = s.DisplayInfo()
}

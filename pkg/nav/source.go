package nav

import (
	"context"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/feed"
	"github.com/constellations/scenenav/pkg/model"
)

// sceneSourceStrategy binds a lookahead source to the fetcher. The nearby
// feed has a single page; every later page is empty.
func sceneSourceStrategy(f feed.Fetcher, src model.SceneSource) pageFunc {
	switch src.Kind {
	case model.SourceHandle:
		handle := src.Handle
		return func(ctx context.Context, page int) (*model.TimelinePage, error) {
			return f.HandleTimeline(ctx, handle, page)
		}
	case model.SourceNearby:
		baseID := src.BaseID
		return func(ctx context.Context, page int) (*model.TimelinePage, error) {
			if page != 0 {
				return &model.TimelinePage{}, nil
			}
			return f.NearbyTimeline(ctx, baseID)
		}
	}
	return f.HomeTimeline
}

// timelineStrategy binds a timeline source to the fetcher, or returns nil if
// the source is disabled.
func timelineStrategy(f feed.Fetcher, src model.TimelineSource) pageFunc {
	switch {
	case !src.Active:
		return nil
	case src.Handle == "":
		return f.HomeTimeline
	}
	handle := src.Handle
	return func(ctx context.Context, page int) (*model.TimelinePage, error) {
		return f.HandleTimeline(ctx, handle, page)
	}
}

// UpdateNextSceneSource switches the feed behind the lookahead buffer. It is
// a no-op if src selects the current feed. Otherwise the history is cut down
// to the entries from the cursor onward (the cursor entry becomes index 0),
// the lookahead buffer is emptied and its page counter restarts at 0.
func (e *Engine) UpdateNextSceneSource(src model.SceneSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updateNextSceneSourceLocked(src)
}

// UseGlobalTimeline feeds the lookahead buffer from the global feed.
func (e *Engine) UseGlobalTimeline() {
	e.UpdateNextSceneSource(model.GlobalSource())
}

// UseHandleTimeline feeds the lookahead buffer from one handle's feed.
func (e *Engine) UseHandleTimeline(handle string) {
	e.UpdateNextSceneSource(model.HandleSource(handle))
}

func (e *Engine) updateNextSceneSourceLocked(src model.SceneSource) {
	if src.Equal(e.nextSource) {
		return
	}
	glog.V(1).Infof("nav: next scene source %s -> %s", e.nextSource, src)

	e.nextSource = src
	e.getNextScenes = sceneSourceStrategy(e.fetch, src)
	e.sourceEpoch.Bump()

	if e.historyIndex > 0 {
		e.history = append([]*model.Scene(nil), e.history[e.historyIndex:]...)
		e.historyDropped += e.historyIndex
	}
	if len(e.history) > 0 {
		e.historyIndex = 0
	} else {
		e.historyIndex = -1
	}

	e.future = nil
	e.nextNeededPage = 0
}

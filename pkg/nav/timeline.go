package nav

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/model"
)

// SetTimelineSource switches the feed behind the timeline. Setting the
// current source again does nothing. Any other change bumps the timeline
// epoch, so in-flight coverage fetches are dropped when they land, and
// empties the timeline with the index unset.
//
// Disabling the timeline also resets the scene cache. Only the described
// scene and the scenes still held by the history and the lookahead buffer
// survive.
func (e *Engine) SetTimelineSource(src model.TimelineSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setTimelineSourceLocked(src)
}

// UseTimeline is shorthand for SetTimelineSource: nil disables the
// timeline, "" selects the global feed and anything else a handle.
func (e *Engine) UseTimeline(handle *string) {
	switch {
	case handle == nil:
		e.SetTimelineSource(model.TimelineDisabled)
	case *handle == "":
		e.SetTimelineSource(model.TimelineGlobal())
	default:
		e.SetTimelineSource(model.TimelineHandle(*handle))
	}
}

func (e *Engine) setTimelineSourceLocked(src model.TimelineSource) {
	if src == e.timelineSource {
		return
	}
	glog.V(1).Infof("nav: timeline source %s -> %s", e.timelineSource, src)

	e.timelineSource = src
	e.getTimeline = timelineStrategy(e.fetch, src)
	e.nextTimelinePage = 0
	e.timelineEpoch.Bump()
	e.timeline = nil
	e.timelineIndex = -1

	if !src.Active {
		keep := make([]*model.Scene, 0, 1+len(e.history)+len(e.future))
		if e.described != nil {
			keep = append(keep, e.described)
		}
		keep = append(keep, e.history...)
		keep = append(keep, e.future...)
		e.scenes.Reset(keep...)
	}
}

// EnsureTimelineCoverage makes the timeline hold at least TimelineIndex()+n
// scene IDs, or n if no index is selected; in that case the index becomes 0
// once the timeline is non-empty. It does nothing while the timeline is
// disabled.
//
// Coverage is best effort: after Options.MaxAttempts page fetches the call
// returns without error even if the feed ran dry. It also returns early,
// without error, if the timeline source changes while it runs. Fetch errors
// abort the call and are returned.
func (e *Engine) EnsureTimelineCoverage(ctx context.Context, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureTimelineCoverageLocked(ctx, n)
}

// SetTimelineIndex selects timeline position n and extends coverage by
// EnsureTimelineCoverage(n + Options.TimelineMargin). The index stays unset
// while the timeline is disabled.
func (e *Engine) SetTimelineIndex(ctx context.Context, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.getTimeline == nil {
		return nil
	}
	e.timelineIndex = n
	return e.ensureTimelineCoverageLocked(ctx, n+e.opts.TimelineMargin)
}

func (e *Engine) ensureTimelineCoverageLocked(ctx context.Context, n int) error {
	if e.getTimeline == nil {
		return nil
	}

	initIndex := e.timelineIndex < 0
	target := n
	if !initIndex {
		target = e.timelineIndex + n
	}
	ourEpoch := e.timelineEpoch.Value()
	ourSource := e.timelineSource.String()

	for attempt := 0; attempt < e.opts.MaxAttempts; attempt++ {
		// A newer source owns the timeline now.
		if !e.timelineEpoch.Current(ourEpoch) {
			glog.V(2).Infof("nav: timeline coverage superseded (epoch %d -> %d)", ourEpoch, e.timelineEpoch.Value())
			return nil
		}
		if len(e.timeline) >= target {
			break
		}

		ourPage := e.nextTimelinePage
		page, err := e.unlocked(ctx, e.getTimeline, ourPage)
		if err != nil {
			return fmt.Errorf("timeline %s page %d: %w", ourSource, ourPage, err)
		}

		// Someone else may have filled this page or switched sources while we
		// waited. Commit only if the result is still wanted.
		if !e.timelineEpoch.Current(ourEpoch) || e.nextTimelinePage != ourPage {
			glog.V(2).Infof("nav: dropping stale timeline page %d (epoch %d)", ourPage, ourEpoch)
			continue
		}
		for _, s := range page.Results {
			if s == nil {
				continue
			}
			e.scenes.Put(s)
			e.timeline = append(e.timeline, s.ID)
		}
		e.nextTimelinePage++
		glog.V(2).Infof("nav: timeline page %d -> %d scenes, %d total", ourPage, len(page.Results), len(e.timeline))
	}

	if initIndex && e.timelineEpoch.Current(ourEpoch) && e.timelineIndex < 0 && len(e.timeline) > 0 {
		e.timelineIndex = 0
	}
	return nil
}

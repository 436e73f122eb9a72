// Package nav is the scene navigation engine.
//
// An Engine keeps two independent tracks over the scene feeds:
//
//   - The timeline: an indexable list of scene IDs for one feed (global or a
//     handle), grown page by page on demand. A generation counter (the
//     timeline epoch) is bumped whenever the timeline source changes; fetches
//     that complete under an old epoch are dropped.
//
//   - Navigation: a history of visited scenes with a cursor, plus a lookahead
//     buffer of upcoming scenes prefetched from a switchable source (global, a
//     handle, or scenes near a given scene). Moving forward past the end of the
//     history drains the lookahead buffer into it.
//
// Every scene either track sees is written to a shared SceneCache.
//
// Concurrency: all state is guarded by one mutex, which is released only
// while a feed.Fetcher call is outstanding. Mutations between fetches are
// therefore atomic, and overlapping operations interleave only at fetch
// boundaries. Results that arrive after the state they were requested for has
// moved on are discarded, never surfaced as errors.
package nav

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/cache"
	"github.com/constellations/scenenav/pkg/epoch"
	"github.com/constellations/scenenav/pkg/feed"
	"github.com/constellations/scenenav/pkg/model"
)

const (
	DefaultTimelineMargin = 5
	DefaultMaxAttempts    = 5
	DefaultPrewarmTarget  = 8
)

// Options tunes the engine. Non-positive fields use the defaults.
type Options struct {
	// TimelineMargin is how far past the selected index SetTimelineIndex
	// extends the timeline.
	TimelineMargin int
	// MaxAttempts bounds the page fetches of a single coverage call.
	MaxAttempts int
	// PrewarmTarget is the lookahead size MoveToScene fills before returning.
	PrewarmTarget int
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		TimelineMargin: DefaultTimelineMargin,
		MaxAttempts:    DefaultMaxAttempts,
		PrewarmTarget:  DefaultPrewarmTarget,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TimelineMargin <= 0 {
		o.TimelineMargin = d.TimelineMargin
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.PrewarmTarget <= 0 {
		o.PrewarmTarget = d.PrewarmTarget
	}
	return o
}

// pageFunc fetches one page of some feed.
type pageFunc func(ctx context.Context, page int) (*model.TimelinePage, error)

// Engine owns all navigation state. Create one per browsing session with New.
type Engine struct {
	fetch feed.Fetcher
	opts  Options

	mu sync.Mutex

	scenes        *cache.SceneCache
	described     *model.Scene
	desired       *model.SceneDisplayInfo
	movingToScene int // MoveToScene calls in flight

	// Timeline track.
	timelineSource   model.TimelineSource
	getTimeline      pageFunc // nil while the timeline is disabled
	timelineEpoch    epoch.Counter
	nextTimelinePage int
	timeline         []string
	timelineIndex    int

	// Lookahead track.
	nextSource     model.SceneSource
	getNextScenes  pageFunc
	sourceEpoch    epoch.Counter
	nextNeededPage int
	future         []*model.Scene

	// History. historyDropped counts entries ever truncated from the front,
	// so a cursor captured before a fetch can be rebased afterwards.
	history        []*model.Scene
	historyIndex   int
	historyDropped int
}

// New returns an engine browsing the global feed on both tracks, with an
// empty history and no timeline selection.
func New(f feed.Fetcher, opts Options) *Engine {
	e := &Engine{
		fetch:          f,
		opts:           opts.withDefaults(),
		scenes:         cache.New(),
		timelineSource: model.TimelineGlobal(),
		timelineIndex:  -1,
		nextSource:     model.GlobalSource(),
		historyIndex:   -1,
	}
	e.getTimeline = timelineStrategy(f, e.timelineSource)
	e.getNextScenes = sceneSourceStrategy(f, e.nextSource)
	return e
}

// unlocked runs a fetch with the engine lock released. Callers must hold the
// lock; it is held again when unlocked returns.
func (e *Engine) unlocked(ctx context.Context, fn pageFunc, page int) (*model.TimelinePage, error) {
	e.mu.Unlock()
	defer e.mu.Lock()
	p, err := fn(ctx, page)
	if p == nil && err == nil {
		p = &model.TimelinePage{}
	}
	return p, err
}

// SetupForSingleScene shows one scene outside of any timeline or history.
// It disables the timeline (resetting the cache as SetTimelineSource does),
// then makes scene the described and desired scene and caches it.
func (e *Engine) SetupForSingleScene(scene *model.Scene) {
	if scene == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.setTimelineSourceLocked(model.TimelineDisabled)
	e.timelineIndex = -1
	e.described = scene
	e.desired = scene.DisplayInfo()
	e.scenes.Put(scene)
	glog.V(1).Infof("nav: single scene %s", scene.ID)
}

// ---------------------------------------------------------------------------
// Read access. All accessors return copies.
// ---------------------------------------------------------------------------

// Described returns the scene whose information should be displayed.
func (e *Engine) Described() *model.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.described
}

// Desired returns the scene the viewer should be showing.
func (e *Engine) Desired() *model.SceneDisplayInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.desired == nil {
		return nil
	}
	d := *e.desired
	return &d
}

// MovingToScene reports whether any MoveToScene call is in flight.
func (e *Engine) MovingToScene() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.movingToScene > 0
}

// KnownScene looks up a cached scene.
func (e *Engine) KnownScene(id string) (*model.Scene, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes.Get(id)
}

// KnownScenes returns a copy of the scene cache.
func (e *Engine) KnownScenes() map[string]*model.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes.Snapshot()
}

// TimelineSource returns the active timeline source.
func (e *Engine) TimelineSource() model.TimelineSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timelineSource
}

// Timeline returns the scene IDs loaded into the timeline.
func (e *Engine) Timeline() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.timeline...)
}

// TimelineIndex returns the selected timeline position, or -1 if unset.
func (e *Engine) TimelineIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timelineIndex
}

// NextSceneSource returns the source feeding the lookahead buffer.
func (e *Engine) NextSceneSource() model.SceneSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextSource
}

// Lookahead returns the prefetched, not yet visited scenes in order.
func (e *Engine) Lookahead() []*model.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*model.Scene(nil), e.future...)
}

// History returns the visited scenes in order.
func (e *Engine) History() []*model.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*model.Scene(nil), e.history...)
}

// HistoryIndex returns the history cursor, or -1 if the history is empty.
func (e *Engine) HistoryIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.historyIndex
}

// State is a consistent view of the engine taken under one lock.
type State struct {
	TimelineSource  model.TimelineSource    `json:"timeline_source"`
	Timeline        []string                `json:"timeline"`
	TimelineIndex   int                     `json:"timeline_index"`
	NextSceneSource model.SceneSource       `json:"next_scene_source"`
	History         []string                `json:"history"`
	HistoryIndex    int                     `json:"history_index"`
	Lookahead       []string                `json:"lookahead"`
	Described       *model.Scene            `json:"described,omitempty"`
	Desired         *model.SceneDisplayInfo `json:"desired,omitempty"`
	KnownScenes     int                     `json:"known_scenes"`
	MovingToScene   bool                    `json:"moving_to_scene"`
}

// Snapshot returns the current State.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		TimelineSource:  e.timelineSource,
		Timeline:        append([]string(nil), e.timeline...),
		TimelineIndex:   e.timelineIndex,
		NextSceneSource: e.nextSource,
		History:         sceneIDs(e.history),
		HistoryIndex:    e.historyIndex,
		Lookahead:       sceneIDs(e.future),
		Described:       e.described,
		KnownScenes:     e.scenes.Len(),
		MovingToScene:   e.movingToScene > 0,
	}
	if e.desired != nil {
		d := *e.desired
		st.Desired = &d
	}
	return st
}

func sceneIDs(scenes []*model.Scene) []string {
	ids := make([]string, len(scenes))
	for i, s := range scenes {
		ids[i] = s.ID
	}
	return ids
}

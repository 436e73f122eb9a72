package nav

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/constellations/scenenav/pkg/model"
)

// fakeFetcher serves synthetic feeds. Page p of a feed holds perPage scenes
// with IDs "<feed>-p<p>-<i>", where <feed> is "g" for the global feed and the
// handle name otherwise. Pages at or past maxPages are empty (maxPages 0
// means unlimited).
type fakeFetcher struct {
	perPage  int
	maxPages int
	nearby   int // scenes returned by NearbyTimeline
	known    map[string]*model.Scene

	mu     sync.Mutex
	calls  []string
	gates  map[string]*gate
	failOn map[string]error
}

// gate blocks the first fetch with a given call key until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newFake(perPage int) *fakeFetcher {
	return &fakeFetcher{
		perPage: perPage,
		known:   make(map[string]*model.Scene),
		gates:   make(map[string]*gate),
		failOn:  make(map[string]error),
	}
}

// hold makes the next fetch of call block until the returned gate is
// released. Call keys: "home:<p>", "handle:<h>:<p>", "nearby:<id>",
// "scene:<id>".
func (f *fakeFetcher) hold(call string) *gate {
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.gates[call] = g
	f.mu.Unlock()
	return g
}

func (f *fakeFetcher) fail(call string, err error) {
	f.mu.Lock()
	f.failOn[call] = err
	f.mu.Unlock()
}

func (f *fakeFetcher) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFetcher) countCalls(prefix string) int {
	n := 0
	for _, c := range f.callLog() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) enter(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	g := f.gates[call]
	delete(f.gates, call)
	err := f.failOn[call]
	f.mu.Unlock()

	if g != nil {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeFetcher) page(feedName string, page int) *model.TimelinePage {
	p := &model.TimelinePage{}
	if f.maxPages > 0 && page >= f.maxPages {
		return p
	}
	for i := 0; i < f.perPage; i++ {
		p.Results = append(p.Results, fakeScene(fmt.Sprintf("%s-p%d-%d", feedName, page, i)))
	}
	return p
}

func fakeScene(id string) *model.Scene {
	return &model.Scene{ID: id, HandleID: "h", Text: "scene " + id}
}

func (f *fakeFetcher) HomeTimeline(ctx context.Context, page int) (*model.TimelinePage, error) {
	if err := f.enter(ctx, fmt.Sprintf("home:%d", page)); err != nil {
		return nil, err
	}
	return f.page("g", page), nil
}

func (f *fakeFetcher) HandleTimeline(ctx context.Context, handle string, page int) (*model.TimelinePage, error) {
	if err := f.enter(ctx, fmt.Sprintf("handle:%s:%d", handle, page)); err != nil {
		return nil, err
	}
	return f.page(handle, page), nil
}

func (f *fakeFetcher) NearbyTimeline(ctx context.Context, baseID string) (*model.TimelinePage, error) {
	if err := f.enter(ctx, "nearby:"+baseID); err != nil {
		return nil, err
	}
	p := &model.TimelinePage{}
	for i := 0; i < f.nearby; i++ {
		p.Results = append(p.Results, fakeScene(fmt.Sprintf("near-%s-%d", baseID, i)))
	}
	return p, nil
}

func (f *fakeFetcher) Scene(ctx context.Context, id string) (*model.Scene, error) {
	if err := f.enter(ctx, "scene:"+id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.known[id], nil
}

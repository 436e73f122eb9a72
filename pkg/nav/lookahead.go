package nav

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

// EnsureForwardCoverage makes the lookahead buffer hold at least n scenes,
// fetching successive pages of the current scene source.
//
// Like EnsureTimelineCoverage it is best effort, bounded by
// Options.MaxAttempts page fetches, and returns early without error if the
// scene source changes while it runs. Fetch errors abort the call and are
// returned.
func (e *Engine) EnsureForwardCoverage(ctx context.Context, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureForwardCoverageLocked(ctx, n)
}

func (e *Engine) ensureForwardCoverageLocked(ctx context.Context, n int) error {
	if e.getNextScenes == nil {
		return nil
	}
	ourSource := e.sourceEpoch.Value()
	sourceName := e.nextSource.String()

	for attempt := 0; attempt < e.opts.MaxAttempts; attempt++ {
		if len(e.future) >= n {
			glog.V(2).Infof("nav: lookahead holds %d >= %d", len(e.future), n)
			break
		}

		ourPage := e.nextNeededPage
		page, err := e.unlocked(ctx, e.getNextScenes, ourPage)
		if err != nil {
			return fmt.Errorf("lookahead %s page %d: %w", sourceName, ourPage, err)
		}

		// The buffer was reset for a new source while we waited; this page
		// belongs to the old one.
		if !e.sourceEpoch.Current(ourSource) {
			glog.V(2).Infof("nav: dropping lookahead page %d from a replaced source", ourPage)
			return nil
		}
		// A concurrent call already committed this page and advanced the
		// counter. Leave it alone and move on to whatever page is next.
		if e.nextNeededPage != ourPage {
			glog.V(2).Infof("nav: dropping duplicate lookahead page %d (next is %d)", ourPage, e.nextNeededPage)
			continue
		}
		for _, s := range page.Results {
			if s == nil {
				continue
			}
			e.scenes.Put(s)
			e.future = append(e.future, s)
		}
		e.nextNeededPage++
		glog.V(2).Infof("nav: lookahead %s page %d -> %d scenes, %d buffered", e.nextSource, ourPage, len(page.Results), len(e.future))
	}
	return nil
}

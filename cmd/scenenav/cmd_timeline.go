package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdTimeline(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("timeline", flag.ContinueOnError)
	handle := flags.String("handle", "", "show one handle's timeline instead of the global one")
	index := flags.Int("index", 0, "timeline position to select")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *index < 0 {
		fmt.Fprintln(os.Stderr, "scenenav: timeline: --index must be non-negative")
		return 1
	}

	if *handle != "" {
		h, err := a.handles.Handle(ctx, *handle)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenenav: timeline: %v\n", err)
			return 1
		}
		if h == nil {
			fmt.Fprintf(os.Stderr, "scenenav: timeline: no handle %q\n", *handle)
			return 1
		}
	}

	e := a.newEngine()
	e.UseTimeline(handle)
	if err := e.SetTimelineIndex(ctx, *index); err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: timeline: %v\n", err)
		return 1
	}
	st := e.Snapshot()

	if *jsonOut {
		printJSON(st)
		return 0
	}
	if len(st.Timeline) == 0 {
		fmt.Printf("timeline %s is empty\n", st.TimelineSource)
		return 0
	}
	fmt.Printf("timeline %s (%d loaded)\n", st.TimelineSource, len(st.Timeline))
	for i, id := range st.Timeline {
		marker := "  "
		if i == st.TimelineIndex {
			marker = "> "
		}
		if sc, ok := e.KnownScene(id); ok {
			fmt.Printf("%s%3d  %s\n", marker, i, sceneLine(sc))
		} else {
			fmt.Printf("%s%3d  %s\n", marker, i, id)
		}
	}
	if st.TimelineIndex >= len(st.Timeline) {
		fmt.Fprintf(os.Stderr, "(index %d is past the end of the timeline)\n", st.TimelineIndex)
	}
	return 0
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/constellations/scenenav/pkg/nav"
)

const browseHelp = `commands:
  n [k]       forward k scenes (default 1)
  b [k]       back k scenes (default 1)
  go <id>     jump to a scene and browse what is near it
  global      continue with the global feed
  handle <h>  continue with one handle's scenes
  state       dump the navigator state
  q           quit`

func (a *app) cmdBrowse(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("browse", flag.ContinueOnError)
	handle := flags.String("handle", "", "start with one handle's scenes")
	start := flags.String("start", "", "start at this scene ID")
	jsonOut := flags.Bool("json", false, "print the navigator state as JSON after every command")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	return a.browse(ctx, os.Stdin, browseOptions{handle: *handle, start: *start, json: *jsonOut})
}

type browseOptions struct {
	handle string
	start  string
	json   bool
}

// browse runs the line-oriented navigator, reading commands from in until
// it sees q or EOF. Fetch errors are reported and browsing continues.
func (a *app) browse(ctx context.Context, in io.Reader, opts browseOptions) int {
	e := a.newEngine()
	// Browsing never shows a timeline; only history and lookahead are used.
	e.UseTimeline(nil)
	if opts.handle != "" {
		e.UseHandleTimeline(opts.handle)
	}

	var err error
	if opts.start != "" {
		err = e.MoveToScene(ctx, opts.start)
	} else {
		err = e.MoveForward(ctx, 1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: browse: %v\n", err)
		return 1
	}
	if e.HistoryIndex() < 0 {
		fmt.Fprintln(os.Stderr, "scenenav: browse: nothing to show")
		return 1
	}
	report(e, opts.json)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return 0
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "n", "next":
			var k int
			if k, err = countArg(fields); err == nil {
				err = e.MoveForward(ctx, k)
			}
		case "b", "back":
			var k int
			if k, err = countArg(fields); err == nil {
				e.MoveBack(k)
			}
		case "go":
			if len(fields) != 2 {
				err = fmt.Errorf("usage: go <id>")
			} else {
				err = e.MoveToScene(ctx, fields[1])
				if d := e.Described(); err == nil && (d == nil || d.ID != fields[1]) {
					err = fmt.Errorf("no scene %q", fields[1])
				}
			}
		case "global":
			e.UseGlobalTimeline()
		case "handle":
			if len(fields) != 2 {
				err = fmt.Errorf("usage: handle <h>")
			} else {
				e.UseHandleTimeline(fields[1])
			}
		case "state":
			printJSON(e.Snapshot())
			continue
		case "q", "quit", "exit":
			return 0
		case "help", "?":
			fmt.Println(browseHelp)
			continue
		default:
			err = fmt.Errorf("unknown command %q (try help)", fields[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenenav: browse: %v\n", err)
			continue
		}
		report(e, opts.json)
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: browse: %v\n", err)
		return 1
	}
	return 0
}

// report prints where the navigator stands.
func report(e *nav.Engine, jsonOut bool) {
	st := e.Snapshot()
	if jsonOut {
		printJSON(st)
		return
	}
	if st.Described == nil {
		fmt.Println("(no scene)")
		return
	}
	fmt.Printf("[%d/%d +%d %s] %s\n",
		st.HistoryIndex+1, len(st.History), len(st.Lookahead), st.NextSceneSource, sceneLine(st.Described))
}

func countArg(fields []string) (int, error) {
	if len(fields) < 2 {
		return 1, nil
	}
	k, err := strconv.Atoi(fields[1])
	if err != nil || k < 0 {
		return 0, fmt.Errorf("bad count %q", fields[1])
	}
	return k, nil
}

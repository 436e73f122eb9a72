package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// cmdShow displays one scene outside of any timeline, the way a scene
// permalink is shown.
func (a *app) cmdShow(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("show", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: scenenav show <id> [--json]")
		return 1
	}

	sc, err := a.fetch.Scene(ctx, pos[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: show: %v\n", err)
		return 1
	}
	if sc == nil {
		fmt.Fprintf(os.Stderr, "scenenav: show: no scene %q\n", pos[0])
		return 1
	}

	e := a.newEngine()
	e.SetupForSingleScene(sc)

	if *jsonOut {
		printJSON(map[string]interface{}{
			"scene":   e.Described(),
			"desired": e.Desired(),
		})
	} else {
		printScene(e.Described())
	}
	return 0
}

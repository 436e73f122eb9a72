package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/constellations/scenenav/pkg/config"
)

func (a *app) cmdStatus(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	configFiles := config.Present(config.DefaultPaths()...)
	result := map[string]interface{}{
		"backend":      a.cfg.Backend.Kind,
		"config_files": configFiles,
		"engine":       a.cfg.Engine,
	}
	var scenes int64
	var handles int
	if a.cfg.Backend.Kind == config.BackendHTTP {
		result["api_url"] = a.cfg.Backend.APIURL
		result["timeout"] = a.cfg.Backend.Timeout.String()
	} else {
		st, err := a.catalog()
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenenav: status: %v\n", err)
			return 1
		}
		hs, err := st.ListHandles(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenenav: status: %v\n", err)
			return 1
		}
		scenes, handles = st.CountScenes(ctx), len(hs)
		result["db_path"] = a.cfg.Backend.DBPath
		result["page_size"] = st.PageSize()
		result["scenes"] = scenes
		result["handles"] = handles
	}

	if *jsonOut {
		printJSON(result)
		return 0
	}
	fmt.Printf("backend:  %s\n", a.cfg.Backend.Kind)
	if len(configFiles) == 0 {
		fmt.Println("config:   defaults")
	} else {
		fmt.Printf("config:   %s\n", strings.Join(configFiles, ", "))
	}
	if a.cfg.Backend.Kind == config.BackendHTTP {
		fmt.Printf("api:      %s (timeout %s)\n", a.cfg.Backend.APIURL, a.cfg.Backend.Timeout)
	} else {
		fmt.Printf("catalog:  %s\n", a.cfg.Backend.DBPath)
		fmt.Printf("scenes:   %s from %s handle(s)\n", humanize.Comma(scenes), humanize.Comma(int64(handles)))
	}
	fmt.Printf("engine:   margin=%d attempts=%d prewarm=%d\n",
		a.cfg.Engine.TimelineMargin, a.cfg.Engine.MaxAttempts, a.cfg.Engine.PrewarmTarget)
	return 0
}

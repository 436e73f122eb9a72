// Command scenenav browses sky scenes from the command line, either from a
// local SQLite catalog or from a remote scene API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/config"
)

const version = "0.3.0"

func main() {
	flag.Usage = printUsage
	// glog writes to files unless told otherwise.
	_ = flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(run(flag.Args()))
}

func run(args []string) int {
	defer glog.Flush()

	if len(args) < 1 {
		printUsage()
		return 1
	}
	switch args[0] {
	case "help":
		printUsage()
		return 0
	case "version":
		fmt.Println("scenenav", version)
		return 0
	}

	cfg, err := config.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: %v\n", err)
		return 1
	}
	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: %v\n", err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	// Catalog
	case "init":
		return a.cmdInit(ctx, rest)
	case "add-handle":
		return a.cmdAddHandle(ctx, rest)
	case "add":
		return a.cmdAdd(ctx, rest)
	case "import":
		return a.cmdImport(ctx, rest)

	// Browsing
	case "show":
		return a.cmdShow(ctx, rest)
	case "timeline", "tl":
		return a.cmdTimeline(ctx, rest)
	case "browse":
		return a.cmdBrowse(ctx, rest)
	case "status":
		return a.cmdStatus(ctx, rest)

	default:
		fmt.Fprintf(os.Stderr, "scenenav: unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'scenenav help' for usage.")
		return 1
	}
}

func printUsage() {
	fmt.Print(`scenenav - browse sky scenes

Usage:
  scenenav [glog flags] <command> [flags]

Catalog (sqlite backend):
  init                              Create the scene catalog
  add-handle <handle> [--name N]    Add or rename a handle
  add <handle> <text> [flags]       Add a scene (--ra --dec --zoom in degrees)
  import <file.json|->              Bulk-load scenes from JSON

Browsing:
  show <id>                         Show one scene on its own
  timeline [--handle H] [--index N] Load a timeline around position N
  browse [--handle H] [--start ID]  Interactive navigator on stdin
  status                            Catalog and configuration summary

Aliases:
  tl = timeline

Configuration (lowest to highest priority):
  built-in defaults, ~/.scenenav.yaml, ./.scenenav.yaml, $SCENENAV_CONFIG

Environment:
  SCENENAV_BACKEND    sqlite | http
  SCENENAV_DB         SQLite catalog path (default: .scenenav/scenes.db)
  SCENENAV_API        scene API base URL for the http backend
  SCENENAV_TIMEOUT    request timeout for the http backend (e.g. 10s)
  SCENENAV_PAGE_SIZE  catalog timeline page size

Logging: -v=1 logs source switches, -v=2 every page fetch.

All commands support --json for machine-readable output.
`)
}

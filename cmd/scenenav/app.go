package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/constellations/scenenav/pkg/config"
	"github.com/constellations/scenenav/pkg/feed"
	"github.com/constellations/scenenav/pkg/model"
	"github.com/constellations/scenenav/pkg/nav"
	"github.com/constellations/scenenav/pkg/store"
)

// app holds shared state for all CLI subcommands.
type app struct {
	cfg     *config.Config
	fetch   feed.Fetcher
	handles feed.Handles
	store   store.StoreInterface // nil unless the sqlite backend is selected
}

// newApp connects to the configured backend. For the sqlite backend the
// catalog directory is created if needed.
func newApp(cfg *config.Config) (*app, error) {
	if cfg.Backend.Kind == config.BackendHTTP {
		c, err := feed.NewClient(cfg.Backend.APIURL, feed.ClientOptions{
			Timeout:        cfg.Backend.Timeout,
			ConnectTimeout: cfg.Backend.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &app{cfg: cfg, fetch: c, handles: c}, nil
	}

	dbPath := cfg.Backend.DBPath
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(dbPath, store.Options{
		PageSize:    cfg.Catalog.PageSize,
		NearbyLimit: cfg.Catalog.NearbyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog %q: %w", dbPath, err)
	}
	return &app{cfg: cfg, fetch: s, handles: s, store: s}, nil
}

// Close releases the catalog connection, if any.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

var errNoCatalog = errors.New("this command needs the sqlite backend (set SCENENAV_BACKEND=sqlite)")

// catalog returns the local store or errNoCatalog.
func (a *app) catalog() (store.StoreInterface, error) {
	if a.store == nil {
		return nil, errNoCatalog
	}
	return a.store, nil
}

// newEngine returns a navigation engine over the configured backend.
func (a *app) newEngine() *nav.Engine {
	return nav.New(a.fetch, nav.Options{
		TimelineMargin: a.cfg.Engine.TimelineMargin,
		MaxAttempts:    a.cfg.Engine.MaxAttempts,
		PrewarmTarget:  a.cfg.Engine.PrewarmTarget,
	})
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments, which it returns in order.
func parseArgs(flags *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := flags.Parse(args); err != nil {
			return nil, err
		}
		args = flags.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// sceneLine is the one-line summary used in listings.
func sceneLine(s *model.Scene) string {
	return fmt.Sprintf("%-26s @%-14s %6s likes  %-16s %s",
		s.ID, handleName(s), humanize.Comma(s.Likes), humanize.Time(s.CreationDate), truncate(s.Text, 60))
}

// printScene prints the full description of a scene.
func printScene(s *model.Scene) {
	fmt.Printf("id:       %s\n", s.ID)
	if s.Handle.DisplayName != "" {
		fmt.Printf("handle:   @%s (%s)\n", handleName(s), s.Handle.DisplayName)
	} else {
		fmt.Printf("handle:   @%s\n", handleName(s))
	}
	if !s.CreationDate.IsZero() {
		fmt.Printf("created:  %s (%s)\n", s.CreationDate.Format("2006-01-02 15:04"), humanize.Time(s.CreationDate))
	}
	fmt.Printf("likes:    %s\n", humanize.Comma(s.Likes))
	fmt.Printf("place:    %s\n", placeString(s.Place))
	if n := len(s.Content.ImageLayers); n > 0 {
		fmt.Printf("layers:   %d\n", n)
	}
	if s.OutgoingURL != "" {
		fmt.Printf("url:      %s\n", s.OutgoingURL)
	}
	if s.Text != "" {
		fmt.Printf("\n%s\n", s.Text)
	}
}

func placeString(p model.Place) string {
	return fmt.Sprintf("ra=%.4f° dec=%+.4f° zoom=%.2f°", deg(p.RARad), deg(p.DecRad), p.ZoomDeg)
}

func handleName(s *model.Scene) string {
	if s.Handle.Handle != "" {
		return s.Handle.Handle
	}
	return s.HandleID
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
func rad(deg float64) float64 { return deg * math.Pi / 180 }

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

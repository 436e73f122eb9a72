package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/constellations/scenenav/pkg/model"
)

func (a *app) cmdInit(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return 1
	}
	st, err := a.catalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: init: %v\n", err)
		return 1
	}

	handles, err := st.ListHandles(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: init: database error: %v\n", err)
		return 1
	}
	fmt.Printf("initialized scene catalog (db: %s)\n", a.cfg.Backend.DBPath)
	if n := st.CountScenes(ctx); n > 0 || len(handles) > 0 {
		fmt.Printf("  %d existing scene(s) from %d handle(s)\n", n, len(handles))
	}

	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  scenenav add-handle <handle> --name \"Display Name\"")
	fmt.Println("  scenenav add <handle> \"caption\" --ra 83.82 --dec -5.39 --zoom 2")
	fmt.Println("  scenenav browse")
	return 0
}

func (a *app) cmdAddHandle(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("add-handle", flag.ContinueOnError)
	name := flags.String("name", "", "display name")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: scenenav add-handle <handle> [--name N] [--json]")
		return 1
	}
	st, err := a.catalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: add-handle: %v\n", err)
		return 1
	}

	h := model.Handle{Handle: pos[0], DisplayName: *name}
	if err := st.UpsertHandle(ctx, h); err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: add-handle: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(h)
	} else {
		fmt.Printf("handle @%s saved\n", h.Handle)
	}
	return 0
}

func (a *app) cmdAdd(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("add", flag.ContinueOnError)
	id := flags.String("id", "", "scene ID (default: a new ULID)")
	ra := flags.Float64("ra", 0, "right ascension in degrees")
	dec := flags.Float64("dec", 0, "declination in degrees")
	roll := flags.Float64("roll", 0, "roll in degrees")
	zoom := flags.Float64("zoom", 60, "viewport height in degrees")
	likes := flags.Int64("likes", 0, "like count")
	link := flags.String("url", "", "outgoing link")
	layer := flags.String("layer", "", "imageset ID to show (repeat with commas)")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scenenav add <handle> <text> [--id ID] [--ra DEG --dec DEG --zoom DEG] [--likes N] [--url U] [--layer IDS]")
		return 1
	}
	st, err := a.catalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: add: %v\n", err)
		return 1
	}
	owner, err := st.Handle(ctx, pos[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: add: %v\n", err)
		return 1
	}
	if owner == nil {
		fmt.Fprintf(os.Stderr, "scenenav: add: unknown handle @%s (run 'scenenav add-handle %s' first)\n", pos[0], pos[0])
		return 1
	}

	sceneID := *id
	if sceneID == "" {
		sceneID = ulid.Make().String()
	}
	sc := &model.Scene{
		ID:           sceneID,
		HandleID:     owner.Handle,
		Handle:       *owner,
		CreationDate: time.Now().UTC(),
		Likes:        *likes,
		Place: model.Place{
			RARad:   rad(*ra),
			DecRad:  rad(*dec),
			RollRad: rad(*roll),
			ZoomDeg: *zoom,
		},
		Text:        strings.Join(pos[1:], " "),
		OutgoingURL: *link,
	}
	for _, l := range strings.Split(*layer, ",") {
		if l = strings.TrimSpace(l); l != "" {
			sc.Content.ImageLayers = append(sc.Content.ImageLayers, model.ImageLayer{ImageSetID: l, Opacity: 1})
		}
	}

	if err := st.InsertScene(ctx, sc); err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: add: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(sc)
	} else {
		fmt.Printf("added scene %s by @%s\n", sc.ID, sc.HandleID)
	}
	return 0
}

func (a *app) cmdImport(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("import", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: scenenav import <file.json|-> [--json]")
		return 1
	}
	st, err := a.catalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: import: %v\n", err)
		return 1
	}

	var in io.Reader = os.Stdin
	if pos[0] != "-" {
		f, err := os.Open(pos[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenenav: import: %v\n", err)
			return 1
		}
		defer f.Close()
		in = f
	}
	scenes, err := decodeScenes(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenenav: import: %v\n", err)
		return 1
	}

	imported := 0
	for _, sc := range scenes {
		if err := st.InsertScene(ctx, sc); err != nil {
			fmt.Fprintf(os.Stderr, "scenenav: import: scene %s: %v\n", sc.ID, err)
			return 1
		}
		imported++
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"imported": imported, "total": st.CountScenes(ctx)})
	} else {
		fmt.Printf("imported %d scene(s), catalog now holds %d\n", imported, st.CountScenes(ctx))
	}
	return 0
}

// decodeScenes accepts either a bare JSON array of scenes or a timeline page
// ({"results": [...]}), the shape the scene API returns.
func decodeScenes(r io.Reader) ([]*model.Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var scenes []*model.Scene
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") {
		var page model.TimelinePage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		scenes = page.Results
	} else if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}

	out := scenes[:0]
	for i, sc := range scenes {
		if sc == nil {
			continue
		}
		if sc.ID == "" || (sc.HandleID == "" && sc.Handle.Handle == "") {
			return nil, fmt.Errorf("scene %d: id and handle are required", i)
		}
		out = append(out, sc)
	}
	return out, nil
}

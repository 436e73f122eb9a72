// Package store is a local SQLite scene catalog.
//
// It serves the same feeds as the HTTP backend (global timeline, per-handle
// timelines, scenes near a scene, single scenes) so the navigation engine can
// run offline against seeded data. Handles are keyed by name; a scene's
// handle_id is its owner's handle name.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/model"

	_ "modernc.org/sqlite"
)

const (
	DefaultPageSize    = 8
	DefaultNearbyLimit = 16

	// nearbyBand is the first declination half-width, in radians, searched
	// around a nearby base. It doubles until the nearest set is settled.
	nearbyBand = 0.05

	// timeLayout is fixed-width so creation dates sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Options controls paging. Zero values use the defaults.
type Options struct {
	PageSize    int
	NearbyLimit int
}

// Store manages the catalog database in WAL mode so a browsing session and
// an import can share it.
type Store struct {
	db          *sql.DB
	pageSize    int
	nearbyLimit int
}

// New opens (or creates) the catalog database and initializes the schema.
func New(path string, opts Options) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, pageSize: opts.PageSize, nearbyLimit: opts.NearbyLimit}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.nearbyLimit <= 0 {
		s.nearbyLimit = DefaultNearbyLimit
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// PageSize is the number of scenes per timeline page.
func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS handles (
		handle       TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS scenes (
		id            TEXT PRIMARY KEY,
		handle        TEXT NOT NULL REFERENCES handles(handle),
		creation_date TEXT NOT NULL,
		likes         INTEGER NOT NULL DEFAULT 0,
		ra_rad        REAL NOT NULL DEFAULT 0,
		dec_rad       REAL NOT NULL DEFAULT 0,
		roll_rad      REAL NOT NULL DEFAULT 0,
		zoom_deg      REAL NOT NULL DEFAULT 0,
		content       TEXT NOT NULL DEFAULT '{}',
		text          TEXT NOT NULL DEFAULT '',
		outgoing_url  TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_scenes_created ON scenes(creation_date DESC, id);
	CREATE INDEX IF NOT EXISTS idx_scenes_handle ON scenes(handle, creation_date DESC);
	CREATE INDEX IF NOT EXISTS idx_scenes_sky ON scenes(dec_rad, ra_rad);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Handles
// ---------------------------------------------------------------------------

// UpsertHandle creates a handle or updates its display name. Idempotent.
func (s *Store) UpsertHandle(ctx context.Context, h model.Handle) error {
	if h.Handle == "" {
		return errors.New("upsert handle: empty handle")
	}
	return retryOp(ctx, defaultRetryConfig, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO handles (handle, display_name) VALUES (?, ?)
			 ON CONFLICT(handle) DO UPDATE SET display_name = excluded.display_name`,
			h.Handle, h.DisplayName,
		)
		return err
	})
}

// Handle returns the named handle, or (nil, nil) if it does not exist.
func (s *Store) Handle(ctx context.Context, handle string) (*model.Handle, error) {
	var h model.Handle
	err := s.db.QueryRowContext(ctx,
		`SELECT handle, display_name FROM handles WHERE handle = ?`, handle,
	).Scan(&h.Handle, &h.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("handle %s: %w", handle, err)
	}
	return &h, nil
}

// ListHandles returns all handles ordered by name.
func (s *Store) ListHandles(ctx context.Context) ([]model.Handle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT handle, display_name FROM handles ORDER BY handle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles []model.Handle
	for rows.Next() {
		var h model.Handle
		if err := rows.Scan(&h.Handle, &h.DisplayName); err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

// ---------------------------------------------------------------------------
// Scenes
// ---------------------------------------------------------------------------

// InsertScene stores a scene, replacing any existing scene with the same ID.
// The owning handle is created if needed. A zero CreationDate is set to now.
func (s *Store) InsertScene(ctx context.Context, sc *model.Scene) error {
	if sc.ID == "" {
		return errors.New("insert scene: empty id")
	}
	handle := sc.Handle.Handle
	if handle == "" {
		handle = sc.HandleID
	}
	if handle == "" {
		return fmt.Errorf("insert scene %s: no handle", sc.ID)
	}
	if sc.CreationDate.IsZero() {
		sc.CreationDate = time.Now().UTC()
	}
	content, err := json.Marshal(sc.Content)
	if err != nil {
		return fmt.Errorf("insert scene %s: encode content: %w", sc.ID, err)
	}

	return retryOp(ctx, defaultRetryConfig, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		// Keep an existing display name unless the scene carries one.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO handles (handle, display_name) VALUES (?, ?)
			 ON CONFLICT(handle) DO UPDATE SET display_name =
			   CASE WHEN excluded.display_name = '' THEN handles.display_name ELSE excluded.display_name END`,
			handle, sc.Handle.DisplayName,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scenes (id, handle, creation_date, likes, ra_rad, dec_rad, roll_rad, zoom_deg, content, text, outgoing_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   handle = excluded.handle,
			   creation_date = excluded.creation_date,
			   likes = excluded.likes,
			   ra_rad = excluded.ra_rad,
			   dec_rad = excluded.dec_rad,
			   roll_rad = excluded.roll_rad,
			   zoom_deg = excluded.zoom_deg,
			   content = excluded.content,
			   text = excluded.text,
			   outgoing_url = excluded.outgoing_url`,
			sc.ID, handle, sc.CreationDate.UTC().Format(timeLayout), sc.Likes,
			sc.Place.RARad, sc.Place.DecRad, sc.Place.RollRad, sc.Place.ZoomDeg,
			string(content), sc.Text, sc.OutgoingURL,
		); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// CountScenes returns the number of scenes in the catalog.
func (s *Store) CountScenes(ctx context.Context) int64 {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes`).Scan(&n); err != nil {
		return 0
	}
	return n
}

const sceneColumns = `s.id, s.handle, h.display_name, s.creation_date, s.likes,
	s.ra_rad, s.dec_rad, s.roll_rad, s.zoom_deg, s.content, s.text, s.outgoing_url`

// Scene returns one scene, or (nil, nil) if it does not exist.
func (s *Store) Scene(ctx context.Context, id string) (*model.Scene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes s JOIN handles h ON h.handle = s.handle
		 WHERE s.id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get scene %s: %w", id, err)
	}
	defer rows.Close()
	scenes, err := scanScenes(rows)
	if err != nil {
		return nil, fmt.Errorf("get scene %s: %w", id, err)
	}
	if len(scenes) == 0 {
		return nil, nil
	}
	return scenes[0], nil
}

// HomeTimeline returns page `page` of all scenes, newest first.
func (s *Store) HomeTimeline(ctx context.Context, page int) (*model.TimelinePage, error) {
	if page < 0 {
		return &model.TimelinePage{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes s JOIN handles h ON h.handle = s.handle
		 ORDER BY s.creation_date DESC, s.id ASC LIMIT ? OFFSET ?`,
		s.pageSize, page*s.pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("home timeline page %d: %w", page, err)
	}
	defer rows.Close()
	return s.page(rows, "home", page)
}

// HandleTimeline returns page `page` of one handle's scenes, newest first.
// An unknown handle has an empty timeline.
func (s *Store) HandleTimeline(ctx context.Context, handle string, page int) (*model.TimelinePage, error) {
	if page < 0 {
		return &model.TimelinePage{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes s JOIN handles h ON h.handle = s.handle
		 WHERE s.handle = ?
		 ORDER BY s.creation_date DESC, s.id ASC LIMIT ? OFFSET ?`,
		handle, s.pageSize, page*s.pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("handle %s timeline page %d: %w", handle, page, err)
	}
	defer rows.Close()
	return s.page(rows, "handle "+handle, page)
}

// NearbyTimeline returns up to NearbyLimit scenes closest on the sky to
// baseID, nearest first, excluding baseID itself. An unknown base yields an
// empty page.
func (s *Store) NearbyTimeline(ctx context.Context, baseID string) (*model.TimelinePage, error) {
	base, err := s.Scene(ctx, baseID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return &model.TimelinePage{}, nil
	}

	// Angular separation is never less than the declination difference, so
	// once the limit-th closest scene in a band lies within the band's
	// half-width, nothing outside the band can displace it.
	var scenes []*model.Scene
	for width := nearbyBand; ; width *= 2 {
		scenes, err = s.nearbyInBand(ctx, base, width)
		if err != nil {
			return nil, fmt.Errorf("nearby %s: %w", baseID, err)
		}
		if width >= math.Pi {
			break
		}
		if len(scenes) >= s.nearbyLimit && angularSeparation(base.Place, scenes[s.nearbyLimit-1].Place) <= width {
			break
		}
	}
	if len(scenes) > s.nearbyLimit {
		scenes = scenes[:s.nearbyLimit]
	}
	glog.V(2).Infof("store: nearby %s -> %d scenes", baseID, len(scenes))
	return &model.TimelinePage{Results: scenes}, nil
}

// nearbyInBand returns the scenes other than base whose declination is within
// width of base's, closest first.
func (s *Store) nearbyInBand(ctx context.Context, base *model.Scene, width float64) ([]*model.Scene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes s JOIN handles h ON h.handle = s.handle
		 WHERE s.dec_rad BETWEEN ? AND ? AND s.id != ?`,
		base.Place.DecRad-width, base.Place.DecRad+width, base.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	scenes, err := scanScenes(rows)
	if err != nil {
		return nil, err
	}

	dist := make(map[string]float64, len(scenes))
	for _, sc := range scenes {
		dist[sc.ID] = angularSeparation(base.Place, sc.Place)
	}
	sort.SliceStable(scenes, func(i, j int) bool {
		di, dj := dist[scenes[i].ID], dist[scenes[j].ID]
		if di != dj {
			return di < dj
		}
		return scenes[i].ID < scenes[j].ID
	})
	return scenes, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Store) page(rows *sql.Rows, what string, page int) (*model.TimelinePage, error) {
	scenes, err := scanScenes(rows)
	if err != nil {
		return nil, fmt.Errorf("%s timeline page %d: %w", what, page, err)
	}
	glog.V(2).Infof("store: %s timeline page %d -> %d scenes", what, page, len(scenes))
	return &model.TimelinePage{Results: scenes}, nil
}

func scanScenes(rows *sql.Rows) ([]*model.Scene, error) {
	var scenes []*model.Scene
	for rows.Next() {
		var sc model.Scene
		var createdStr, contentStr string
		if err := rows.Scan(&sc.ID, &sc.Handle.Handle, &sc.Handle.DisplayName, &createdStr, &sc.Likes,
			&sc.Place.RARad, &sc.Place.DecRad, &sc.Place.RollRad, &sc.Place.ZoomDeg,
			&contentStr, &sc.Text, &sc.OutgoingURL); err != nil {
			return nil, err
		}
		sc.HandleID = sc.Handle.Handle
		var parseErr error
		sc.CreationDate, parseErr = time.Parse(timeLayout, createdStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse creation_date for scene %s: %w", sc.ID, parseErr)
		}
		if err := json.Unmarshal([]byte(contentStr), &sc.Content); err != nil {
			return nil, fmt.Errorf("decode content for scene %s: %w", sc.ID, err)
		}
		scenes = append(scenes, &sc)
	}
	return scenes, rows.Err()
}

// angularSeparation is the great-circle distance between two places, in
// radians (haversine form, stable for small separations).
func angularSeparation(a, b model.Place) float64 {
	dDec := b.DecRad - a.DecRad
	dRA := b.RARad - a.RARad
	h := math.Sin(dDec/2)*math.Sin(dDec/2) +
		math.Cos(a.DecRad)*math.Cos(b.DecRad)*math.Sin(dRA/2)*math.Sin(dRA/2)
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h))
}

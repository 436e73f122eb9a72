// Package model defines the core domain types for scenenav.
//
// A scene is a single piece of sky content (a place to look and the imagery to
// show there) published by a handle. Scenes arrive from the backend in pages,
// either as a timeline (the global feed or one handle's feed) or as the set of
// scenes near a given scene. The navigation engine in pkg/nav consumes these
// types; nothing here carries behavior beyond small helpers.
package model

import (
	"fmt"
	"time"
)

// Handle is the public identity that owns scenes.
type Handle struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

// Place is where on the sky a scene is centered. Angles are radians except
// the zoom level, which is the viewport height in degrees.
type Place struct {
	RARad   float64 `json:"ra_rad"`
	DecRad  float64 `json:"dec_rad"`
	RollRad float64 `json:"roll_rad,omitempty"`
	ZoomDeg float64 `json:"zoom_deg"`
}

// ImageLayer is one imageset drawn as part of a scene.
type ImageLayer struct {
	ImageSetID string  `json:"image_set_id"`
	Opacity    float64 `json:"opacity"`
}

// Content is the imagery displayed for a scene.
type Content struct {
	ImageLayers []ImageLayer `json:"image_layers,omitempty"`
}

// Scene is a fetched scene record. Treat it as immutable once fetched: the
// engine shares pointers between the cache, the timeline, the history and the
// lookahead buffer.
type Scene struct {
	ID           string    `json:"id"`
	HandleID     string    `json:"handle_id"`
	Handle       Handle    `json:"handle"`
	CreationDate time.Time `json:"creation_date"`
	Likes        int64     `json:"likes"`
	Place        Place     `json:"place"`
	Content      Content   `json:"content"`
	Text         string    `json:"text"`
	OutgoingURL  string    `json:"outgoing_url,omitempty"`
}

// SceneDisplayInfo is the subset of a scene a viewer needs to show it.
type SceneDisplayInfo struct {
	ID      string  `json:"id"`
	Place   Place   `json:"place"`
	Content Content `json:"content"`
}

// DisplayInfo returns the viewer-facing projection of s.
func (s *Scene) DisplayInfo() *SceneDisplayInfo {
	return &SceneDisplayInfo{ID: s.ID, Place: s.Place, Content: s.Content}
}

// TimelinePage is one page of scenes returned by a feed.
type TimelinePage struct {
	Results []*Scene `json:"results"`
}

// SourceKind enumerates where upcoming scenes come from.
type SourceKind string

const (
	SourceGlobal SourceKind = "global"
	SourceHandle SourceKind = "handle"
	SourceNearby SourceKind = "nearby"
)

// SceneSource selects the feed that refills the lookahead buffer. Handle is
// meaningful only for SourceHandle and BaseID only for SourceNearby.
type SceneSource struct {
	Kind   SourceKind `json:"kind"`
	Handle string     `json:"handle,omitempty"`
	BaseID string     `json:"base_id,omitempty"`
}

// GlobalSource is the home feed.
func GlobalSource() SceneSource { return SceneSource{Kind: SourceGlobal} }

// HandleSource is the feed of a single handle.
func HandleSource(handle string) SceneSource {
	return SceneSource{Kind: SourceHandle, Handle: handle}
}

// NearbySource is the set of scenes near baseID.
func NearbySource(baseID string) SceneSource {
	return SceneSource{Kind: SourceNearby, BaseID: baseID}
}

// Equal reports whether s and other select the same feed. Payload fields of
// other kinds are ignored.
func (s SceneSource) Equal(other SceneSource) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case SourceHandle:
		return s.Handle == other.Handle
	case SourceNearby:
		return s.BaseID == other.BaseID
	}
	return true
}

func (s SceneSource) String() string {
	switch s.Kind {
	case SourceHandle:
		return fmt.Sprintf("handle(%s)", s.Handle)
	case SourceNearby:
		return fmt.Sprintf("nearby(%s)", s.BaseID)
	}
	return string(s.Kind)
}

// TimelineSource selects the feed behind the indexable timeline. The zero
// value is TimelineDisabled. An active source with an empty Handle is the
// global feed.
type TimelineSource struct {
	Active bool   `json:"active"`
	Handle string `json:"handle,omitempty"`
}

// TimelineDisabled turns timeline browsing off.
var TimelineDisabled = TimelineSource{}

// TimelineGlobal browses the global feed.
func TimelineGlobal() TimelineSource { return TimelineSource{Active: true} }

// TimelineHandle browses one handle's feed.
func TimelineHandle(handle string) TimelineSource {
	return TimelineSource{Active: true, Handle: handle}
}

func (t TimelineSource) String() string {
	switch {
	case !t.Active:
		return "disabled"
	case t.Handle == "":
		return "global"
	}
	return "handle(" + t.Handle + ")"
}
